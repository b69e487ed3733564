package game

import (
	"errors"

	"github.com/blusaccount/maexchen-online/domain"
)

var (
	ErrRoomNotFound     = errors.New("room-not-found")
	ErrRoomFull         = errors.New("room-full")
	ErrAlreadyInRoom    = errors.New("already-in-room")
	ErrAlreadyMember    = errors.New("already-member")
	ErrAlreadyStarted   = errors.New("already-started")
	ErrNotHost          = errors.New("not-host")
	ErrNotEnoughPlayers = errors.New("not-enough-players")
	ErrNotInRoom        = errors.New("not-in-room")
)

var (
	ErrInvalidName     = errors.New("invalid-name")
	ErrInvalidRoomCode = errors.New("invalid-room-code")
	ErrInvalidGameKind = errors.New("invalid-game-kind")
	ErrUnknownEvent    = errors.New("unknown-event")
	ErrMalformedEvent  = errors.New("malformed-event")
)

var (
	ErrRateLimited    = errors.New("rate-limited")
	ErrSendBufferFull = errors.New("send-buffer-full")
	ErrHotelStopped   = errors.New("hotel-stopped")
)

// errorMessages holds the user-facing text sent along with an error code.
var errorMessages = map[error]string{
	ErrRoomNotFound:     "Room not found.",
	ErrRoomFull:         "Room is full.",
	ErrAlreadyInRoom:    "You are already in a room.",
	ErrAlreadyMember:    "You are already in this room.",
	ErrAlreadyStarted:   "The game has already started.",
	ErrNotHost:          "Only the host can start the game.",
	ErrNotEnoughPlayers: "Not enough players to start.",
	ErrNotInRoom:        "You are not in a room.",
	ErrInvalidName:      "Invalid name.",
	ErrInvalidRoomCode:  "Invalid room code.",
	ErrInvalidGameKind:  "Unknown game.",
	ErrRateLimited:      "Too many requests. Slow down.",

	domain.ErrInsufficientFunds: "Not enough coins!",
}

func messageFor(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return "Something went wrong."
}
