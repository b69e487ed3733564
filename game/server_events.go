package game

import (
	"encoding/json"

	"github.com/blusaccount/maexchen-online/domain"
)

// ServerEvent is anything the hotel sends to clients. The event name goes
// on the wire next to the JSON encoding of the value itself.
type ServerEvent interface {
	EventName() string
}

type outbound struct {
	Event string      `json:"event"`
	Data  ServerEvent `json:"data"`
}

func encodeEvent(ev ServerEvent) ([]byte, error) {
	return json.Marshal(outbound{Event: ev.EventName(), Data: ev})
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorEvent(err error) ErrorEvent {
	return ErrorEvent{Code: err.Error(), Message: messageFor(err)}
}

type OnlinePlayers struct {
	Players []PlayerIdentity `json:"players"`
}

type LobbiesUpdate struct {
	GameKind GameKind      `json:"gameType"`
	Lobbies  []RoomSummary `json:"lobbies"`
}

type RoomCreated struct {
	Code string `json:"code"`
}

type RoomJoined struct {
	Code string `json:"code"`
}

type RoomLeft struct {
	Code string `json:"code"`
}

type RoomClosed struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// RoomState is the full authoritative view of a room. It is what every
// member receives after any membership or phase change.
type RoomState struct {
	Code     string          `json:"code"`
	HostName string          `json:"hostName"`
	GameKind GameKind        `json:"gameType"`
	Phase    string          `json:"phase"`
	Players  []MemberSummary `json:"players"`
	Game     any             `json:"game,omitempty"`
}

type GameStarted struct {
	Code     string   `json:"code"`
	GameKind GameKind `json:"gameType"`
	Game     any      `json:"game"`
}

type GameOver struct {
	Code   string `json:"code"`
	Winner string `json:"winner"`
}

type ChatBroadcast struct {
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

type EmoteBroadcast struct {
	PlayerName string `json:"playerName"`
	EmoteID    string `json:"emoteId"`
}

type DrawingNoteDelivery struct {
	From    string `json:"from"`
	DataURL string `json:"dataURL"`
	Target  string `json:"target"`
}

type BalanceUpdate struct {
	Balance int64 `json:"balance"`
}

type RainEffect struct {
	PlayerName string `json:"playerName"`
}

type PlayerCharacter struct {
	Name      string            `json:"name"`
	Character *domain.Character `json:"character"`
	Game      string            `json:"game,omitempty"`
	Online    bool              `json:"online"`
}

type SlotResult struct {
	Reels      []string `json:"reels"`
	Bet        int64    `json:"bet"`
	Payout     int64    `json:"payout"`
	Multiplier int64    `json:"multiplier"`
	WinType    string   `json:"winType"`
	Balance    int64    `json:"balance"`
}

type SlotError struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventName() string          { return "error" }
func (OnlinePlayers) EventName() string       { return "online-players" }
func (LobbiesUpdate) EventName() string       { return "lobbies-update" }
func (RoomCreated) EventName() string         { return "room-created" }
func (RoomJoined) EventName() string          { return "room-joined" }
func (RoomLeft) EventName() string            { return "room-left" }
func (RoomClosed) EventName() string          { return "room-closed" }
func (RoomState) EventName() string           { return "room-state" }
func (GameStarted) EventName() string         { return "game-started" }
func (GameOver) EventName() string            { return "game-over" }
func (ChatBroadcast) EventName() string       { return "chat-broadcast" }
func (EmoteBroadcast) EventName() string      { return "emote-broadcast" }
func (DrawingNoteDelivery) EventName() string { return "drawing-note" }
func (BalanceUpdate) EventName() string       { return "balance-update" }
func (RainEffect) EventName() string          { return "lobby-rain-effect" }
func (PlayerCharacter) EventName() string     { return "player-character" }
func (SlotResult) EventName() string          { return "strictly7s-spin-result" }
func (SlotError) EventName() string           { return "strictly7s-error" }
