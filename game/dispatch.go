package game

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// eventLimits overrides the default per-second budget for events that are
// cheaper or more expensive than usual. Unlisted events get the default.
var eventLimits = map[string]int{
	"strictly7s-spin":        5,
	"chat-message":           5,
	"emote":                  5,
	"drawing-note":           3,
	"watchparty-load":        5,
	"watchparty-playpause":   5,
	"watchparty-seek":        5,
	"soundboard-play":        3,
	"club-join":              5,
	"club-leave":             5,
	"club-queue":             3,
	"club-pause":             5,
	"club-skip":              3,
	"loop-join":              5,
	"loop-leave":             5,
	"loop-toggle-cell":       20,
	"loop-set-bpm":           5,
	"loop-set-bars":          5,
	"loop-play-pause":        5,
	"loop-set-synth":         5,
	"loop-set-bass":          5,
	"loop-set-master-volume": 5,
	"loop-clear":             3,
	"picto-cursor":           40,
	"picto-cursor-hide":      20,
	"picto-stroke-segment":   30,
	"picto-stroke-end":       10,
	"picto-shape":            8,
	"picto-undo":             5,
	"picto-redo":             5,
	"picto-clear":            2,
	"picto-message":          6,
}

// surfacedLimits are the events whose rejection the sender is told about.
// Everything else is dropped quietly.
var surfacedLimits = map[string]bool{
	"strictly7s-spin":    true,
	"lobby-make-it-rain": true,
}

func (h *Hotel) dispatch(conn Connection, ev ClientEvent) {
	name := ev.EventName()
	if !h.limiter.Allow(conn.ID(), conn.RemoteAddr(), eventLimits[name], h.now()) {
		log.Debug().Str("conn", conn.ID()).Str("event", name).Msg("rate limited")
		if surfacedLimits[name] {
			h.sendError(conn.ID(), ErrRateLimited)
		}
		return
	}

	switch e := ev.(type) {
	case *RegisterPlayer:
		h.registerPlayer(conn, e)
	case *GetLobbies:
		h.getLobbies(conn, e)
	case *CreateRoom:
		h.createRoom(conn, e)
	case *JoinRoom:
		h.joinRoom(conn, e)
	case *LeaveRoom:
		if room, ok := h.rooms.RoomFor(conn.ID()); ok {
			h.leaveRoom(conn.ID(), room, true)
		}
	case *StartGame:
		h.startGame(conn)
	case *RequestRoomState:
		if room, ok := h.rooms.RoomFor(conn.ID()); ok {
			h.out.SendFrame(conn.ID(), h.out.FullStateSnapshot(room))
		}
	case *ChatMessage:
		h.chat(conn, e)
	case *Emote:
		h.emote(conn, e)
	case *DrawingNote:
		h.drawingNote(conn, e)
	case *WatchPartyLoad, *WatchPartyPlayPause, *WatchPartySeek, *WatchPartyRequestSync:
		h.watchPartyEvent(conn, e)

	case *GetBalance:
		h.getBalance(conn)
	case *SlotSpin:
		h.slotSpin(conn, e)
	case *MakeItRain:
		h.makeItRain(conn)
	case *GetPlayerCharacter:
		h.getPlayerCharacter(conn, e)

	case *SessionJoin:
		h.joinSession(conn, e.Feature)
	case *SessionLeave:
		h.leaveSession(conn.ID(), e.Feature)
	default:
		h.sessionEvent(conn, ev)
	}
}

func (h *Hotel) registerPlayer(conn Connection, e *RegisterPlayer) {
	name := sanitizeName(e.Name)
	if name == "" {
		h.sendError(conn.ID(), ErrInvalidName)
		return
	}
	kind, ok := parseGameKind(e.Game)
	if !ok {
		kind = KindMaexchen
	}
	identity := PlayerIdentity{Name: name, Character: validateCharacter(e.Character), Game: string(kind)}
	h.presence.Register(conn.ID(), identity)
	h.broadcastOnlinePlayers()
	log.Info().Str("conn", conn.ID()).Str("player", name).Str("game", identity.Game).Msg("registered")

	if identity.Character != nil {
		character := *identity.Character
		h.suspend(func(ctx context.Context) func() {
			if err := h.characters.SaveCharacter(ctx, name, character); err != nil {
				log.Error().Err(err).Str("player", name).Msg("saving character")
			}
			return nil
		})
	}
	h.sendBalance(conn.ID(), name)
}

func (h *Hotel) getLobbies(conn Connection, e *GetLobbies) {
	kind, ok := parseGameKind(e.GameKind)
	if !ok {
		return
	}
	h.out.SendToOne(conn.ID(), LobbiesUpdate{GameKind: kind, Lobbies: h.rooms.ListOpenRooms(kind)})
}

func (h *Hotel) createRoom(conn Connection, e *CreateRoom) {
	name := sanitizeName(e.PlayerName)
	if name == "" {
		h.sendError(conn.ID(), ErrInvalidName)
		return
	}
	kind, ok := parseGameKind(e.GameKind)
	if !ok {
		h.sendError(conn.ID(), ErrInvalidGameKind)
		return
	}
	room, err := h.rooms.CreateRoom(conn, kind, PlayerIdentity{Name: name, Character: validateCharacter(e.Character)})
	if err != nil {
		h.sendError(conn.ID(), err)
		return
	}
	h.out.SendToOne(conn.ID(), RoomCreated{Code: room.Code})
	h.broadcastRoomState(room)
	h.broadcastLobbies(kind)
	log.Info().Str("room", room.Code).Str("player", name).Str("kind", string(kind)).Msg("room created")
}

func (h *Hotel) joinRoom(conn Connection, e *JoinRoom) {
	name := sanitizeName(e.PlayerName)
	if name == "" {
		h.sendError(conn.ID(), ErrInvalidName)
		return
	}
	code, ok := validateRoomCode(e.Code)
	if !ok {
		h.sendError(conn.ID(), ErrInvalidRoomCode)
		return
	}
	room, err := h.rooms.JoinRoom(conn, code, PlayerIdentity{Name: name, Character: validateCharacter(e.Character)})
	if err != nil {
		h.sendError(conn.ID(), err)
		return
	}
	h.out.SendToOne(conn.ID(), RoomJoined{Code: room.Code})
	if game := room.Game(); game != nil {
		h.out.SendToOne(conn.ID(), GameStarted{Code: room.Code, GameKind: room.Kind, Game: game.Snapshot()})
	}
	h.broadcastRoomState(room)
	h.broadcastLobbies(room.Kind)
	log.Info().Str("room", room.Code).Str("player", name).Msg("joined room")
}

// leaveRoom takes connID out of room and tells the rest. notify is false on
// disconnect, where there is nobody left to tell.
func (h *Hotel) leaveRoom(connID string, room *Room, notify bool) {
	code, kind := room.Code, room.Kind
	deleted := h.rooms.RemoveMember(connID, room)
	if notify {
		h.out.SendToOne(connID, RoomLeft{Code: code})
	}
	if !deleted && !h.finishIfDecided(room) {
		h.broadcastRoomState(room)
	}
	h.broadcastLobbies(kind)
	log.Info().Str("room", code).Str("conn", connID).Bool("deleted", deleted).Msg("left room")
}

// decider is implemented by games that can end on their own.
type decider interface {
	Winner() (string, bool)
}

// finishIfDecided ends an active room whose game has been decided. The
// remaining members hear the result and are released from the room.
func (h *Hotel) finishIfDecided(room *Room) bool {
	game, ok := room.Game().(decider)
	if !ok {
		return false
	}
	winner, over := game.Winner()
	if !over {
		return false
	}
	h.out.BroadcastToRoom(room, GameOver{Code: room.Code, Winner: winner})
	for _, m := range h.rooms.Terminate(room) {
		h.out.SendToOne(m.ConnID(), RoomClosed{Code: room.Code, Reason: "game-over"})
	}
	log.Info().Str("room", room.Code).Str("winner", winner).Msg("game over")
	return true
}

func (h *Hotel) startGame(conn Connection) {
	room, ok := h.rooms.RoomFor(conn.ID())
	if !ok {
		h.sendError(conn.ID(), ErrNotInRoom)
		return
	}
	if room.HostID != conn.ID() {
		h.sendError(conn.ID(), ErrNotHost)
		return
	}
	policy := kinds[room.Kind]
	if room.Len() < policy.minPlayers {
		h.sendError(conn.ID(), ErrNotEnoughPlayers)
		return
	}
	if err := room.Start(policy.newState(room.Members())); err != nil {
		h.sendError(conn.ID(), err)
		return
	}
	h.out.BroadcastToRoom(room, GameStarted{Code: room.Code, GameKind: room.Kind, Game: room.Game().Snapshot()})
	h.broadcastRoomState(room)
	h.broadcastLobbies(room.Kind)
	log.Info().Str("room", room.Code).Str("kind", string(room.Kind)).Int("players", room.Len()).Msg("game started")
}

// member resolves the sender's seat in its current room.
func (h *Hotel) member(connID string) (*Room, Member, bool) {
	room, ok := h.rooms.RoomFor(connID)
	if !ok {
		return nil, Member{}, false
	}
	m, ok := room.Member(connID)
	return room, m, ok
}

func (h *Hotel) chat(conn Connection, e *ChatMessage) {
	room, m, ok := h.member(conn.ID())
	if !ok {
		return
	}
	text := sanitizeText(e.Text, maxChatLength)
	if text == "" {
		return
	}
	h.out.BroadcastToRoom(room, ChatBroadcast{PlayerName: m.Name, Text: text, Timestamp: h.now().UnixMilli()})
}

func (h *Hotel) emote(conn Connection, e *Emote) {
	if e.EmoteID == "" || len(e.EmoteID) > maxEmoteLength {
		return
	}
	room, m, ok := h.member(conn.ID())
	if !ok {
		return
	}
	h.out.BroadcastToRoom(room, EmoteBroadcast{PlayerName: m.Name, EmoteID: e.EmoteID})
}

// drawingNote goes to everyone else in the room for target "all", otherwise
// to the one member with that name. Nobody gets a note from themselves.
func (h *Hotel) drawingNote(conn Connection, e *DrawingNote) {
	if !strings.HasPrefix(e.DataURL, "data:image/") || len(e.DataURL) > maxCharacterURLLength {
		return
	}
	if e.Target == "" || len(e.Target) > maxNameLength {
		return
	}
	room, m, ok := h.member(conn.ID())
	if !ok {
		return
	}
	if e.Target == "all" {
		h.out.BroadcastExceptSender(room, conn.ID(), DrawingNoteDelivery{From: m.Name, DataURL: e.DataURL, Target: "all"})
		return
	}
	target, ok := room.MemberByName(e.Target)
	if !ok || target.ConnID() == conn.ID() {
		return
	}
	h.out.SendToOne(target.ConnID(), DrawingNoteDelivery{From: m.Name, DataURL: e.DataURL, Target: target.Name})
}

func (h *Hotel) watchPartyEvent(conn Connection, ev ClientEvent) {
	room, _, ok := h.member(conn.ID())
	if !ok || room.Kind != KindWatchParty {
		return
	}
	party, ok := room.Game().(*watchParty)
	if !ok {
		return
	}
	now := h.now()
	switch e := ev.(type) {
	case *WatchPartyLoad:
		if out, ok := party.Load(e.VideoID, now); ok {
			h.out.BroadcastToRoom(room, out)
		}
	case *WatchPartyPlayPause:
		if out, ok := party.PlayPause(e.State, e.Time, now); ok {
			h.out.BroadcastExceptSender(room, conn.ID(), out)
		}
	case *WatchPartySeek:
		if out, ok := party.Seek(e.Time, now); ok {
			h.out.BroadcastExceptSender(room, conn.ID(), out)
		}
	case *WatchPartyRequestSync:
		if out, ok := party.Current(); ok {
			h.out.SendToOne(conn.ID(), out)
		}
	}
}
