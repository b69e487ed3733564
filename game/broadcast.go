package game

import (
	"github.com/rs/zerolog/log"
)

// Broadcaster fans encoded events out to attached connections. Every payload
// is encoded once; delivery is best effort and never retried.
type Broadcaster struct {
	conns map[string]Connection
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: make(map[string]Connection)}
}

func (b *Broadcaster) Attach(conn Connection) {
	b.conns[conn.ID()] = conn
}

func (b *Broadcaster) Detach(connID string) {
	delete(b.conns, connID)
}

// Live reports whether connID is still attached.
func (b *Broadcaster) Live(connID string) bool {
	_, ok := b.conns[connID]
	return ok
}

func (b *Broadcaster) Len() int {
	return len(b.conns)
}

func (b *Broadcaster) SendToOne(connID string, ev ServerEvent) {
	frame, ok := encode(ev)
	if !ok {
		return
	}
	b.deliver(connID, frame)
}

func (b *Broadcaster) SendToAll(ev ServerEvent) {
	frame, ok := encode(ev)
	if !ok {
		return
	}
	for id := range b.conns {
		b.deliver(id, frame)
	}
}

func (b *Broadcaster) BroadcastToRoom(room *Room, ev ServerEvent) {
	b.BroadcastExceptSender(room, "", ev)
}

func (b *Broadcaster) BroadcastExceptSender(room *Room, senderID string, ev ServerEvent) {
	frame, ok := encode(ev)
	if !ok {
		return
	}
	for _, m := range room.members {
		if m.ConnID() != senderID {
			b.deliver(m.ConnID(), frame)
		}
	}
}

// SendToMany delivers to ids in order, skipping except.
func (b *Broadcaster) SendToMany(ids []string, except string, ev ServerEvent) {
	frame, ok := encode(ev)
	if !ok {
		return
	}
	for _, id := range ids {
		if id != except {
			b.deliver(id, frame)
		}
	}
}

// SendFrame delivers an already encoded payload.
func (b *Broadcaster) SendFrame(connID string, frame []byte) {
	b.deliver(connID, frame)
}

// FullStateSnapshot encodes the room's complete state. With no mutation in
// between, two calls return identical bytes.
func (b *Broadcaster) FullStateSnapshot(room *Room) []byte {
	frame, _ := encode(roomState(room))
	return frame
}

func (b *Broadcaster) deliver(connID string, frame []byte) {
	conn, ok := b.conns[connID]
	if !ok {
		return
	}
	if err := conn.Send(frame); err != nil {
		log.Warn().Err(err).Str("conn", connID).Msg("dropping frame")
	}
}

func encode(ev ServerEvent) ([]byte, bool) {
	frame, err := encodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.EventName()).Msg("encoding event")
		return nil, false
	}
	return frame, true
}

func roomState(room *Room) RoomState {
	state := RoomState{
		Code:     room.Code,
		HostName: room.HostName(),
		GameKind: room.Kind,
		Phase:    "lobby",
		Players:  make([]MemberSummary, 0, room.Len()),
	}
	for _, m := range room.members {
		state.Players = append(state.Players, MemberSummary{Name: m.Name, Character: m.Character})
	}
	if room.game != nil {
		state.Phase = "active"
		state.Game = room.game.Snapshot()
	}
	return state
}
