package game

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func newConnectionID() string {
	return uuid.NewString()
}

// onDisconnect releases everything conn held. Presence goes first so the
// room and session rosters sent afterwards no longer name the player; the
// connection itself is detached last.
func (h *Hotel) onDisconnect(conn Connection) {
	id := conn.ID()
	if !h.out.Live(id) {
		return
	}
	h.limiter.Forget(id)

	wasRegistered := h.presence.Remove(id)

	for _, feature := range sessionFeatures {
		h.leaveSession(id, feature)
	}

	if room, ok := h.rooms.RoomFor(id); ok {
		h.leaveRoom(id, room, false)
	}

	h.out.Detach(id)
	if wasRegistered {
		h.broadcastOnlinePlayers()
	}
	log.Debug().Str("conn", id).Bool("registered", wasRegistered).Msg("disconnected")
}
