package game

import (
	"github.com/blusaccount/maexchen-online/domain"
	"github.com/rs/zerolog/log"
)

const DefaultMaxRoomMembers = 6

// RoomSummary is the lobby listing entry for an open room.
type RoomSummary struct {
	Code        string          `json:"code"`
	HostName    string          `json:"hostName"`
	MemberCount int             `json:"playerCount"`
	Members     []MemberSummary `json:"players"`
}

type MemberSummary struct {
	Name      string            `json:"name"`
	Character *domain.Character `json:"character,omitempty"`
}

// RoomStore is the directory of live rooms. The rooms map, the insertion
// order and the connection index are only ever changed together.
type RoomStore struct {
	rooms      map[string]*Room
	order      []string
	byConn     map[string]string
	maxMembers int
	drawCode   func() string
}

func NewRoomStore(maxMembers int) *RoomStore {
	if maxMembers <= 0 {
		maxMembers = DefaultMaxRoomMembers
	}
	return &RoomStore{
		rooms:      make(map[string]*Room),
		byConn:     make(map[string]string),
		maxMembers: maxMembers,
		drawCode:   randomCode,
	}
}

func (s *RoomStore) CreateRoom(conn Connection, kind GameKind, identity PlayerIdentity) (*Room, error) {
	if _, ok := s.byConn[conn.ID()]; ok {
		return nil, ErrAlreadyInRoom
	}

	room := &Room{
		Code:   s.generateCode(),
		HostID: conn.ID(),
		Kind:   kind,
	}
	s.rooms[room.Code] = room
	s.order = append(s.order, room.Code)
	s.addMember(room, conn, identity)
	return room, nil
}

// generateCode samples until it finds a code no live room uses.
func (s *RoomStore) generateCode() string {
	for {
		code := s.drawCode()
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

func (s *RoomStore) JoinRoom(conn Connection, code string, identity PlayerIdentity) (*Room, error) {
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	// a seated connection hears about its seat before the room's state
	if current, ok := s.byConn[conn.ID()]; ok {
		if current == code {
			return nil, ErrAlreadyMember
		}
		return nil, ErrAlreadyInRoom
	}
	if !room.Open() && !room.Kind.allowsLateJoin() {
		return nil, ErrAlreadyStarted
	}
	if room.Len() >= s.maxMembers {
		return nil, ErrRoomFull
	}

	member := s.addMember(room, conn, identity)
	if room.game != nil {
		room.game.AddPlayer(member)
	}
	return room, nil
}

func (s *RoomStore) addMember(room *Room, conn Connection, identity PlayerIdentity) Member {
	member := Member{conn: conn, Name: identity.Name, Character: identity.Character}
	room.members = append(room.members, member)
	s.byConn[conn.ID()] = room.Code
	return member
}

func (s *RoomStore) RoomFor(connID string) (*Room, bool) {
	code, ok := s.byConn[connID]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Get(code string) (*Room, bool) {
	room, ok := s.rooms[code]
	return room, ok
}

// ListOpenRooms returns lobby-phase rooms of kind in creation order.
func (s *RoomStore) ListOpenRooms(kind GameKind) []RoomSummary {
	out := make([]RoomSummary, 0)
	for _, code := range s.order {
		room := s.rooms[code]
		if room.Kind != kind || !room.Open() {
			continue
		}
		summary := RoomSummary{
			Code:        room.Code,
			HostName:    room.HostName(),
			MemberCount: room.Len(),
			Members:     make([]MemberSummary, 0, room.Len()),
		}
		for _, m := range room.members {
			summary.Members = append(summary.Members, MemberSummary{Name: m.Name, Character: m.Character})
		}
		out = append(out, summary)
	}
	return out
}

// RemoveMember drops connID from room. An active game hears about the
// departure first, while the seat is still there to read. Reports whether
// the room was deleted because it became empty.
func (s *RoomStore) RemoveMember(connID string, room *Room) bool {
	i := room.indexOf(connID)
	if i < 0 {
		return false
	}
	if room.game != nil {
		room.game.Forfeit(room.members[i])
	}
	// game code just ran; re-read the seat
	if i = room.indexOf(connID); i < 0 {
		return false
	}
	room.members = append(room.members[:i], room.members[i+1:]...)
	if s.byConn[connID] == room.Code {
		delete(s.byConn, connID)
	}

	if room.Len() == 0 {
		s.deleteRoom(room.Code)
		return true
	}
	if room.HostID == connID {
		room.HostID = room.members[0].ConnID()
	}
	return false
}

// Terminate ends an active room for good: the game state is detached and
// every member is released from the index before the room goes away. The
// returned members are the ones that were still seated.
func (s *RoomStore) Terminate(room *Room) []Member {
	if _, ok := s.rooms[room.Code]; !ok {
		return nil
	}
	room.game = nil
	evicted := room.members
	room.members = nil
	for _, m := range evicted {
		if s.byConn[m.ConnID()] == room.Code {
			delete(s.byConn, m.ConnID())
		}
	}
	s.deleteRoom(room.Code)
	return evicted
}

func (s *RoomStore) deleteRoom(code string) {
	delete(s.rooms, code)
	for i, c := range s.order {
		if c == code {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	log.Info().Str("room", code).Msg("room deleted")
}

func (s *RoomStore) Len() int {
	return len(s.rooms)
}
