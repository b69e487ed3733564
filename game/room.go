package game

import "github.com/blusaccount/maexchen-online/domain"

type GameKind string

const (
	KindMaexchen    GameKind = "maexchen"
	KindStrictBrain GameKind = "strictbrain"
	KindWatchParty  GameKind = "watchparty"
	KindDemo        GameKind = "demo"
)

// kindSpec is the per-game policy the core needs to know about. Everything
// else about a game lives in its GameState.
type kindSpec struct {
	lateJoin   bool
	minPlayers int
	newState   func(members []Member) GameState
}

var kinds = map[GameKind]kindSpec{
	KindMaexchen:    {minPlayers: 2, newState: newTableGame},
	KindStrictBrain: {minPlayers: 2, newState: newTableGame},
	KindDemo:        {minPlayers: 2, newState: newTableGame},
	KindWatchParty:  {lateJoin: true, minPlayers: 1, newState: newWatchParty},
}

// parseGameKind maps an empty value to maexchen, the hotel's default game.
func parseGameKind(raw string) (GameKind, bool) {
	if raw == "" {
		return KindMaexchen, true
	}
	kind := GameKind(raw)
	_, ok := kinds[kind]
	return kind, ok
}

func (k GameKind) allowsLateJoin() bool {
	return kinds[k].lateJoin
}

// GameState is the slot a game owns once its room is active. The core only
// calls these hooks; it never inspects the state itself.
type GameState interface {
	// AddPlayer seats someone who joined after the start. Only called for
	// kinds that allow late join.
	AddPlayer(m Member)
	// Forfeit runs while m is still a member of the room.
	Forfeit(m Member)
	Snapshot() any
}

type Member struct {
	conn      Connection
	Name      string
	Character *domain.Character
}

func (m Member) ConnID() string {
	return m.conn.ID()
}

// Room is only mutated through RoomStore, which keeps members and the
// connection index in step.
type Room struct {
	Code    string
	HostID  string
	Kind    GameKind
	members []Member
	game    GameState
}

func (r *Room) Members() []Member {
	return append([]Member(nil), r.members...)
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) Member(connID string) (Member, bool) {
	for _, m := range r.members {
		if m.ConnID() == connID {
			return m, true
		}
	}
	return Member{}, false
}

func (r *Room) MemberByName(name string) (Member, bool) {
	for _, m := range r.members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

func (r *Room) HostName() string {
	if host, ok := r.Member(r.HostID); ok {
		return host.Name
	}
	if len(r.members) > 0 {
		return r.members[0].Name
	}
	return ""
}

func (r *Room) Game() GameState {
	return r.game
}

// Open reports whether the room is still in the lobby phase.
func (r *Room) Open() bool {
	return r.game == nil
}

// Start moves the room from lobby to active. There is no way back.
func (r *Room) Start(state GameState) error {
	if r.game != nil {
		return ErrAlreadyStarted
	}
	r.game = state
	return nil
}

func (r *Room) indexOf(connID string) int {
	for i, m := range r.members {
		if m.ConnID() == connID {
			return i
		}
	}
	return -1
}
