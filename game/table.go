package game

import (
	"github.com/blusaccount/maexchen-online/domain"
)

const startingLives = 3

type tableSeat struct {
	connID    string
	Name      string            `json:"name"`
	Lives     int               `json:"lives"`
	Character *domain.Character `json:"character,omitempty"`
}

// tableGame is the seat and lives bookkeeping shared by the turn based
// table games. The rules of each game sit on top of it.
type tableGame struct {
	seats []tableSeat
	turn  int
}

func newTableGame(members []Member) GameState {
	g := &tableGame{seats: make([]tableSeat, 0, len(members))}
	for _, m := range members {
		g.seats = append(g.seats, tableSeat{connID: m.ConnID(), Name: m.Name, Lives: startingLives, Character: m.Character})
	}
	return g
}

// AddPlayer seats a late arrival as a spectator. Table kinds do not allow
// late joins, so this only matters if that policy changes.
func (g *tableGame) AddPlayer(m Member) {
	g.seats = append(g.seats, tableSeat{connID: m.ConnID(), Name: m.Name, Character: m.Character})
}

// Forfeit knocks the seat out. If it was that seat's turn, the turn moves
// to the next one still alive.
func (g *tableGame) Forfeit(m Member) {
	for i := range g.seats {
		if g.seats[i].connID != m.ConnID() {
			continue
		}
		g.seats[i].Lives = 0
		if i == g.turn {
			g.advance()
		}
		return
	}
}

func (g *tableGame) advance() {
	for step := 1; step <= len(g.seats); step++ {
		next := (g.turn + step) % len(g.seats)
		if g.seats[next].Lives > 0 {
			g.turn = next
			return
		}
	}
}

func (g *tableGame) alive() []tableSeat {
	var out []tableSeat
	for _, s := range g.seats {
		if s.Lives > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Winner reports whether the game is decided. A table with one seat left
// standing has a winner; an empty one has none.
func (g *tableGame) Winner() (string, bool) {
	alive := g.alive()
	switch len(alive) {
	case 0:
		return "", true
	case 1:
		return alive[0].Name, true
	}
	return "", false
}

type tableSnapshot struct {
	Players []tableSeat `json:"players"`
	Turn    string      `json:"turn"`
}

func (g *tableGame) Snapshot() any {
	snap := tableSnapshot{Players: append([]tableSeat{}, g.seats...)}
	if g.turn < len(g.seats) {
		snap.Turn = g.seats[g.turn].Name
	}
	return snap
}
