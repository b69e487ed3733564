package game

import "github.com/blusaccount/maexchen-online/domain"

// PlayerIdentity is what a connection declared about itself on register.
type PlayerIdentity struct {
	Name      string            `json:"name"`
	Character *domain.Character `json:"character,omitempty"`
	Game      string            `json:"game"`
}

// Presence maps live connections to identities. Identity is scoped to the
// connection only: two connections may carry the same name.
type Presence struct {
	players map[string]PlayerIdentity
	order   []string
}

func NewPresence() *Presence {
	return &Presence{players: make(map[string]PlayerIdentity)}
}

// Register replaces whatever identity connID had before.
func (p *Presence) Register(connID string, identity PlayerIdentity) {
	if _, ok := p.players[connID]; !ok {
		p.order = append(p.order, connID)
	}
	p.players[connID] = identity
}

func (p *Presence) Lookup(connID string) (PlayerIdentity, bool) {
	identity, ok := p.players[connID]
	return identity, ok
}

func (p *Presence) Remove(connID string) bool {
	if _, ok := p.players[connID]; !ok {
		return false
	}
	delete(p.players, connID)
	for i, id := range p.order {
		if id == connID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// All lists identities in registration order.
func (p *Presence) All() []PlayerIdentity {
	out := make([]PlayerIdentity, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.players[id])
	}
	return out
}

// FindByName returns the first online identity with that name.
func (p *Presence) FindByName(name string) (PlayerIdentity, bool) {
	for _, id := range p.order {
		if identity := p.players[id]; identity.Name == name {
			return identity, true
		}
	}
	return PlayerIdentity{}, false
}

func (p *Presence) Len() int {
	return len(p.players)
}
