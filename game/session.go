package game

// The shared lobby features. Each one is a process-wide session without a
// code or a member cap; anyone online can join.
const (
	FeatureSoundboard = "soundboard"
	FeatureClub       = "club"
	FeatureLoop       = "loop"
	FeaturePicto      = "picto"
)

var sessionFeatures = []string{FeatureSoundboard, FeatureClub, FeatureLoop, FeaturePicto}

// Document is the shared state behind a session.
type Document interface {
	Snapshot() any
}

// connReleaser is implemented by documents that keep per-connection state.
type connReleaser interface {
	releaseConn(connID string)
}

type SessionSync struct {
	feature   string
	State     any      `json:"state"`
	Listeners []string `json:"listeners"`
}

func (e SessionSync) EventName() string { return e.feature + "-sync" }

type SessionListeners struct {
	feature   string
	Listeners []string `json:"listeners"`
}

func (e SessionListeners) EventName() string { return e.feature + "-listeners" }

// session is the feature-agnostic face of Session used by the dispatcher
// and the disconnect path.
type session interface {
	Feature() string
	Join(conn Connection, name string)
	Leave(connID string) bool
	Has(connID string) bool
	Len() int
}

type Session[D Document] struct {
	feature   string
	doc       D
	listeners map[string]string
	order     []string
	out       *Broadcaster
}

func NewSession[D Document](feature string, doc D, out *Broadcaster) *Session[D] {
	return &Session[D]{
		feature:   feature,
		doc:       doc,
		listeners: make(map[string]string),
		out:       out,
	}
}

func (s *Session[D]) Feature() string {
	return s.feature
}

func (s *Session[D]) Has(connID string) bool {
	_, ok := s.listeners[connID]
	return ok
}

func (s *Session[D]) Len() int {
	return len(s.listeners)
}

// Join adds conn as a listener, hands it the current document and tells
// everyone the new roster. Joining twice only renames.
func (s *Session[D]) Join(conn Connection, name string) {
	id := conn.ID()
	if _, ok := s.listeners[id]; !ok {
		s.order = append(s.order, id)
	}
	s.listeners[id] = name

	s.out.SendToOne(id, SessionSync{feature: s.feature, State: s.doc.Snapshot(), Listeners: s.names()})
	s.out.SendToMany(s.order, "", SessionListeners{feature: s.feature, Listeners: s.names()})
}

func (s *Session[D]) Leave(connID string) bool {
	if _, ok := s.listeners[connID]; !ok {
		return false
	}
	delete(s.listeners, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if r, ok := any(s.doc).(connReleaser); ok {
		r.releaseConn(connID)
	}
	s.out.SendToMany(s.order, "", SessionListeners{feature: s.feature, Listeners: s.names()})
	return true
}

// Mutate applies a change on behalf of a listener and sends the resulting
// event to every listener, the originator included. apply returns nil when
// the input does not validate, in which case nothing is sent.
func (s *Session[D]) Mutate(connID string, apply func(doc D, name string) ServerEvent) bool {
	return s.mutate(connID, "", apply)
}

// MutateLive is Mutate for transient updates the originator already shows
// locally, such as cursors and strokes in flight.
func (s *Session[D]) MutateLive(connID string, apply func(doc D, name string) ServerEvent) bool {
	return s.mutate(connID, connID, apply)
}

func (s *Session[D]) mutate(connID, except string, apply func(doc D, name string) ServerEvent) bool {
	name, ok := s.listeners[connID]
	if !ok {
		return false
	}
	ev := apply(s.doc, name)
	if ev == nil {
		return false
	}
	s.out.SendToMany(s.order, except, ev)
	return true
}

// Rewrite is for changes large enough that listeners should resync from a
// fresh snapshot.
func (s *Session[D]) Rewrite(connID string, apply func(doc D) bool) bool {
	if _, ok := s.listeners[connID]; !ok {
		return false
	}
	if !apply(s.doc) {
		return false
	}
	s.out.SendToMany(s.order, "", SessionSync{feature: s.feature, State: s.doc.Snapshot(), Listeners: s.names()})
	return true
}

// Notify sends ev to all listeners except the given connection, without
// requiring a listener as origin.
func (s *Session[D]) Notify(except string, ev ServerEvent) {
	s.out.SendToMany(s.order, except, ev)
}

func (s *Session[D]) Document() D {
	return s.doc
}

func (s *Session[D]) names() []string {
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	return out
}
