package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame the hotel sends to it.
type fakeConn struct {
	id   string
	addr string

	mu     sync.Mutex
	frames [][]byte
	err    error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, addr: "10.0.0." + id}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, data)
	return nil
}

type sentFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *fakeConn) received(t *testing.T) []sentFrame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentFrame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f sentFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

// named returns the payloads of every frame called event, oldest first.
func (c *fakeConn) named(t *testing.T, event string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for _, f := range c.received(t) {
		if f.Event == event {
			out = append(out, f.Data)
		}
	}
	return out
}

func (c *fakeConn) eventNames(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, f := range c.received(t) {
		out = append(out, f.Event)
	}
	return out
}

// last decodes the newest frame called event into v.
func (c *fakeConn) last(t *testing.T, event string, v any) {
	t.Helper()
	all := c.named(t, event)
	require.NotEmpty(t, all, "no %q frame for %s", event, c.id)
	require.NoError(t, json.Unmarshal(all[len(all)-1], v))
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

type harness struct {
	t          *testing.T
	h          *Hotel
	ledger     *MockLedger
	documents  *MockDocumentStore
	characters *MockCharacterStore
	clock      time.Time
	ids        int
}

// newHarness builds a hotel that is driven directly from the test goroutine
// instead of through Run.
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	hs := &harness{
		t:          t,
		ledger:     &MockLedger{},
		documents:  &MockDocumentStore{},
		characters: &MockCharacterStore{},
		clock:      time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	hs.ledger.On("Balance", mock.Anything, mock.Anything).Return(int64(1000), nil).Maybe()
	hs.characters.On("SaveCharacter", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	h := NewHotel(cfg, hs.ledger, hs.documents, hs.characters, &MockPeriodicTickerChannelCreator{})
	h.ctx = context.Background()
	h.now = func() time.Time { return hs.clock }
	h.newID = func() string {
		hs.ids++
		return fmt.Sprintf("id-%d", hs.ids)
	}
	hs.h = h
	return hs
}

func (hs *harness) advance(d time.Duration) {
	hs.clock = hs.clock.Add(d)
}

func (hs *harness) connect(id string) *fakeConn {
	conn := newFakeConn(id)
	hs.h.handle(envelope{kind: connectEnvelope, conn: conn})
	return conn
}

func (hs *harness) send(conn Connection, ev ClientEvent) {
	hs.h.handle(envelope{kind: eventEnvelope, conn: conn, event: ev})
	hs.settle()
}

// fresh sends ev in a new rate-limit window.
func (hs *harness) fresh(conn Connection, ev ClientEvent) {
	hs.advance(rateWindow + time.Millisecond)
	hs.send(conn, ev)
}

func (hs *harness) disconnect(conn Connection) {
	hs.h.handle(envelope{kind: disconnectEnvelope, conn: conn})
	hs.settle()
}

// settle waits for suspended collaborator calls and runs their
// continuations, repeating until nothing is left.
func (hs *harness) settle() {
	for {
		hs.h.suspended.Wait()
		select {
		case next := <-hs.h.resume:
			hs.h.safely("resume", next)
		default:
			return
		}
	}
}

// persisted drains the queued document mutations.
func (hs *harness) persisted() []persistJob {
	var out []persistJob
	for {
		select {
		case job := <-hs.h.persist:
			out = append(out, job)
		default:
			return out
		}
	}
}

// register connects id and registers it under name.
func (hs *harness) register(id, name string) *fakeConn {
	conn := hs.connect(id)
	hs.send(conn, &RegisterPlayer{Name: name})
	return conn
}

// createRoom has conn open a room of kind and returns its code.
func (hs *harness) createRoom(conn *fakeConn, name string, kind GameKind) string {
	hs.t.Helper()
	hs.send(conn, &CreateRoom{PlayerName: name, GameKind: string(kind)})
	var created RoomCreated
	conn.last(hs.t, "room-created", &created)
	return created.Code
}

// checkIndex asserts that the room store's connection index and the rooms'
// member lists describe the same membership.
func (hs *harness) checkIndex() {
	hs.t.Helper()
	s := hs.h.rooms
	seen := make(map[string]string)
	for code, room := range s.rooms {
		require.NotZero(hs.t, room.Len(), "room %s is empty but still listed", code)
		for _, m := range room.members {
			_, dup := seen[m.ConnID()]
			require.False(hs.t, dup, "%s seated twice", m.ConnID())
			seen[m.ConnID()] = code
		}
	}
	require.Equal(hs.t, seen, s.byConn)
	require.Len(hs.t, s.order, len(s.rooms))
}
