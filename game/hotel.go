package game

import (
	"context"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxRoomMembers      int
	RateLimitPerSecond  int
	SweepInterval       time.Duration
	CollaboratorTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRoomMembers <= 0 {
		c.MaxRoomMembers = DefaultMaxRoomMembers
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = 10
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = 5 * time.Second
	}
	return c
}

type envelopeKind int

const (
	connectEnvelope envelopeKind = iota
	eventEnvelope
	disconnectEnvelope
)

// envelope is one unit of work for the hotel goroutine. Connects, events
// and disconnects share a queue so a connection's own traffic stays in
// the order it was read.
type envelope struct {
	kind  envelopeKind
	conn  Connection
	event ClientEvent
}

type openRoomsRequest struct {
	kind  GameKind
	reply chan []RoomSummary
}

type persistJob struct {
	feature  string
	mutation domain.DocumentMutation
}

type pictoHydration int

const (
	pictoCold pictoHydration = iota
	pictoHydrating
	pictoReady
)

type Stats struct {
	Rooms       int            `json:"rooms"`
	Connections int            `json:"connections"`
	Players     int            `json:"players"`
	Listeners   map[string]int `json:"listeners"`
}

// Hotel owns every registry: presence, rooms, the shared sessions and the
// rate limiter. All of it is touched from the Run goroutine only; the
// exported methods just post work to it.
type Hotel struct {
	cfg Config

	presence *Presence
	rooms    *RoomStore
	out      *Broadcaster
	limiter  *RateLimiter

	soundboard *Session[*Soundboard]
	club       *Session[*Club]
	loop       *Session[*LoopMachine]
	picto      *Session[*Picto]
	sessions   map[string]session

	pictoState   pictoHydration
	pictoWaiting []Connection

	ledger     Ledger
	documents  DocumentStore
	characters CharacterStore
	tickers    PeriodicTickerChannelCreator

	now   func() time.Time
	intn  func(n int) int
	newID func() string

	inbox     chan envelope
	resume    chan func()
	statsReq  chan chan Stats
	roomsReq  chan openRoomsRequest
	persist   chan persistJob
	ctx       context.Context
	done      <-chan struct{}
	suspended sync.WaitGroup
}

func NewHotel(cfg Config, ledger Ledger, documents DocumentStore, characters CharacterStore, tickers PeriodicTickerChannelCreator) *Hotel {
	cfg = cfg.withDefaults()
	out := NewBroadcaster()
	h := &Hotel{
		cfg:        cfg,
		presence:   NewPresence(),
		rooms:      NewRoomStore(cfg.MaxRoomMembers),
		out:        out,
		limiter:    NewRateLimiter(cfg.RateLimitPerSecond),
		soundboard: NewSession(FeatureSoundboard, &Soundboard{}, out),
		club:       NewSession(FeatureClub, &Club{}, out),
		loop:       NewSession(FeatureLoop, NewLoopMachine(), out),
		picto:      NewSession(FeaturePicto, NewPicto(), out),
		ledger:     ledger,
		documents:  documents,
		characters: characters,
		tickers:    tickers,
		now:        time.Now,
		intn:       rand.IntN,
		newID:      newConnectionID,
		inbox:      make(chan envelope, 1024),
		resume:     make(chan func(), 256),
		statsReq:   make(chan chan Stats, 16),
		roomsReq:   make(chan openRoomsRequest, 64),
		persist:    make(chan persistJob, 1024),
	}
	h.sessions = map[string]session{
		FeatureSoundboard: h.soundboard,
		FeatureClub:       h.club,
		FeatureLoop:       h.loop,
		FeaturePicto:      h.picto,
	}
	return h
}

// Run is the hotel's event loop. It closes started once it is ready to
// take work and returns when ctx is cancelled, after in-flight collaborator
// calls have settled and queued persistence has been written.
func (h *Hotel) Run(ctx context.Context, started chan struct{}) {
	sweep, stopSweep := h.tickers.Create(h.cfg.SweepInterval)
	defer stopSweep()

	h.ctx = ctx
	h.done = ctx.Done()

	persisted := make(chan struct{})
	go func() {
		h.persister()
		close(persisted)
	}()

	close(started)
	log.Info().Msg("hotel open")

	for {
		select {
		case <-ctx.Done():
			h.suspended.Wait()
			close(h.persist)
			<-persisted
			log.Info().Msg("hotel closed")
			return

		case env := <-h.inbox:
			h.handle(env)

		case next := <-h.resume:
			h.safely("resume", next)

		case now := <-sweep:
			h.limiter.Sweep(now)

		case reply := <-h.statsReq:
			reply <- h.stats()

		case req := <-h.roomsReq:
			req.reply <- h.rooms.ListOpenRooms(req.kind)
		}
	}
}

func (h *Hotel) Connect(ctx context.Context, conn Connection) error {
	return h.post(ctx, envelope{kind: connectEnvelope, conn: conn})
}

func (h *Hotel) Receive(ctx context.Context, conn Connection, ev ClientEvent) error {
	return h.post(ctx, envelope{kind: eventEnvelope, conn: conn, event: ev})
}

// Disconnect queues the cleanup for conn behind any of its pending events.
func (h *Hotel) Disconnect(conn Connection) {
	select {
	case h.inbox <- envelope{kind: disconnectEnvelope, conn: conn}:
	case <-h.done:
	}
}

func (h *Hotel) post(ctx context.Context, env envelope) error {
	select {
	case <-h.done:
		return ErrHotelStopped
	default:
	}
	select {
	case h.inbox <- env:
		return nil
	case <-h.done:
		return ErrHotelStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hotel) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.statsReq <- reply:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hotel) OpenRooms(ctx context.Context, kind GameKind) ([]RoomSummary, error) {
	req := openRoomsRequest{kind: kind, reply: make(chan []RoomSummary, 1)}
	select {
	case h.roomsReq <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case rooms := <-req.reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hotel) handle(env envelope) {
	switch env.kind {
	case connectEnvelope:
		h.safely("connect", func() { h.onConnect(env.conn) })
	case eventEnvelope:
		if !h.out.Live(env.conn.ID()) {
			return
		}
		h.safely(env.event.EventName(), func() { h.dispatch(env.conn, env.event) })
	case disconnectEnvelope:
		h.safely("disconnect", func() { h.onDisconnect(env.conn) })
	}
}

// safely runs fn and turns a panic into a log line, so one bad event
// cannot take the hotel down.
func (h *Hotel) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", what).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")
		}
	}()
	fn()
}

// suspend runs a collaborator call off the hotel goroutine. The returned
// continuation, if any, runs back on the hotel goroutine and must check
// that whatever it touches still exists.
func (h *Hotel) suspend(work func(ctx context.Context) func()) {
	h.suspended.Add(1)
	go func() {
		defer h.suspended.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), h.cfg.CollaboratorTimeout)
		next := work(ctx)
		cancel()
		if next == nil {
			return
		}
		select {
		case h.resume <- next:
		case <-h.done:
		}
	}()
}

// enqueuePersist hands a mutation to the persister. It never blocks the
// hotel; a full queue loses the write.
func (h *Hotel) enqueuePersist(feature string, muts ...domain.DocumentMutation) {
	for _, m := range muts {
		select {
		case h.persist <- persistJob{feature: feature, mutation: m}:
		default:
			log.Warn().Str("feature", feature).Str("key", m.Key).Msg("persist queue full, dropping mutation")
		}
	}
}

// persister writes mutations one at a time, in the order they were made.
func (h *Hotel) persister() {
	for job := range h.persist {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.CollaboratorTimeout)
		err := h.documents.PersistDocumentMutation(ctx, job.feature, job.mutation)
		cancel()
		if err != nil {
			log.Error().Err(err).
				Str("feature", job.feature).
				Str("op", string(job.mutation.Op)).
				Str("key", job.mutation.Key).
				Msg("persisting document mutation")
		}
	}
}

func (h *Hotel) stats() Stats {
	s := Stats{
		Rooms:       h.rooms.Len(),
		Connections: h.out.Len(),
		Players:     h.presence.Len(),
		Listeners:   make(map[string]int, len(h.sessions)),
	}
	for name, sess := range h.sessions {
		s.Listeners[name] = sess.Len()
	}
	return s
}

func (h *Hotel) onConnect(conn Connection) {
	h.out.Attach(conn)
	h.out.SendToOne(conn.ID(), OnlinePlayers{Players: h.presence.All()})
	log.Debug().Str("conn", conn.ID()).Str("addr", conn.RemoteAddr()).Msg("connected")
}

func (h *Hotel) sendError(connID string, err error) {
	h.out.SendToOne(connID, errorEvent(err))
}

func (h *Hotel) broadcastOnlinePlayers() {
	h.out.SendToAll(OnlinePlayers{Players: h.presence.All()})
}

func (h *Hotel) broadcastLobbies(kind GameKind) {
	h.out.SendToAll(LobbiesUpdate{GameKind: kind, Lobbies: h.rooms.ListOpenRooms(kind)})
}

func (h *Hotel) broadcastRoomState(room *Room) {
	frame := h.out.FullStateSnapshot(room)
	if frame == nil {
		return
	}
	for _, m := range room.members {
		h.out.SendFrame(m.ConnID(), frame)
	}
}

// displayName is the registered name for connID, or fallback for
// connections that never registered.
func (h *Hotel) displayName(connID, fallback string) string {
	if identity, ok := h.presence.Lookup(connID); ok && identity.Name != "" {
		return identity.Name
	}
	return fallback
}
