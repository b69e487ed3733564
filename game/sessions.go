package game

import (
	"context"
	"slices"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/rs/zerolog/log"
)

func (h *Hotel) joinSession(conn Connection, feature string) {
	if feature == FeaturePicto {
		h.joinPicto(conn)
		return
	}
	sess, ok := h.sessions[feature]
	if !ok {
		return
	}
	sess.Join(conn, h.displayName(conn.ID(), "Guest"))
}

func (h *Hotel) leaveSession(connID, feature string) {
	if feature == FeaturePicto {
		h.pictoWaiting = slices.DeleteFunc(h.pictoWaiting, func(c Connection) bool { return c.ID() == connID })
		if h.picto.Has(connID) {
			h.abandonPicto(connID)
		}
	}
	if sess, ok := h.sessions[feature]; ok {
		sess.Leave(connID)
	}
}

// joinPicto loads the stored board the first time anyone opens it. Joiners
// that arrive while the load is in flight are held back and get the loaded
// board once it lands.
func (h *Hotel) joinPicto(conn Connection) {
	switch h.pictoState {
	case pictoReady:
		h.picto.Join(conn, h.displayName(conn.ID(), "Anon"))
	case pictoHydrating:
		if !slices.ContainsFunc(h.pictoWaiting, func(c Connection) bool { return c.ID() == conn.ID() }) {
			h.pictoWaiting = append(h.pictoWaiting, conn)
		}
	case pictoCold:
		h.pictoState = pictoHydrating
		h.pictoWaiting = append(h.pictoWaiting, conn)
		h.suspend(func(ctx context.Context) func() {
			items, err := h.documents.LoadDocumentSnapshot(ctx, FeaturePicto)
			return func() { h.finishPictoHydration(items, err) }
		})
	}
}

func (h *Hotel) finishPictoHydration(items []domain.DocumentItem, err error) {
	if err != nil {
		log.Error().Err(err).Str("feature", FeaturePicto).Msg("loading board, starting empty")
	} else {
		h.picto.Document().restore(items)
		log.Info().Str("feature", FeaturePicto).Int("items", len(items)).Msg("board loaded")
	}
	h.pictoState = pictoReady

	waiting := h.pictoWaiting
	h.pictoWaiting = nil
	for _, conn := range waiting {
		if h.out.Live(conn.ID()) {
			h.picto.Join(conn, h.displayName(conn.ID(), "Anon"))
		}
	}
}

// abandonPicto commits whatever connID was still drawing and hides its
// cursor for everyone else.
func (h *Hotel) abandonPicto(connID string) {
	for _, change := range h.picto.Document().abandon(connID) {
		h.picto.Notify("", change.event)
		h.enqueuePersist(FeaturePicto, change.mutations...)
	}
	h.picto.Notify(connID, PictoCursorHidden{ID: connID})
}

// sessionEvent routes the feature specific mutations. Every one of them is
// dropped unless the sender is a listener of that feature.
func (h *Hotel) sessionEvent(conn Connection, ev ClientEvent) {
	id := conn.ID()
	now := h.now()

	switch e := ev.(type) {
	case *SoundboardPlay:
		h.soundboard.Mutate(id, func(s *Soundboard, name string) ServerEvent {
			return s.Play(e.SoundID, name, now)
		})

	case *ClubQueue:
		h.club.Mutate(id, func(c *Club, name string) ServerEvent { return c.Enqueue(e.VideoID, name, now) })
	case *ClubPause:
		h.club.Mutate(id, func(c *Club, _ string) ServerEvent { return c.SetPlaying(e.Playing) })
	case *ClubSkip:
		h.club.Mutate(id, func(c *Club, _ string) ServerEvent { return c.Skip(now) })

	case *LoopToggleCell:
		h.loop.Mutate(id, func(l *LoopMachine, _ string) ServerEvent { return l.ToggleCell(e.Instrument, e.Step) })
	case *LoopSetBPM:
		h.loop.Mutate(id, func(l *LoopMachine, _ string) ServerEvent { return l.SetBPM(e.BPM) })
	case *LoopSetBars:
		h.loop.Rewrite(id, func(l *LoopMachine) bool { return l.SetBars(e.Bars) })
	case *LoopPlayPause:
		h.loop.Mutate(id, func(l *LoopMachine, _ string) ServerEvent { return l.TogglePlaying() })
	case *LoopSetSynth:
		h.loop.Mutate(id, func(l *LoopMachine, _ string) ServerEvent { return l.SetSynth(*e) })
	case *LoopSetBass:
		h.loop.Mutate(id, func(l *LoopMachine, _ string) ServerEvent { return l.SetBass(*e) })
	case *LoopSetMasterVolume:
		h.loop.Mutate(id, func(l *LoopMachine, _ string) ServerEvent { return l.SetMasterVolume(e.MasterVolume) })
	case *LoopClear:
		h.loop.Rewrite(id, func(l *LoopMachine) bool { return l.Clear() })

	case *PictoCursor:
		h.picto.MutateLive(id, func(p *Picto, name string) ServerEvent { return p.Cursor(id, name, e.X, e.Y) })
	case *PictoCursorHide:
		h.picto.MutateLive(id, func(p *Picto, _ string) ServerEvent { return p.CursorHide(id) })
	case *PictoStrokeSegment:
		h.picto.MutateLive(id, func(p *Picto, name string) ServerEvent { return p.Segment(id, name, *e) })
	case *PictoStrokeEnd:
		h.pictoEdit(id, func(p *Picto, _ string) *pictoChange { return p.EndStroke(id, e.StrokeID) })
	case *PictoShape:
		h.pictoEdit(id, func(p *Picto, name string) *pictoChange { return p.Shape(id, name, h.newID, *e) })
	case *PictoUndo:
		h.pictoEdit(id, func(p *Picto, _ string) *pictoChange { return p.Undo(id, e.StrokeID) })
	case *PictoRedo:
		h.pictoEdit(id, func(p *Picto, _ string) *pictoChange { return p.Redo(id) })
	case *PictoClear:
		h.pictoEdit(id, func(p *Picto, _ string) *pictoChange { return p.Clear(id) })
	case *PictoMessage:
		h.pictoEdit(id, func(p *Picto, name string) *pictoChange { return p.Message(h.newID, name, e.Text, now) })

	default:
		log.Warn().Str("event", ev.EventName()).Msg("no handler for event")
	}
}

// pictoEdit applies a committed board change and queues its writes.
func (h *Hotel) pictoEdit(connID string, edit func(p *Picto, name string) *pictoChange) {
	var muts []domain.DocumentMutation
	h.picto.Mutate(connID, func(p *Picto, name string) ServerEvent {
		change := edit(p, name)
		if change == nil {
			return nil
		}
		muts = change.mutations
		return change.event
	})
	h.enqueuePersist(FeaturePicto, muts...)
}
