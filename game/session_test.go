package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSession_JoinSyncsAndAnnounces(t *testing.T) {
	hs := newHarness(t, Config{})
	a := hs.register("a", "Ada")
	b := hs.connect("b")

	hs.send(a, &SessionJoin{Feature: FeatureLoop})
	var sync struct {
		State     loopSnapshot `json:"state"`
		Listeners []string     `json:"listeners"`
	}
	a.last(t, "loop-sync", &sync)
	assert.Equal(t, []string{"Ada"}, sync.Listeners)
	assert.Equal(t, 120, sync.State.BPM)
	assert.Len(t, sync.State.Grid["kick"], loopDefaultBars*loopStepsPerBar)

	hs.send(b, &SessionJoin{Feature: FeatureLoop})
	var roster SessionListeners
	a.last(t, "loop-listeners", &roster)
	assert.Equal(t, []string{"Ada", "Guest"}, roster.Listeners, "unregistered listeners get a placeholder")

	hs.send(b, &SessionLeave{Feature: FeatureLoop})
	a.last(t, "loop-listeners", &roster)
	assert.Equal(t, []string{"Ada"}, roster.Listeners)
	assert.Equal(t, 1, hs.h.loop.Len())
}

func TestSession_NonListenersCannotMutate(t *testing.T) {
	hs := newHarness(t, Config{})
	listener := hs.connect("a")
	outsider := hs.connect("b")
	hs.send(listener, &SessionJoin{Feature: FeatureLoop})

	hs.send(outsider, &LoopSetBPM{BPM: 90})
	assert.Empty(t, listener.named(t, "loop-bpm-updated"))
	assert.Equal(t, 120, hs.h.loop.Document().bpm)

	hs.send(listener, &LoopSetBPM{BPM: 90})
	var bpm LoopBPMUpdated
	listener.last(t, "loop-bpm-updated", &bpm)
	assert.Equal(t, 90, bpm.BPM)
	assert.Empty(t, outsider.named(t, "loop-bpm-updated"))
}

func TestSession_InvalidMutationsAreDropped(t *testing.T) {
	hs := newHarness(t, Config{})
	a := hs.connect("a")
	hs.send(a, &SessionJoin{Feature: FeatureLoop})
	a.reset()

	hs.send(a, &LoopSetBPM{BPM: 5})
	hs.send(a, &LoopToggleCell{Instrument: "theremin", Step: 0})
	hs.send(a, &LoopToggleCell{Instrument: "kick", Step: 99})
	hs.send(a, &LoopSetBars{Bars: 12})
	assert.Empty(t, a.received(t))
}

func TestSession_LoopRewriteResyncs(t *testing.T) {
	hs := newHarness(t, Config{})
	a := hs.connect("a")
	b := hs.connect("b")
	hs.send(a, &SessionJoin{Feature: FeatureLoop})
	hs.send(b, &SessionJoin{Feature: FeatureLoop})

	hs.send(a, &LoopToggleCell{Instrument: "kick", Step: 3})
	var cell LoopCellUpdated
	b.last(t, "loop-cell-updated", &cell)
	assert.Equal(t, LoopCellUpdated{Instrument: "kick", Step: 3, Value: 1}, cell)

	b.reset()
	hs.send(a, &LoopSetBars{Bars: 2})
	var sync struct {
		State loopSnapshot `json:"state"`
	}
	b.last(t, "loop-sync", &sync)
	assert.Equal(t, 2, sync.State.Bars)
	assert.Len(t, sync.State.Grid["kick"], 8)
	assert.Equal(t, 1, sync.State.Grid["kick"][3], "steps that still fit survive a resize")

	hs.fresh(a, &LoopClear{})
	b.last(t, "loop-sync", &sync)
	assert.NotContains(t, sync.State.Grid["kick"], 1)
	assert.Equal(t, 2, sync.State.Bars)
}

func TestSession_SoundboardAndClub(t *testing.T) {
	hs := newHarness(t, Config{})
	a := hs.register("a", "Ada")
	b := hs.connect("b")
	hs.send(a, &SessionJoin{Feature: FeatureSoundboard})
	hs.send(b, &SessionJoin{Feature: FeatureSoundboard})

	hs.send(a, &SoundboardPlay{SoundID: "vineboom"})
	var played SoundPlayed
	b.last(t, "soundboard-played", &played)
	assert.Equal(t, SoundPlayed{SoundID: "vineboom", PlayerName: "Ada", Timestamp: hs.clock.UnixMilli()}, played)

	hs.fresh(a, &SoundboardPlay{SoundID: "airhorn"})
	assert.Len(t, b.named(t, "soundboard-played"), 1)

	hs.advance(2 * time.Second)
	hs.send(a, &SessionJoin{Feature: FeatureClub})
	hs.send(a, &ClubQueue{VideoID: "dQw4w9WgXcQ"})
	hs.send(a, &ClubQueue{VideoID: "https://www.youtube.com/watch?v=9bZkp7q19f0"})
	var club ClubUpdate
	a.last(t, "club-update", &club)
	require.NotNil(t, club.Current)
	assert.Equal(t, "dQw4w9WgXcQ", club.Current.VideoID)
	assert.Equal(t, "Ada", club.Current.QueuedBy)
	require.Len(t, club.Queue, 1)

	hs.fresh(a, &ClubSkip{})
	a.last(t, "club-update", &club)
	assert.Equal(t, "9bZkp7q19f0", club.Current.VideoID)
	assert.Empty(t, club.Queue)

	hs.send(a, &ClubPause{Playing: false})
	a.last(t, "club-update", &club)
	assert.False(t, club.IsPlaying)

	hs.fresh(a, &ClubSkip{})
	a.last(t, "club-update", &club)
	assert.Nil(t, club.Current)
}

func strokePayload(t *testing.T, s PictoStroke) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return b
}

func TestPicto_HydratesOnceAndHoldsJoiners(t *testing.T) {
	hs := newHarness(t, Config{})
	stored := []domain.DocumentItem{
		{Collection: pictoStrokes, Key: "old", Payload: strokePayload(t, PictoStroke{StrokeID: "old", Tool: "pen"})},
	}
	hs.documents.On("LoadDocumentSnapshot", mock.Anything, FeaturePicto).Return(stored, nil).Once()

	a := hs.connect("a")
	b := hs.connect("b")

	// both join before the load lands
	hs.h.handle(envelope{kind: eventEnvelope, conn: a, event: &SessionJoin{Feature: FeaturePicto}})
	hs.h.handle(envelope{kind: eventEnvelope, conn: b, event: &SessionJoin{Feature: FeaturePicto}})
	assert.Equal(t, pictoHydrating, hs.h.pictoState)
	assert.Zero(t, hs.h.picto.Len())

	hs.settle()
	assert.Equal(t, pictoReady, hs.h.pictoState)
	assert.Equal(t, 2, hs.h.picto.Len())

	var sync struct {
		State pictoSnapshot `json:"state"`
	}
	b.last(t, "picto-sync", &sync)
	require.Len(t, sync.State.Strokes, 1)
	assert.Equal(t, "old", sync.State.Strokes[0].StrokeID)

	c := hs.connect("c")
	hs.send(c, &SessionJoin{Feature: FeaturePicto})
	assert.Equal(t, 3, hs.h.picto.Len())
	hs.documents.AssertNumberOfCalls(t, "LoadDocumentSnapshot", 1)
}

func TestPicto_LoadFailureStartsEmpty(t *testing.T) {
	hs := newHarness(t, Config{})
	hs.documents.On("LoadDocumentSnapshot", mock.Anything, FeaturePicto).Return(nil, errors.New("db down")).Once()

	a := hs.connect("a")
	hs.send(a, &SessionJoin{Feature: FeaturePicto})

	assert.Equal(t, pictoReady, hs.h.pictoState)
	assert.True(t, hs.h.picto.Has("a"))
}

func TestPicto_DisconnectWhileHydrating(t *testing.T) {
	hs := newHarness(t, Config{})
	hs.documents.On("LoadDocumentSnapshot", mock.Anything, FeaturePicto).Return(nil, nil).Once()

	a := hs.connect("a")
	hs.h.handle(envelope{kind: eventEnvelope, conn: a, event: &SessionJoin{Feature: FeaturePicto}})
	hs.h.handle(envelope{kind: disconnectEnvelope, conn: a})
	hs.settle()

	assert.False(t, hs.h.picto.Has("a"))
	assert.Empty(t, hs.h.pictoWaiting)
}

func readyPicto(t *testing.T, hs *harness, ids ...string) []*fakeConn {
	t.Helper()
	hs.documents.On("LoadDocumentSnapshot", mock.Anything, FeaturePicto).Return(nil, nil).Maybe()
	var conns []*fakeConn
	for _, id := range ids {
		c := hs.connect(id)
		hs.send(c, &SessionJoin{Feature: FeaturePicto})
		conns = append(conns, c)
	}
	return conns
}

func TestPicto_StrokeLifecycle(t *testing.T) {
	hs := newHarness(t, Config{})
	conns := readyPicto(t, hs, "a", "b")
	a, b := conns[0], conns[1]

	hs.send(a, &PictoStrokeSegment{StrokeID: "s1", Color: "#FF0000", Size: 6, Points: []Point{{X: 0.1, Y: 0.1}, {X: 2, Y: -1}}})
	assert.Empty(t, a.named(t, "picto-stroke-segment"), "the drawer already shows its own stroke")
	var seg PictoSegment
	b.last(t, "picto-stroke-segment", &seg)
	assert.Equal(t, []Point{{X: 0.1, Y: 0.1}, {X: 1, Y: 0}}, seg.Points)
	assert.Equal(t, "#ff0000", seg.Color)

	hs.send(b, &PictoStrokeEnd{StrokeID: "s1"})
	assert.Empty(t, b.named(t, "picto-stroke-commit"), "only the author can end a stroke")

	hs.send(a, &PictoStrokeEnd{StrokeID: "s1"})
	var commit PictoStrokeCommitted
	b.last(t, "picto-stroke-commit", &commit)
	assert.Equal(t, "s1", commit.StrokeID)
	assert.Len(t, commit.Points, 2)

	jobs := hs.persisted()
	require.Len(t, jobs, 1)
	assert.Equal(t, FeaturePicto, jobs[0].feature)
	assert.Equal(t, domain.OpPut, jobs[0].mutation.Op)
	assert.Equal(t, "s1", jobs[0].mutation.Key)

	hs.send(b, &PictoUndo{StrokeID: "s1"})
	assert.Empty(t, a.named(t, "picto-undo"), "nobody undoes someone else's stroke")

	hs.fresh(a, &PictoUndo{StrokeID: "s1"})
	b.last(t, "picto-undo", &PictoUndone{})
	hs.send(a, &PictoRedo{})
	var redone PictoRedone
	b.last(t, "picto-redo", &redone)
	assert.Equal(t, "s1", redone.Stroke.StrokeID)

	jobs = hs.persisted()
	require.Len(t, jobs, 2)
	assert.Equal(t, domain.OpDelete, jobs[0].mutation.Op)
	assert.Equal(t, domain.OpPut, jobs[1].mutation.Op)

	hs.fresh(a, &PictoClear{})
	jobs = hs.persisted()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.DocumentMutation{Op: domain.OpClear, Collection: pictoStrokes}, jobs[0].mutation)
	assert.Empty(t, hs.h.picto.Document().strokes)
}

func TestPicto_ShapesAndMessages(t *testing.T) {
	hs := newHarness(t, Config{})
	conns := readyPicto(t, hs, "a")
	a := conns[0]
	hs.persisted()

	hs.send(a, &PictoShape{Tool: "rect", Start: &Point{X: 0.2, Y: 0.2}, End: &Point{X: 0.4, Y: 0.5}})
	var shape PictoShapeDrawn
	a.last(t, "picto-shape", &shape)
	assert.Equal(t, "id-1", shape.StrokeID)
	assert.Equal(t, "Anon", shape.AuthorName)

	hs.send(a, &PictoShape{Tool: "star", Start: &Point{}, End: &Point{}})
	assert.Len(t, a.named(t, "picto-shape"), 1)

	hs.send(a, &PictoMessage{Text: "  hello <there>  "})
	var msg PictoMessagePosted
	a.last(t, "picto-message", &msg)
	assert.Equal(t, "hello there", msg.Text)
	assert.Equal(t, "id-2", msg.ID)

	jobs := hs.persisted()
	require.Len(t, jobs, 2)
	assert.Equal(t, pictoStrokes, jobs[0].mutation.Collection)
	assert.Equal(t, pictoMessages, jobs[1].mutation.Collection)
}

func TestPicto_DisconnectCommitsStrokeInFlight(t *testing.T) {
	hs := newHarness(t, Config{})
	conns := readyPicto(t, hs, "a", "b")
	a, b := conns[0], conns[1]

	hs.send(a, &PictoCursor{X: f(0.5), Y: f(0.5)})
	var cursor PictoCursorMoved
	b.last(t, "picto-cursor", &cursor)
	assert.Equal(t, "a", cursor.ID)

	hs.send(a, &PictoStrokeSegment{StrokeID: "s1", Points: []Point{{X: 0.3, Y: 0.3}}})
	hs.disconnect(a)

	var commit PictoStrokeCommitted
	b.last(t, "picto-stroke-commit", &commit)
	assert.Equal(t, "s1", commit.StrokeID)
	var hidden PictoCursorHidden
	b.last(t, "picto-cursor-hide", &hidden)
	assert.Equal(t, "a", hidden.ID)

	jobs := hs.persisted()
	require.Len(t, jobs, 1)
	assert.Equal(t, "s1", jobs[0].mutation.Key)
	assert.Empty(t, hs.h.picto.Document().inProgress)
	assert.Empty(t, hs.h.picto.Document().inFlight)
}

func TestPicto_RejectedEditsDrawNoID(t *testing.T) {
	p := NewPicto()
	drawn := 0
	next := func() string {
		drawn++
		return fmt.Sprintf("n%d", drawn)
	}

	assert.Nil(t, p.Shape("a", "Ada", next, PictoShape{Tool: "star", Start: &Point{}, End: &Point{}}))
	assert.Nil(t, p.Shape("a", "Ada", next, PictoShape{Tool: "line", Start: &Point{}}))
	assert.Nil(t, p.Message(next, "Ada", "   ", time.Unix(1, 0)))
	assert.Zero(t, drawn)

	change := p.Shape("a", "Ada", next, PictoShape{Tool: "line", Start: &Point{}, End: &Point{X: 1, Y: 1}})
	require.NotNil(t, change)
	assert.Equal(t, "n1", change.event.(PictoShapeDrawn).StrokeID)
	assert.Equal(t, 1, drawn)
}

func TestPicto_StrokesInFlightAreCapped(t *testing.T) {
	p := NewPicto()
	var ids []string
	for i := range pictoMaxInFlight + 3 {
		id := fmt.Sprintf("s%d", i)
		ids = append(ids, id)
		require.NotNil(t, p.Segment("a", "Ada", PictoStrokeSegment{StrokeID: id, Points: []Point{{X: 0.1, Y: 0.1}}}))
	}
	require.NotNil(t, p.Segment("b", "Bob", PictoStrokeSegment{StrokeID: "b0", Points: []Point{{X: 0.2, Y: 0.2}}}))

	assert.Equal(t, ids[3:], p.inFlight["a"])
	assert.Len(t, p.inProgress, pictoMaxInFlight+1)
	assert.NotContains(t, p.inProgress, "s0")
	assert.Nil(t, p.EndStroke("a", "s0"), "the oldest open stroke was dropped")

	require.NotNil(t, p.EndStroke("a", ids[len(ids)-1]))
	assert.Len(t, p.inFlight["a"], pictoMaxInFlight-1)
	assert.Equal(t, []string{"b0"}, p.inFlight["b"])

	p.abandon("a")
	assert.NotContains(t, p.inFlight, "a")
	assert.Len(t, p.inProgress, 1)
}

func TestPicto_ClearKeepsOthersRedo(t *testing.T) {
	p := NewPicto()
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("k%d", n)
	}
	line := PictoShape{Tool: "line", Start: &Point{}, End: &Point{X: 1, Y: 1}}
	require.NotNil(t, p.Shape("a", "Ada", next, line))
	require.NotNil(t, p.Shape("b", "Bob", next, line))
	require.NotNil(t, p.Undo("a", "k1"))
	require.NotNil(t, p.Undo("b", "k2"))

	require.NotNil(t, p.Clear("a"))
	assert.Nil(t, p.Redo("a"))
	redone := p.Redo("b")
	require.NotNil(t, redone)
	assert.Equal(t, "k2", redone.event.(PictoRedone).Stroke.StrokeID)
}

func TestPicto_RestoreKeepsOrderAndCaps(t *testing.T) {
	p := NewPicto()
	var items []domain.DocumentItem
	for i := range pictoMaxStrokes + 5 {
		id := fmt.Sprintf("s%d", i)
		items = append(items, domain.DocumentItem{Collection: pictoStrokes, Key: id, Payload: strokePayload(t, PictoStroke{StrokeID: id})})
	}
	items = append(items, domain.DocumentItem{Collection: pictoStrokes, Key: "bad", Payload: json.RawMessage(`{"strokeId":`)})
	p.restore(items)

	require.Len(t, p.strokes, pictoMaxStrokes)
	assert.Equal(t, items[5].Key, p.strokes[0].StrokeID)
	assert.Equal(t, items[pictoMaxStrokes+4].Key, p.strokes[pictoMaxStrokes-1].StrokeID)
}
