package game

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/blusaccount/maexchen-online/domain"
	"github.com/rs/zerolog/log"
)

const (
	pictoMaxStrokes          = 400
	pictoMaxPoints           = 800
	pictoMaxPointsPerSegment = 20
	pictoMaxMessages         = 50
	pictoMaxMessageLength    = 200
	pictoMaxStrokeIDLength   = 80
	pictoMaxInFlight         = 8

	pictoStrokes  = "stroke"
	pictoMessages = "message"
)

var pictoShapes = []string{"line", "rect", "circle"}

type PictoStroke struct {
	StrokeID   string  `json:"strokeId"`
	AuthorID   string  `json:"authorId"`
	AuthorName string  `json:"authorName"`
	Tool       string  `json:"tool"`
	Color      string  `json:"color"`
	Size       float64 `json:"size"`
	Points     []Point `json:"points,omitempty"`
	Start      *Point  `json:"start,omitempty"`
	End        *Point  `json:"end,omitempty"`
}

type PictoChatMessage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Picto is the shared drawing board. Committed strokes and chat messages
// are persisted; strokes in flight and redo stacks only live here.
type Picto struct {
	strokes    []PictoStroke
	inProgress map[string]*PictoStroke
	// stroke ids each author has open, oldest first
	inFlight map[string][]string
	redo     map[string][]PictoStroke
	messages []PictoChatMessage
}

func NewPicto() *Picto {
	return &Picto{
		inProgress: make(map[string]*PictoStroke),
		inFlight:   make(map[string][]string),
		redo:       make(map[string][]PictoStroke),
	}
}

type pictoSnapshot struct {
	Strokes  []PictoStroke      `json:"strokes"`
	Messages []PictoChatMessage `json:"messages"`
}

func (p *Picto) Snapshot() any {
	return pictoSnapshot{
		Strokes:  append([]PictoStroke{}, p.strokes...),
		Messages: append([]PictoChatMessage{}, p.messages...),
	}
}

type PictoCursorMoved struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type PictoCursorHidden struct {
	ID string `json:"id"`
}

type PictoSegment struct {
	StrokeID string  `json:"strokeId"`
	Tool     string  `json:"tool"`
	Color    string  `json:"color"`
	Size     float64 `json:"size"`
	Points   []Point `json:"points"`
}

type PictoStrokeCommitted struct{ PictoStroke }

type PictoShapeDrawn struct{ PictoStroke }

type PictoUndone struct {
	StrokeID string `json:"strokeId"`
	ByID     string `json:"byId"`
}

type PictoRedone struct {
	Stroke PictoStroke `json:"stroke"`
	ByID   string      `json:"byId"`
}

type PictoCleared struct {
	ByID string `json:"byId"`
}

type PictoMessagePosted struct{ PictoChatMessage }

func (PictoCursorMoved) EventName() string     { return "picto-cursor" }
func (PictoCursorHidden) EventName() string    { return "picto-cursor-hide" }
func (PictoSegment) EventName() string         { return "picto-stroke-segment" }
func (PictoStrokeCommitted) EventName() string { return "picto-stroke-commit" }
func (PictoShapeDrawn) EventName() string      { return "picto-shape" }
func (PictoUndone) EventName() string          { return "picto-undo" }
func (PictoRedone) EventName() string          { return "picto-redo" }
func (PictoCleared) EventName() string         { return "picto-clear" }
func (PictoMessagePosted) EventName() string   { return "picto-message" }

// pictoChange is what a committed edit yields: the event for listeners and
// the writes for the document store.
type pictoChange struct {
	event     ServerEvent
	mutations []domain.DocumentMutation
}

func (p *Picto) Cursor(connID, name string, x, y *float64) ServerEvent {
	if x == nil || y == nil {
		return nil
	}
	pt, ok := normalizePoint(&Point{X: *x, Y: *y})
	if !ok {
		return nil
	}
	return PictoCursorMoved{ID: connID, Name: name, X: pt.X, Y: pt.Y}
}

func (p *Picto) CursorHide(connID string) ServerEvent {
	return PictoCursorHidden{ID: connID}
}

// Segment extends a stroke in flight, opening it on first sight. Only the
// author may extend a stroke and a stroke stops growing at its point cap.
// An author holds at most pictoMaxInFlight open strokes; opening one more
// drops the oldest.
func (p *Picto) Segment(connID, name string, ev PictoStrokeSegment) ServerEvent {
	if ev.StrokeID == "" || len(ev.StrokeID) >= pictoMaxStrokeIDLength {
		return nil
	}
	points := sanitizePoints(ev.Points)
	if len(points) == 0 {
		return nil
	}
	tool := "pen"
	if ev.Tool == "eraser" {
		tool = "eraser"
	}
	color, size := sanitizeColor(ev.Color), sanitizeSize(ev.Size)

	stroke, ok := p.inProgress[ev.StrokeID]
	if !ok {
		stroke = &PictoStroke{
			StrokeID:   ev.StrokeID,
			AuthorID:   connID,
			AuthorName: name,
			Tool:       tool,
			Color:      color,
			Size:       size,
		}
		p.open(stroke)
	}
	if stroke.AuthorID != connID || len(stroke.Points)+len(points) > pictoMaxPoints {
		return nil
	}
	stroke.Points = append(stroke.Points, points...)
	return PictoSegment{StrokeID: ev.StrokeID, Tool: tool, Color: color, Size: size, Points: points}
}

func (p *Picto) EndStroke(connID, strokeID string) *pictoChange {
	stroke, ok := p.inProgress[strokeID]
	if !ok || stroke.AuthorID != connID {
		return nil
	}
	p.close(connID, strokeID)
	delete(p.redo, connID)
	muts := p.commit(*stroke)
	return &pictoChange{event: PictoStrokeCommitted{*stroke}, mutations: muts}
}

// Shape commits a finished line, rect or circle. newID is only called once
// the shape is known to be valid.
func (p *Picto) Shape(connID, name string, newID func() string, ev PictoShape) *pictoChange {
	if !slices.Contains(pictoShapes, ev.Tool) {
		return nil
	}
	start, ok := normalizePoint(ev.Start)
	if !ok {
		return nil
	}
	end, ok := normalizePoint(ev.End)
	if !ok {
		return nil
	}
	stroke := PictoStroke{
		StrokeID:   newID(),
		AuthorID:   connID,
		AuthorName: name,
		Tool:       ev.Tool,
		Color:      sanitizeColor(ev.Color),
		Size:       sanitizeSize(ev.Size),
		Start:      &start,
		End:        &end,
	}
	delete(p.redo, connID)
	muts := p.commit(stroke)
	return &pictoChange{event: PictoShapeDrawn{stroke}, mutations: muts}
}

// Undo takes back one of the caller's own strokes.
func (p *Picto) Undo(connID, strokeID string) *pictoChange {
	i := slices.IndexFunc(p.strokes, func(s PictoStroke) bool {
		return s.StrokeID == strokeID && s.AuthorID == connID
	})
	if i < 0 {
		return nil
	}
	removed := p.strokes[i]
	p.strokes = slices.Delete(p.strokes, i, i+1)
	p.redo[connID] = append(p.redo[connID], removed)
	return &pictoChange{
		event:     PictoUndone{StrokeID: strokeID, ByID: connID},
		mutations: []domain.DocumentMutation{{Op: domain.OpDelete, Collection: pictoStrokes, Key: strokeID}},
	}
}

func (p *Picto) Redo(connID string) *pictoChange {
	stack := p.redo[connID]
	if len(stack) == 0 {
		return nil
	}
	stroke := stack[len(stack)-1]
	p.redo[connID] = stack[:len(stack)-1]
	muts := p.commit(stroke)
	return &pictoChange{event: PictoRedone{Stroke: stroke, ByID: connID}, mutations: muts}
}

// Clear wipes every stroke, in flight or committed, and the caller's redo
// history. Other players keep theirs. Chat messages survive.
func (p *Picto) Clear(connID string) *pictoChange {
	p.strokes = nil
	clear(p.inProgress)
	clear(p.inFlight)
	delete(p.redo, connID)
	return &pictoChange{
		event:     PictoCleared{ByID: connID},
		mutations: []domain.DocumentMutation{{Op: domain.OpClear, Collection: pictoStrokes}},
	}
}

func (p *Picto) Message(newID func() string, name, raw string, now time.Time) *pictoChange {
	text := sanitizeText(raw, pictoMaxMessageLength)
	if text == "" {
		return nil
	}
	msg := PictoChatMessage{ID: newID(), Name: name, Text: text, Timestamp: now.UnixMilli()}
	p.messages = append(p.messages, msg)

	muts := []domain.DocumentMutation{put(pictoMessages, msg.ID, msg)}
	if over := len(p.messages) - pictoMaxMessages; over > 0 {
		for _, old := range p.messages[:over] {
			muts = append(muts, domain.DocumentMutation{Op: domain.OpDelete, Collection: pictoMessages, Key: old.ID})
		}
		p.messages = slices.Clone(p.messages[over:])
	}
	return &pictoChange{event: PictoMessagePosted{msg}, mutations: muts}
}

// abandon commits every stroke connID still has in flight so the others
// keep what they already saw, and forgets its redo history.
func (p *Picto) abandon(connID string) []pictoChange {
	var changes []pictoChange
	for id, stroke := range p.inProgress {
		if stroke.AuthorID != connID {
			continue
		}
		p.close(connID, id)
		if len(stroke.Points) == 0 {
			continue
		}
		muts := p.commit(*stroke)
		changes = append(changes, pictoChange{event: PictoStrokeCommitted{*stroke}, mutations: muts})
	}
	delete(p.redo, connID)
	return changes
}

func (p *Picto) open(stroke *PictoStroke) {
	author := stroke.AuthorID
	if open := p.inFlight[author]; len(open) >= pictoMaxInFlight {
		delete(p.inProgress, open[0])
		p.inFlight[author] = open[1:]
	}
	p.inProgress[stroke.StrokeID] = stroke
	p.inFlight[author] = append(p.inFlight[author], stroke.StrokeID)
}

func (p *Picto) close(author, strokeID string) {
	delete(p.inProgress, strokeID)
	open := slices.DeleteFunc(p.inFlight[author], func(id string) bool { return id == strokeID })
	if len(open) == 0 {
		delete(p.inFlight, author)
		return
	}
	p.inFlight[author] = open
}

func (p *Picto) releaseConn(connID string) {
	delete(p.redo, connID)
}

// commit appends a finished stroke, trimming the oldest beyond the cap.
func (p *Picto) commit(stroke PictoStroke) []domain.DocumentMutation {
	p.strokes = append(p.strokes, stroke)
	muts := []domain.DocumentMutation{put(pictoStrokes, stroke.StrokeID, stroke)}
	if over := len(p.strokes) - pictoMaxStrokes; over > 0 {
		for _, old := range p.strokes[:over] {
			muts = append(muts, domain.DocumentMutation{Op: domain.OpDelete, Collection: pictoStrokes, Key: old.StrokeID})
		}
		p.strokes = slices.Clone(p.strokes[over:])
	}
	return muts
}

// restore loads persisted items in front of whatever the board already has.
func (p *Picto) restore(items []domain.DocumentItem) {
	var strokes []PictoStroke
	var messages []PictoChatMessage
	for _, item := range items {
		switch item.Collection {
		case pictoStrokes:
			var s PictoStroke
			if err := json.Unmarshal(item.Payload, &s); err != nil {
				log.Warn().Err(err).Str("key", item.Key).Msg("skipping stored stroke")
				continue
			}
			strokes = append(strokes, s)
		case pictoMessages:
			var m PictoChatMessage
			if err := json.Unmarshal(item.Payload, &m); err != nil {
				log.Warn().Err(err).Str("key", item.Key).Msg("skipping stored message")
				continue
			}
			messages = append(messages, m)
		}
	}
	p.strokes = append(strokes, p.strokes...)
	if over := len(p.strokes) - pictoMaxStrokes; over > 0 {
		p.strokes = p.strokes[over:]
	}
	p.messages = append(messages, p.messages...)
	if over := len(p.messages) - pictoMaxMessages; over > 0 {
		p.messages = p.messages[over:]
	}
}

func sanitizePoints(raw []Point) []Point {
	if len(raw) > pictoMaxPointsPerSegment {
		raw = raw[:pictoMaxPointsPerSegment]
	}
	out := make([]Point, 0, len(raw))
	for i := range raw {
		if pt, ok := normalizePoint(&raw[i]); ok {
			out = append(out, pt)
		}
	}
	return out
}

func put(collection, key string, v any) domain.DocumentMutation {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("encoding document item")
	}
	return domain.DocumentMutation{Op: domain.OpPut, Collection: collection, Key: key, Payload: payload}
}
