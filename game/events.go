package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blusaccount/maexchen-online/domain"
)

// ClientEvent is the closed set of messages a client may send. Anything
// that does not decode into one of these is rejected at the socket.
type ClientEvent interface {
	EventName() string
	isClientEvent()
}

type client struct{}

func (client) isClientEvent() {}

// --- presence & rooms ---

type RegisterPlayer struct {
	client
	Name      string            `json:"name"`
	Character *domain.Character `json:"character"`
	Game      string            `json:"game"`
}

type GetLobbies struct {
	client
	GameKind string `json:"gameKind"`
}

type CreateRoom struct {
	client
	PlayerName string            `json:"playerName"`
	Character  *domain.Character `json:"character"`
	GameKind   string            `json:"gameKind"`
}

type JoinRoom struct {
	client
	Code       string            `json:"code"`
	PlayerName string            `json:"playerName"`
	Character  *domain.Character `json:"character"`
}

type LeaveRoom struct{ client }

type StartGame struct{ client }

type RequestRoomState struct{ client }

type ChatMessage struct {
	client
	Text string `json:"text"`
}

type Emote struct {
	client
	EmoteID string `json:"emoteId"`
}

type DrawingNote struct {
	client
	DataURL string `json:"dataURL"`
	Target  string `json:"target"`
}

type WatchPartyLoad struct {
	client
	VideoID string `json:"videoId"`
}

type WatchPartyPlayPause struct {
	client
	State string   `json:"state"`
	Time  *float64 `json:"time"`
}

type WatchPartySeek struct {
	client
	Time *float64 `json:"time"`
}

type WatchPartyRequestSync struct{ client }

// --- money ---

type GetBalance struct{ client }

type SlotSpin struct {
	client
	Bet int64 `json:"bet"`
}

type MakeItRain struct{ client }

type GetPlayerCharacter struct {
	client
	Name string `json:"name"`
}

// --- shared sessions ---

type SessionJoin struct {
	client
	Feature string `json:"-"`
}

type SessionLeave struct {
	client
	Feature string `json:"-"`
}

type SoundboardPlay struct {
	client
	SoundID string `json:"soundId"`
}

type ClubQueue struct {
	client
	VideoID string `json:"videoId"`
}

type ClubPause struct {
	client
	Playing bool `json:"playing"`
}

type ClubSkip struct{ client }

type LoopToggleCell struct {
	client
	Instrument string `json:"instrument"`
	Step       int    `json:"step"`
}

type LoopSetBPM struct {
	client
	BPM int `json:"bpm"`
}

type LoopSetBars struct {
	client
	Bars int `json:"bars"`
}

type LoopPlayPause struct{ client }

type LoopSetSynth struct {
	client
	Waveform  string   `json:"waveform"`
	Frequency *float64 `json:"frequency"`
	Cutoff    *float64 `json:"cutoff"`
	Resonance *float64 `json:"resonance"`
	Attack    *float64 `json:"attack"`
	Decay     *float64 `json:"decay"`
	Volume    *float64 `json:"volume"`
}

type LoopSetBass struct {
	client
	Waveform   string   `json:"waveform"`
	Frequency  *float64 `json:"frequency"`
	Cutoff     *float64 `json:"cutoff"`
	Resonance  *float64 `json:"resonance"`
	Attack     *float64 `json:"attack"`
	Decay      *float64 `json:"decay"`
	Distortion *float64 `json:"distortion"`
}

type LoopSetMasterVolume struct {
	client
	MasterVolume *float64 `json:"masterVolume"`
}

type LoopClear struct{ client }

type PictoCursor struct {
	client
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type PictoCursorHide struct{ client }

type PictoStrokeSegment struct {
	client
	StrokeID string  `json:"strokeId"`
	Tool     string  `json:"tool"`
	Color    string  `json:"color"`
	Size     float64 `json:"size"`
	Points   []Point `json:"points"`
}

type PictoStrokeEnd struct {
	client
	StrokeID string `json:"strokeId"`
}

type PictoShape struct {
	client
	Tool  string  `json:"tool"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
	Start *Point  `json:"start"`
	End   *Point  `json:"end"`
}

type PictoUndo struct {
	client
	StrokeID string `json:"strokeId"`
}

type PictoRedo struct{ client }

type PictoClear struct{ client }

type PictoMessage struct {
	client
	Text string `json:"text"`
}

func (RegisterPlayer) EventName() string        { return "register-player" }
func (GetLobbies) EventName() string            { return "get-lobbies" }
func (CreateRoom) EventName() string            { return "create-room" }
func (JoinRoom) EventName() string              { return "join-room" }
func (LeaveRoom) EventName() string             { return "leave-room" }
func (StartGame) EventName() string             { return "start-game" }
func (RequestRoomState) EventName() string      { return "request-room-state" }
func (ChatMessage) EventName() string           { return "chat-message" }
func (Emote) EventName() string                 { return "emote" }
func (DrawingNote) EventName() string           { return "drawing-note" }
func (WatchPartyLoad) EventName() string        { return "watchparty-load" }
func (WatchPartyPlayPause) EventName() string   { return "watchparty-playpause" }
func (WatchPartySeek) EventName() string        { return "watchparty-seek" }
func (WatchPartyRequestSync) EventName() string { return "watchparty-request-sync" }
func (GetBalance) EventName() string            { return "get-balance" }
func (SlotSpin) EventName() string              { return "strictly7s-spin" }
func (MakeItRain) EventName() string            { return "lobby-make-it-rain" }
func (GetPlayerCharacter) EventName() string    { return "get-player-character" }
func (e SessionJoin) EventName() string         { return e.Feature + "-join" }
func (e SessionLeave) EventName() string        { return e.Feature + "-leave" }
func (SoundboardPlay) EventName() string        { return "soundboard-play" }
func (ClubQueue) EventName() string             { return "club-queue" }
func (ClubPause) EventName() string             { return "club-pause" }
func (ClubSkip) EventName() string              { return "club-skip" }
func (LoopToggleCell) EventName() string        { return "loop-toggle-cell" }
func (LoopSetBPM) EventName() string            { return "loop-set-bpm" }
func (LoopSetBars) EventName() string           { return "loop-set-bars" }
func (LoopPlayPause) EventName() string         { return "loop-play-pause" }
func (LoopSetSynth) EventName() string          { return "loop-set-synth" }
func (LoopSetBass) EventName() string           { return "loop-set-bass" }
func (LoopSetMasterVolume) EventName() string   { return "loop-set-master-volume" }
func (LoopClear) EventName() string             { return "loop-clear" }
func (PictoCursor) EventName() string           { return "picto-cursor" }
func (PictoCursorHide) EventName() string       { return "picto-cursor-hide" }
func (PictoStrokeSegment) EventName() string    { return "picto-stroke-segment" }
func (PictoStrokeEnd) EventName() string        { return "picto-stroke-end" }
func (PictoShape) EventName() string            { return "picto-shape" }
func (PictoUndo) EventName() string             { return "picto-undo" }
func (PictoRedo) EventName() string             { return "picto-redo" }
func (PictoClear) EventName() string            { return "picto-clear" }
func (PictoMessage) EventName() string          { return "picto-message" }

var clientEvents = map[string]func() ClientEvent{
	"register-player":         func() ClientEvent { return &RegisterPlayer{} },
	"get-lobbies":             func() ClientEvent { return &GetLobbies{} },
	"create-room":             func() ClientEvent { return &CreateRoom{} },
	"join-room":               func() ClientEvent { return &JoinRoom{} },
	"leave-room":              func() ClientEvent { return &LeaveRoom{} },
	"start-game":              func() ClientEvent { return &StartGame{} },
	"request-room-state":      func() ClientEvent { return &RequestRoomState{} },
	"chat-message":            func() ClientEvent { return &ChatMessage{} },
	"emote":                   func() ClientEvent { return &Emote{} },
	"drawing-note":            func() ClientEvent { return &DrawingNote{} },
	"watchparty-load":         func() ClientEvent { return &WatchPartyLoad{} },
	"watchparty-playpause":    func() ClientEvent { return &WatchPartyPlayPause{} },
	"watchparty-seek":         func() ClientEvent { return &WatchPartySeek{} },
	"watchparty-request-sync": func() ClientEvent { return &WatchPartyRequestSync{} },
	"get-balance":             func() ClientEvent { return &GetBalance{} },
	"strictly7s-spin":         func() ClientEvent { return &SlotSpin{} },
	"lobby-make-it-rain":      func() ClientEvent { return &MakeItRain{} },
	"get-player-character":    func() ClientEvent { return &GetPlayerCharacter{} },
	"soundboard-play":         func() ClientEvent { return &SoundboardPlay{} },
	"club-queue":              func() ClientEvent { return &ClubQueue{} },
	"club-pause":              func() ClientEvent { return &ClubPause{} },
	"club-skip":               func() ClientEvent { return &ClubSkip{} },
	"loop-toggle-cell":        func() ClientEvent { return &LoopToggleCell{} },
	"loop-set-bpm":            func() ClientEvent { return &LoopSetBPM{} },
	"loop-set-bars":           func() ClientEvent { return &LoopSetBars{} },
	"loop-play-pause":         func() ClientEvent { return &LoopPlayPause{} },
	"loop-set-synth":          func() ClientEvent { return &LoopSetSynth{} },
	"loop-set-bass":           func() ClientEvent { return &LoopSetBass{} },
	"loop-set-master-volume":  func() ClientEvent { return &LoopSetMasterVolume{} },
	"loop-clear":              func() ClientEvent { return &LoopClear{} },
	"picto-cursor":            func() ClientEvent { return &PictoCursor{} },
	"picto-cursor-hide":       func() ClientEvent { return &PictoCursorHide{} },
	"picto-stroke-segment":    func() ClientEvent { return &PictoStrokeSegment{} },
	"picto-stroke-end":        func() ClientEvent { return &PictoStrokeEnd{} },
	"picto-shape":             func() ClientEvent { return &PictoShape{} },
	"picto-undo":              func() ClientEvent { return &PictoUndo{} },
	"picto-redo":              func() ClientEvent { return &PictoRedo{} },
	"picto-clear":             func() ClientEvent { return &PictoClear{} },
	"picto-message":           func() ClientEvent { return &PictoMessage{} },
}

func init() {
	for _, feature := range sessionFeatures {
		clientEvents[feature+"-join"] = func() ClientEvent { return &SessionJoin{Feature: feature} }
		clientEvents[feature+"-leave"] = func() ClientEvent { return &SessionLeave{Feature: feature} }
	}
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeClientEvent parses one frame. Unknown event names and payloads that
// do not fit the event's shape are errors.
func DecodeClientEvent(frame []byte) (ClientEvent, error) {
	var wire wireEvent
	if err := json.Unmarshal(frame, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	newEvent, ok := clientEvents[wire.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, wire.Event)
	}
	ev := newEvent()
	data := bytes.TrimSpace(wire.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ev, nil
	}
	if !strings.HasPrefix(string(data), "{") {
		return nil, fmt.Errorf("%w: %s payload is not an object", ErrMalformedEvent, wire.Event)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return ev, nil
}
