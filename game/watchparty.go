package game

import (
	"math"
	"slices"
	"time"

	"github.com/blusaccount/maexchen-online/domain"
)

type watchPartyViewer struct {
	connID    string
	Name      string            `json:"name"`
	Character *domain.Character `json:"character,omitempty"`
}

// watchParty is the state of an active watch party room. People may keep
// joining after the start; every member is a viewer.
type watchParty struct {
	viewers   []watchPartyViewer
	videoID   string
	state     string
	position  float64
	updatedAt time.Time
}

func newWatchParty(members []Member) GameState {
	w := &watchParty{state: "paused"}
	for _, m := range members {
		w.AddPlayer(m)
	}
	return w
}

func (w *watchParty) AddPlayer(m Member) {
	w.viewers = append(w.viewers, watchPartyViewer{connID: m.ConnID(), Name: m.Name, Character: m.Character})
}

func (w *watchParty) Forfeit(m Member) {
	w.viewers = slices.DeleteFunc(w.viewers, func(v watchPartyViewer) bool { return v.connID == m.ConnID() })
}

type watchPartySnapshot struct {
	Players []watchPartyViewer `json:"players"`
	VideoID string             `json:"videoId,omitempty"`
	State   string             `json:"state"`
	Time    float64            `json:"time"`
}

func (w *watchParty) Snapshot() any {
	return watchPartySnapshot{
		Players: append([]watchPartyViewer{}, w.viewers...),
		VideoID: w.videoID,
		State:   w.state,
		Time:    w.position,
	}
}

type WatchPartyVideo struct {
	VideoID string  `json:"videoId"`
	State   string  `json:"state"`
	Time    float64 `json:"time"`
}

type WatchPartySync struct {
	State     string  `json:"state"`
	Time      float64 `json:"time"`
	UpdatedAt int64   `json:"updatedAt"`
}

func (WatchPartyVideo) EventName() string { return "watchparty-video" }
func (WatchPartySync) EventName() string  { return "watchparty-sync" }

// Load switches to a new video, paused at the start.
func (w *watchParty) Load(rawVideoID string, now time.Time) (ServerEvent, bool) {
	id, ok := validateYouTubeID(rawVideoID)
	if !ok {
		return nil, false
	}
	w.videoID, w.state, w.position, w.updatedAt = id, "paused", 0, now
	return WatchPartyVideo{VideoID: id, State: w.state, Time: 0}, true
}

func (w *watchParty) PlayPause(state string, at *float64, now time.Time) (ServerEvent, bool) {
	if w.videoID == "" {
		return nil, false
	}
	w.state = "paused"
	if state == "playing" {
		w.state = "playing"
	}
	w.position = 0
	if at != nil && finite(*at) {
		w.position = math.Max(0, *at)
	}
	w.updatedAt = now
	return w.sync(), true
}

func (w *watchParty) Seek(at *float64, now time.Time) (ServerEvent, bool) {
	if w.videoID == "" || at == nil || !finite(*at) {
		return nil, false
	}
	w.position = math.Max(0, *at)
	w.updatedAt = now
	return w.sync(), true
}

// Current is what a late joiner needs to catch up.
func (w *watchParty) Current() (ServerEvent, bool) {
	if w.videoID == "" {
		return nil, false
	}
	return WatchPartyVideo{VideoID: w.videoID, State: w.state, Time: w.position}, true
}

func (w *watchParty) sync() WatchPartySync {
	return WatchPartySync{State: w.state, Time: w.position, UpdatedAt: w.updatedAt.UnixMilli()}
}
