package game

import "time"

const maxClubQueue = 20

type ClubTrack struct {
	VideoID  string `json:"videoId"`
	Title    string `json:"title"`
	QueuedBy string `json:"queuedBy"`
}

// Club is the shared watch-together jukebox.
type Club struct {
	current   *ClubTrack
	isPlaying bool
	startedAt time.Time
	queue     []ClubTrack
}

type ClubUpdate struct {
	Current   *ClubTrack  `json:"current"`
	IsPlaying bool        `json:"isPlaying"`
	StartedAt int64       `json:"startedAt,omitempty"`
	Queue     []ClubTrack `json:"queue"`
}

func (ClubUpdate) EventName() string { return "club-update" }

func (c *Club) Snapshot() any {
	return c.view()
}

func (c *Club) view() ClubUpdate {
	out := ClubUpdate{IsPlaying: c.isPlaying, Queue: append([]ClubTrack{}, c.queue...)}
	if c.current != nil {
		track := *c.current
		out.Current = &track
		out.StartedAt = c.startedAt.UnixMilli()
	}
	return out
}

// Enqueue starts the track right away when nothing is playing. A full
// queue drops the request.
func (c *Club) Enqueue(rawVideoID, player string, now time.Time) ServerEvent {
	id, ok := validateYouTubeID(rawVideoID)
	if !ok {
		return nil
	}
	track := ClubTrack{VideoID: id, Title: "YouTube Track", QueuedBy: player}
	switch {
	case c.current == nil:
		c.play(track, now)
	case len(c.queue) < maxClubQueue:
		c.queue = append(c.queue, track)
	default:
		return nil
	}
	return c.view()
}

func (c *Club) SetPlaying(playing bool) ServerEvent {
	if c.current == nil {
		return nil
	}
	c.isPlaying = playing
	return c.view()
}

// Skip moves to the next queued track, or stops when the queue is empty.
func (c *Club) Skip(now time.Time) ServerEvent {
	if len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.play(next, now)
		return c.view()
	}
	c.current = nil
	c.isPlaying = false
	c.startedAt = time.Time{}
	return c.view()
}

func (c *Club) play(track ClubTrack, now time.Time) {
	c.current = &track
	c.isPlaying = true
	c.startedAt = now
}
