package game

import (
	"slices"
	"time"
)

var soundboardSounds = []string{
	"anatolia", "elgato", "fahh", "massenhausen", "plug",
	"reverbfart", "rizz", "seyuh", "vineboom",
}

// Soundboard has no state of its own beyond the fixed sound list.
type Soundboard struct{}

type soundboardSnapshot struct {
	Sounds []string `json:"sounds"`
}

func (*Soundboard) Snapshot() any {
	return soundboardSnapshot{Sounds: soundboardSounds}
}

type SoundPlayed struct {
	SoundID    string `json:"soundId"`
	PlayerName string `json:"playerName"`
	Timestamp  int64  `json:"timestamp"`
}

func (SoundPlayed) EventName() string { return "soundboard-played" }

func (*Soundboard) Play(soundID, player string, now time.Time) ServerEvent {
	if !slices.Contains(soundboardSounds, soundID) {
		return nil
	}
	return SoundPlayed{SoundID: soundID, PlayerName: player, Timestamp: now.UnixMilli()}
}
