package game

import (
	"math"
	"slices"
)

const (
	loopStepsPerBar = 4
	loopMinBars     = 1
	loopMaxBars     = 8
	loopDefaultBars = 4
	loopMinBPM      = 60
	loopMaxBPM      = 200
)

var (
	loopInstruments = []string{"kick", "snare", "hihat", "clap", "tom", "ride", "cowbell", "bass", "synth", "pluck", "pad"}
	loopWaveforms   = []string{"sine", "square", "sawtooth", "triangle"}
)

type SynthSettings struct {
	Waveform  string  `json:"waveform"`
	Frequency float64 `json:"frequency"`
	Cutoff    float64 `json:"cutoff"`
	Resonance float64 `json:"resonance"`
	Attack    float64 `json:"attack"`
	Decay     float64 `json:"decay"`
	Volume    float64 `json:"volume"`
}

type BassSettings struct {
	Waveform   string  `json:"waveform"`
	Frequency  float64 `json:"frequency"`
	Cutoff     float64 `json:"cutoff"`
	Resonance  float64 `json:"resonance"`
	Attack     float64 `json:"attack"`
	Decay      float64 `json:"decay"`
	Distortion float64 `json:"distortion"`
}

func defaultSynth() SynthSettings {
	return SynthSettings{Waveform: "square", Frequency: 440, Cutoff: 2000, Resonance: 1, Attack: 0.01, Decay: 0.2, Volume: 0.3}
}

func defaultBass() BassSettings {
	return BassSettings{Waveform: "sine", Frequency: 65.41, Cutoff: 800, Resonance: 1, Attack: 0.01, Decay: 0.5}
}

// LoopMachine is the shared step sequencer. Every instrument row is always
// bars*4 steps long.
type LoopMachine struct {
	grid         map[string][]int
	bpm          int
	bars         int
	isPlaying    bool
	masterVolume float64
	synth        SynthSettings
	bass         BassSettings
}

func NewLoopMachine() *LoopMachine {
	l := &LoopMachine{
		grid:         make(map[string][]int, len(loopInstruments)),
		bpm:          120,
		bars:         loopDefaultBars,
		masterVolume: 1,
		synth:        defaultSynth(),
		bass:         defaultBass(),
	}
	l.resetGrid()
	return l
}

type loopSnapshot struct {
	Grid         map[string][]int `json:"grid"`
	BPM          int              `json:"bpm"`
	Bars         int              `json:"bars"`
	IsPlaying    bool             `json:"isPlaying"`
	MasterVolume float64          `json:"masterVolume"`
	Synth        SynthSettings    `json:"synth"`
	Bass         BassSettings     `json:"bass"`
}

func (l *LoopMachine) Snapshot() any {
	grid := make(map[string][]int, len(l.grid))
	for k, row := range l.grid {
		grid[k] = slices.Clone(row)
	}
	return loopSnapshot{
		Grid:         grid,
		BPM:          l.bpm,
		Bars:         l.bars,
		IsPlaying:    l.isPlaying,
		MasterVolume: l.masterVolume,
		Synth:        l.synth,
		Bass:         l.bass,
	}
}

type LoopCellUpdated struct {
	Instrument string `json:"instrument"`
	Step       int    `json:"step"`
	Value      int    `json:"value"`
}

type LoopBPMUpdated struct {
	BPM int `json:"bpm"`
}

type LoopStateUpdated struct {
	IsPlaying bool `json:"isPlaying"`
}

type LoopMasterVolumeUpdated struct {
	MasterVolume float64 `json:"masterVolume"`
}

type LoopSynthUpdated struct{ SynthSettings }

type LoopBassUpdated struct{ BassSettings }

func (LoopCellUpdated) EventName() string         { return "loop-cell-updated" }
func (LoopBPMUpdated) EventName() string          { return "loop-bpm-updated" }
func (LoopStateUpdated) EventName() string        { return "loop-state-updated" }
func (LoopMasterVolumeUpdated) EventName() string { return "loop-master-volume-updated" }
func (LoopSynthUpdated) EventName() string        { return "loop-synth-updated" }
func (LoopBassUpdated) EventName() string         { return "loop-bass-updated" }

func (l *LoopMachine) ToggleCell(instrument string, step int) ServerEvent {
	row, ok := l.grid[instrument]
	if !ok || step < 0 || step >= len(row) {
		return nil
	}
	row[step] = 1 - row[step]
	return LoopCellUpdated{Instrument: instrument, Step: step, Value: row[step]}
}

func (l *LoopMachine) SetBPM(bpm int) ServerEvent {
	if bpm < loopMinBPM || bpm > loopMaxBPM {
		return nil
	}
	l.bpm = bpm
	return LoopBPMUpdated{BPM: bpm}
}

// SetBars resizes every row, keeping the steps that still fit.
func (l *LoopMachine) SetBars(bars int) bool {
	if bars < loopMinBars || bars > loopMaxBars || bars == l.bars {
		return false
	}
	steps := bars * loopStepsPerBar
	for k, row := range l.grid {
		if len(row) > steps {
			l.grid[k] = row[:steps:steps]
		} else {
			l.grid[k] = append(row, make([]int, steps-len(row))...)
		}
	}
	l.bars = bars
	return true
}

func (l *LoopMachine) TogglePlaying() ServerEvent {
	l.isPlaying = !l.isPlaying
	return LoopStateUpdated{IsPlaying: l.isPlaying}
}

func (l *LoopMachine) SetMasterVolume(v *float64) ServerEvent {
	l.masterVolume = clampOr(v, 0, 1, 1)
	return LoopMasterVolumeUpdated{MasterVolume: l.masterVolume}
}

func (l *LoopMachine) SetSynth(ev LoopSetSynth) ServerEvent {
	l.synth = SynthSettings{
		Waveform:  pickWaveform(ev.Waveform, "square"),
		Frequency: clampOr(ev.Frequency, 50, 2000, 440),
		Cutoff:    clampOr(ev.Cutoff, 200, 8000, 2000),
		Resonance: clampOr(ev.Resonance, 0.1, 20, 1),
		Attack:    clampOr(ev.Attack, 0.01, 0.5, 0.01),
		Decay:     clampOr(ev.Decay, 0.05, 1, 0.2),
		Volume:    clampOr(ev.Volume, 0, 1, 0.3),
	}
	return LoopSynthUpdated{l.synth}
}

func (l *LoopMachine) SetBass(ev LoopSetBass) ServerEvent {
	l.bass = BassSettings{
		Waveform:   pickWaveform(ev.Waveform, "sine"),
		Frequency:  clampOr(ev.Frequency, 30, 200, 65.41),
		Cutoff:     clampOr(ev.Cutoff, 100, 2000, 800),
		Resonance:  clampOr(ev.Resonance, 0.1, 20, 1),
		Attack:     clampOr(ev.Attack, 0.01, 0.5, 0.01),
		Decay:      clampOr(ev.Decay, 0.1, 2, 0.5),
		Distortion: clampOr(ev.Distortion, 0, 1, 0),
	}
	return LoopBassUpdated{l.bass}
}

// Clear empties the grid and restores both voices. Tempo, length and
// playback are left alone.
func (l *LoopMachine) Clear() bool {
	l.resetGrid()
	l.synth = defaultSynth()
	l.bass = defaultBass()
	return true
}

func (l *LoopMachine) resetGrid() {
	for _, instrument := range loopInstruments {
		l.grid[instrument] = make([]int, l.bars*loopStepsPerBar)
	}
}

func pickWaveform(raw, fallback string) string {
	if slices.Contains(loopWaveforms, raw) {
		return raw
	}
	return fallback
}

// clampOr clamps a present, finite value and falls back otherwise.
func clampOr(v *float64, lo, hi, fallback float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fallback
	}
	return clamp(*v, lo, hi)
}
