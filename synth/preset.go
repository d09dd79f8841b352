package synth

import "sort"

// Preset holds all timbre parameters for one instrument. Presets are value
// types and never mutated after construction; Lookup and RegisterPreset copy
// the harmonic table so callers cannot alias catalog state.
type Preset struct {
	Name string

	// Harmonics are relative partial amplitudes, index 0 = fundamental.
	// Entries <= 0 are skipped at voice construction.
	Harmonics []float32

	// Amplitude envelope (seconds except Sustain, which is a level in [0,1]).
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64

	// Per-voice lowpass filter and its envelope sweep.
	FilterCutoffHz  float64
	FilterQ         float64
	FilterEnvAmount float64

	// Shared vibrato LFO, depth in cents at the fundamental.
	VibratoRateHz     float64
	VibratoDepthCents float64

	// Uniform random per-oscillator detune range, in cents.
	DetuneSpreadCents float64

	// Optional stages.
	PluckLevel   float64 // noise transient level, 0 disables
	PluckDecayS  float64 // noise transient length, floored at 50ms
	Saturation   float64 // waveshaper amount, 0 disables
	StereoSpread float64 // static per-voice pan range, 0 disables
}

// DefaultPresetName is used whenever an unknown instrument is requested.
const DefaultPresetName = "piano"

var catalog = map[string]Preset{
	"piano": {
		Name:              "piano",
		Harmonics:         []float32{1.0, 0.55, 0.32, 0.2, 0.14, 0.09, 0.06, 0.04},
		Attack:            0.004,
		Decay:             1.6,
		Sustain:           0.12,
		Release:           0.45,
		FilterCutoffHz:    2600,
		FilterQ:           0.9,
		FilterEnvAmount:   1.8,
		VibratoRateHz:     0,
		VibratoDepthCents: 0,
		DetuneSpreadCents: 3.5,
		PluckLevel:        0.18,
		PluckDecayS:       0.03,
		StereoSpread:      0.2,
	},
	"epiano": {
		Name:              "epiano",
		Harmonics:         []float32{1.0, 0.12, 0.5, 0.05, 0.2, 0, 0.08},
		Attack:            0.006,
		Decay:             1.2,
		Sustain:           0.25,
		Release:           0.6,
		FilterCutoffHz:    1800,
		FilterQ:           1.1,
		FilterEnvAmount:   1.2,
		VibratoRateHz:     5.2,
		VibratoDepthCents: 2.0,
		DetuneSpreadCents: 2.0,
		Saturation:        0.35,
		StereoSpread:      0.35,
	},
	"organ": {
		Name:              "organ",
		Harmonics:         []float32{1.0, 0.7, 0.45, 0.6, 0.25, 0.3, 0.1, 0.2},
		Attack:            0.02,
		Decay:             0.1,
		Sustain:           0.95,
		Release:           0.18,
		FilterCutoffHz:    5200,
		FilterQ:           0.707,
		FilterEnvAmount:   0.2,
		VibratoRateHz:     6.4,
		VibratoDepthCents: 3.0,
		DetuneSpreadCents: 1.0,
	},
	"strings": {
		Name:              "strings",
		Harmonics:         []float32{1.0, 0.8, 0.6, 0.45, 0.35, 0.26, 0.2, 0.15},
		Attack:            0.28,
		Decay:             0.4,
		Sustain:           0.8,
		Release:           0.9,
		FilterCutoffHz:    3400,
		FilterQ:           0.8,
		FilterEnvAmount:   0.6,
		VibratoRateHz:     5.0,
		VibratoDepthCents: 6.0,
		DetuneSpreadCents: 9.0,
		StereoSpread:      0.6,
	},
	"brass": {
		Name:              "brass",
		Harmonics:         []float32{1.0, 0.85, 0.7, 0.6, 0.5, 0.42, 0.35, 0.3},
		Attack:            0.06,
		Decay:             0.25,
		Sustain:           0.7,
		Release:           0.3,
		FilterCutoffHz:    2200,
		FilterQ:           1.4,
		FilterEnvAmount:   2.4,
		VibratoRateHz:     4.6,
		VibratoDepthCents: 4.0,
		DetuneSpreadCents: 4.0,
		Saturation:        0.5,
	},
	"flute": {
		Name:              "flute",
		Harmonics:         []float32{1.0, 0.28, 0.12, 0.05},
		Attack:            0.09,
		Decay:             0.2,
		Sustain:           0.85,
		Release:           0.25,
		FilterCutoffHz:    4800,
		FilterQ:           0.707,
		FilterEnvAmount:   0.3,
		VibratoRateHz:     5.6,
		VibratoDepthCents: 8.0,
		DetuneSpreadCents: 1.5,
		PluckLevel:        0.06,
		PluckDecayS:       0.02,
	},
	"pluck": {
		Name:              "pluck",
		Harmonics:         []float32{1.0, 0.6, 0.42, 0.3, 0.22, 0.15, 0.1, 0.06},
		Attack:            0.002,
		Decay:             0.9,
		Sustain:           0.0,
		Release:           0.35,
		FilterCutoffHz:    3000,
		FilterQ:           1.0,
		FilterEnvAmount:   2.8,
		DetuneSpreadCents: 3.0,
		PluckLevel:        0.45,
		PluckDecayS:       0.08,
		StereoSpread:      0.25,
	},
	"marimba": {
		Name:              "marimba",
		Harmonics:         []float32{1.0, 0, 0, 0.4, 0, 0, 0, 0, 0.15},
		Attack:            0.001,
		Decay:             0.7,
		Sustain:           0.0,
		Release:           0.4,
		FilterCutoffHz:    4200,
		FilterQ:           0.9,
		FilterEnvAmount:   1.0,
		DetuneSpreadCents: 2.0,
		PluckLevel:        0.3,
		PluckDecayS:       0.015,
	},
	"synthlead": {
		Name:              "synthlead",
		Harmonics:         []float32{1.0, 0.5, 0.33, 0.25, 0.2, 0.17, 0.14, 0.12, 0.11, 0.1},
		Attack:            0.01,
		Decay:             0.3,
		Sustain:           0.6,
		Release:           0.2,
		FilterCutoffHz:    1600,
		FilterQ:           2.2,
		FilterEnvAmount:   3.0,
		VibratoRateHz:     5.8,
		VibratoDepthCents: 5.0,
		DetuneSpreadCents: 7.0,
		Saturation:        0.25,
		StereoSpread:      0.4,
	},
}

// LookupPreset returns the named preset, falling back to the default preset
// for unknown names so playback stays audible.
func LookupPreset(name string) Preset {
	p, ok := catalog[name]
	if !ok {
		p = catalog[DefaultPresetName]
	}
	return clonePreset(p)
}

// PresetNames returns all built-in preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clonePreset(p Preset) Preset {
	out := p
	out.Harmonics = append([]float32(nil), p.Harmonics...)
	return out
}
