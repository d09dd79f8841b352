package main

import (
	"fmt"

	"github.com/cwbudde/algo-synth/internal/fitcommon"
	"github.com/cwbudde/algo-synth/synth"
)

// fitHarmonics is how many partial amplitudes the optimizer controls.
const fitHarmonics = 8

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

type candidate struct {
	Vals []float64
}

// buildKnobs returns the knob definitions and the initial candidate seeded
// from the base preset.
func buildKnobs(base synth.Preset) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, fitHarmonics+12)
	vals := make([]float64, 0, fitHarmonics+12)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, fitcommon.Clamp(val, def.Min, def.Max))
	}

	for i := 0; i < fitHarmonics; i++ {
		amp := 0.0
		if i < len(base.Harmonics) {
			amp = float64(base.Harmonics[i])
		}
		addKnob(knobDef{Name: fmt.Sprintf("harmonic_%d", i+1), Min: 0, Max: 1}, amp)
	}

	addKnob(knobDef{Name: "attack", Min: 0.001, Max: 0.5}, base.Attack)
	addKnob(knobDef{Name: "decay", Min: 0.05, Max: 3.0}, base.Decay)
	addKnob(knobDef{Name: "sustain", Min: 0, Max: 1}, base.Sustain)
	addKnob(knobDef{Name: "release", Min: 0.05, Max: 2.0}, base.Release)
	addKnob(knobDef{Name: "filter_cutoff_hz", Min: 200, Max: 8000}, base.FilterCutoffHz)
	addKnob(knobDef{Name: "filter_q", Min: 0.5, Max: 4.0}, base.FilterQ)
	addKnob(knobDef{Name: "filter_env_amount", Min: 0, Max: 4.0}, base.FilterEnvAmount)
	addKnob(knobDef{Name: "detune_spread_cents", Min: 0, Max: 12}, base.DetuneSpreadCents)
	addKnob(knobDef{Name: "pluck_level", Min: 0, Max: 0.6}, base.PluckLevel)
	addKnob(knobDef{Name: "pluck_decay_s", Min: 0.01, Max: 0.2}, base.PluckDecayS)
	addKnob(knobDef{Name: "saturation", Min: 0, Max: 1}, base.Saturation)

	return defs, candidate{Vals: vals}
}

// applyCandidate maps knob values onto a copy of the base preset.
func applyCandidate(base synth.Preset, defs []knobDef, c candidate) synth.Preset {
	p := base
	p.Harmonics = make([]float32, fitHarmonics)

	for i, def := range defs {
		v := c.Vals[i]
		switch def.Name {
		case "attack":
			p.Attack = v
		case "decay":
			p.Decay = v
		case "sustain":
			p.Sustain = v
		case "release":
			p.Release = v
		case "filter_cutoff_hz":
			p.FilterCutoffHz = v
		case "filter_q":
			p.FilterQ = v
		case "filter_env_amount":
			p.FilterEnvAmount = v
		case "detune_spread_cents":
			p.DetuneSpreadCents = v
		case "pluck_level":
			p.PluckLevel = v
		case "pluck_decay_s":
			p.PluckDecayS = v
		case "saturation":
			p.Saturation = v
		default:
			var h int
			if _, err := fmt.Sscanf(def.Name, "harmonic_%d", &h); err == nil && h >= 1 && h <= fitHarmonics {
				p.Harmonics[h-1] = float32(v)
			}
		}
	}
	return p
}

// fromNormalized maps a mayfly position vector in [0,1]^n to knob space.
func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i, def := range defs {
		t := fitcommon.Clamp(pos[i], 0, 1)
		vals[i] = def.Min + t*(def.Max-def.Min)
	}
	return candidate{Vals: vals}
}

// toNormalized is the inverse of fromNormalized.
func toNormalized(c candidate, defs []knobDef) []float64 {
	pos := make([]float64, len(defs))
	for i, def := range defs {
		span := def.Max - def.Min
		if span <= 0 {
			continue
		}
		pos[i] = fitcommon.Clamp((c.Vals[i]-def.Min)/span, 0, 1)
	}
	return pos
}

