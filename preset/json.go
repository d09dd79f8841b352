package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-synth/synth"
)

// File is the JSON schema for instrument presets. Every field is optional;
// unset fields keep the value of the base preset the file is applied over,
// so a file only needs to list the parameters it changes.
type File struct {
	Base string `json:"base"`
	Name string `json:"name"`

	Harmonics []float32 `json:"harmonics"`

	Attack  *float64 `json:"attack"`
	Decay   *float64 `json:"decay"`
	Sustain *float64 `json:"sustain"`
	Release *float64 `json:"release"`

	FilterCutoffHz  *float64 `json:"filter_cutoff_hz"`
	FilterQ         *float64 `json:"filter_q"`
	FilterEnvAmount *float64 `json:"filter_env_amount"`

	VibratoRateHz     *float64 `json:"vibrato_rate_hz"`
	VibratoDepthCents *float64 `json:"vibrato_depth_cents"`

	DetuneSpreadCents *float64 `json:"detune_spread_cents"`

	PluckLevel   *float64 `json:"pluck_level"`
	PluckDecayS  *float64 `json:"pluck_decay_s"`
	Saturation   *float64 `json:"saturation"`
	StereoSpread *float64 `json:"stereo_spread"`
}

// LoadJSON loads a preset JSON file and applies it on top of its base
// preset (the default preset when no base is named).
func LoadJSON(path string) (*synth.Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	base := synth.LookupPreset(f.Base)
	if err := ApplyFile(&base, &f); err != nil {
		return nil, err
	}
	return &base, nil
}

// SaveJSON writes a preset as a fully specified JSON file.
func SaveJSON(path string, p *synth.Preset) error {
	if p == nil {
		return fmt.Errorf("nil preset")
	}
	f := File{
		Name:              p.Name,
		Harmonics:         p.Harmonics,
		Attack:            &p.Attack,
		Decay:             &p.Decay,
		Sustain:           &p.Sustain,
		Release:           &p.Release,
		FilterCutoffHz:    &p.FilterCutoffHz,
		FilterQ:           &p.FilterQ,
		FilterEnvAmount:   &p.FilterEnvAmount,
		VibratoRateHz:     &p.VibratoRateHz,
		VibratoDepthCents: &p.VibratoDepthCents,
		DetuneSpreadCents: &p.DetuneSpreadCents,
		PluckLevel:        &p.PluckLevel,
		PluckDecayS:       &p.PluckDecayS,
		Saturation:        &p.Saturation,
		StereoSpread:      &p.StereoSpread,
	}
	b, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *synth.Preset, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}

	if name := strings.TrimSpace(f.Name); name != "" {
		dst.Name = name
	}

	if len(f.Harmonics) > 0 {
		for i, a := range f.Harmonics {
			if a < 0 {
				return fmt.Errorf("harmonics[%d] must be >= 0", i)
			}
		}
		dst.Harmonics = append([]float32(nil), f.Harmonics...)
	}

	if f.Attack != nil {
		if *f.Attack < 0 {
			return fmt.Errorf("attack must be >= 0")
		}
		dst.Attack = *f.Attack
	}
	if f.Decay != nil {
		if *f.Decay < 0 {
			return fmt.Errorf("decay must be >= 0")
		}
		dst.Decay = *f.Decay
	}
	if f.Sustain != nil {
		if *f.Sustain < 0 || *f.Sustain > 1 {
			return fmt.Errorf("sustain must be in [0,1]")
		}
		dst.Sustain = *f.Sustain
	}
	if f.Release != nil {
		if *f.Release < 0 {
			return fmt.Errorf("release must be >= 0")
		}
		dst.Release = *f.Release
	}

	if f.FilterCutoffHz != nil {
		if *f.FilterCutoffHz <= 0 {
			return fmt.Errorf("filter_cutoff_hz must be > 0")
		}
		dst.FilterCutoffHz = *f.FilterCutoffHz
	}
	if f.FilterQ != nil {
		if *f.FilterQ <= 0 {
			return fmt.Errorf("filter_q must be > 0")
		}
		dst.FilterQ = *f.FilterQ
	}
	if f.FilterEnvAmount != nil {
		if *f.FilterEnvAmount < 0 {
			return fmt.Errorf("filter_env_amount must be >= 0")
		}
		dst.FilterEnvAmount = *f.FilterEnvAmount
	}

	if f.VibratoRateHz != nil {
		if *f.VibratoRateHz < 0 {
			return fmt.Errorf("vibrato_rate_hz must be >= 0")
		}
		dst.VibratoRateHz = *f.VibratoRateHz
	}
	if f.VibratoDepthCents != nil {
		if *f.VibratoDepthCents < 0 {
			return fmt.Errorf("vibrato_depth_cents must be >= 0")
		}
		dst.VibratoDepthCents = *f.VibratoDepthCents
	}

	if f.DetuneSpreadCents != nil {
		if *f.DetuneSpreadCents < 0 {
			return fmt.Errorf("detune_spread_cents must be >= 0")
		}
		dst.DetuneSpreadCents = *f.DetuneSpreadCents
	}

	if f.PluckLevel != nil {
		if *f.PluckLevel < 0 {
			return fmt.Errorf("pluck_level must be >= 0")
		}
		dst.PluckLevel = *f.PluckLevel
	}
	if f.PluckDecayS != nil {
		if *f.PluckDecayS < 0 {
			return fmt.Errorf("pluck_decay_s must be >= 0")
		}
		dst.PluckDecayS = *f.PluckDecayS
	}
	if f.Saturation != nil {
		if *f.Saturation < 0 {
			return fmt.Errorf("saturation must be >= 0")
		}
		dst.Saturation = *f.Saturation
	}
	if f.StereoSpread != nil {
		if *f.StereoSpread < 0 || *f.StereoSpread > 1 {
			return fmt.Errorf("stereo_spread must be in [0,1]")
		}
		dst.StereoSpread = *f.StereoSpread
	}
	return nil
}
