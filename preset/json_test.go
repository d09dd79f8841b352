package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-synth/synth"
)

func TestLoadJSONAppliesPartialOverride(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "preset.json")
	content := `{
  "base": "strings",
  "name": "pad",
  "attack": 0.5,
  "sustain": 0.9,
  "filter_cutoff_hz": 2000,
  "harmonics": [1, 0.4, 0.2]
}`
	if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	p, err := LoadJSON(presetPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.Name != "pad" {
		t.Fatalf("name mismatch: %q", p.Name)
	}
	if p.Attack != 0.5 || p.Sustain != 0.9 || p.FilterCutoffHz != 2000 {
		t.Fatalf("override fields mismatch: %+v", p)
	}
	if len(p.Harmonics) != 3 || p.Harmonics[1] != 0.4 {
		t.Fatalf("harmonics mismatch: %v", p.Harmonics)
	}

	// Unset fields keep the base preset's values.
	base := synth.LookupPreset("strings")
	if p.Release != base.Release || p.VibratoRateHz != base.VibratoRateHz {
		t.Fatalf("base fields not preserved: %+v", p)
	}
}

func TestLoadJSONUnknownBaseFallsBack(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "preset.json")
	content := `{"base": "no-such-instrument", "decay": 0.2}`
	if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	p, err := LoadJSON(presetPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	def := synth.LookupPreset(synth.DefaultPresetName)
	if p.Decay != 0.2 {
		t.Fatalf("decay override not applied: %f", p.Decay)
	}
	if p.FilterCutoffHz != def.FilterCutoffHz {
		t.Fatalf("expected default-base fields: %+v", p)
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"sustain above one", `{"sustain": 1.2}`},
		{"negative attack", `{"attack": -0.1}`},
		{"zero cutoff", `{"filter_cutoff_hz": 0}`},
		{"negative harmonic", `{"harmonics": [1, -0.5]}`},
		{"stereo spread above one", `{"stereo_spread": 1.5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			presetPath := filepath.Join(dir, "preset.json")
			if err := os.WriteFile(presetPath, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write preset: %v", err)
			}
			if _, err := LoadJSON(presetPath); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "out.json")

	p := synth.LookupPreset("epiano")
	p.Name = "epiano-soft"
	p.Saturation = 0.1
	if err := SaveJSON(presetPath, &p); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	loaded, err := LoadJSON(presetPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if loaded.Name != "epiano-soft" || loaded.Saturation != 0.1 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.Harmonics) != len(p.Harmonics) {
		t.Fatalf("harmonics length mismatch: %d != %d", len(loaded.Harmonics), len(p.Harmonics))
	}
	for i := range p.Harmonics {
		if loaded.Harmonics[i] != p.Harmonics[i] {
			t.Fatalf("harmonics[%d] mismatch", i)
		}
	}
}
