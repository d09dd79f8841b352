package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	fitcommon "github.com/cwbudde/algo-synth/internal/fitcommon"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	notesFlag := flag.String("notes", "60", "Comma-separated MIDI notes to play (e.g. 60,64,67)")
	velocity := flag.Float64("velocity", 0.8, "Note velocity in [0,1]")
	instrument := flag.String("instrument", synth.DefaultPresetName, "Instrument preset name")
	presetPath := flag.String("preset", "", "Preset JSON file overriding the instrument (optional)")
	duration := flag.Float64("duration", 3.0, "Render duration in seconds")
	releaseAfter := flag.Float64("release-after", 1.0, "Send note-off after this many seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Auto-stop when stereo block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop in auto-decay mode")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum render duration in seconds when using -decay-dbfs")
	sampleRate := flag.Int("sample-rate", 44100, "Render sample rate in Hz")
	reverbMix := flag.Float64("reverb", 0.25, "Reverb wet mix in [0,1]")
	volume := flag.Float64("volume", 0.8, "Master volume in [0,1.5]")
	seed := flag.Int64("seed", 1, "Voice randomness seed")
	irPath := flag.String("ir", "", "Reverb IR WAV path override (optional)")
	dumpLog := flag.Bool("dump-log", false, "Print the engine diagnostics log after rendering")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	notes, err := parseNotes(*notesFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing notes: %v\n", err)
		os.Exit(1)
	}

	cfg := synth.DefaultConfig()
	cfg.Instrument = *instrument
	cfg.ReverbMix = *reverbMix
	cfg.Volume = *volume
	cfg.Seed = *seed

	eng := synth.NewEngine(*sampleRate, &cfg)
	defer eng.Close()

	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		eng.RegisterPreset(*p)
		eng.SetInstrument(p.Name)
	}

	eng.Init()
	if *irPath != "" {
		if err := eng.SetIRFromWAV(*irPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading IR %q: %v\n", *irPath, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Rendering notes %v, velocity %.2f, instrument %q at %d Hz...\n",
		notes, *velocity, *instrument, *sampleRate)

	for _, n := range notes {
		eng.PlayNote(n, *velocity)
	}

	const blockSize = 128
	autoStop := !math.IsInf(*decayDBFS, 1)

	totalFrames := int(float64(*sampleRate) * (*duration))
	if totalFrames < 1 {
		totalFrames = 1
	}
	maxFrames := totalFrames
	if autoStop {
		maxFrames = int(float64(*sampleRate) * (*maxDuration))
		if maxFrames < blockSize {
			maxFrames = blockSize
		}
	}

	releaseAtFrame := int(float64(*sampleRate) * (*releaseAfter))
	if releaseAtFrame < 0 {
		releaseAtFrame = 0
	}
	thresholdLin := math.Pow(10.0, *decayDBFS/20.0)
	if *decayHoldBlocks < 1 {
		*decayHoldBlocks = 1
	}

	samples := make([]float32, 0, totalFrames*2)
	released := false
	belowCount := 0
	rendered := 0
	for rendered < maxFrames {
		n := blockSize
		if rendered+n > maxFrames {
			n = maxFrames - rendered
		}
		if !released && rendered >= releaseAtFrame {
			for _, note := range notes {
				eng.StopNote(note)
			}
			released = true
		}

		block := eng.Process(n)
		samples = append(samples, block...)
		rendered += n

		if autoStop && released {
			if fitcommon.RMS(block) < thresholdLin {
				belowCount++
				if belowCount >= *decayHoldBlocks {
					break
				}
			} else {
				belowCount = 0
			}
		} else if !autoStop && rendered >= totalFrames {
			break
		}
	}

	if autoStop {
		fmt.Printf("Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n",
			rendered, float64(rendered)/float64(*sampleRate), *decayDBFS)
	}

	if err := fitcommon.WriteInterleavedWAV(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, rendered)

	if *dumpLog {
		fmt.Print(eng.ExportLog())
	}
}

func parseNotes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	notes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q", part)
		}
		if n < 0 || n > 127 {
			return nil, fmt.Errorf("note %d out of range 0..127", n)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}
