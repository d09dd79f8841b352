package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-synth/analysis"
	"github.com/cwbudde/algo-synth/internal/fitcommon"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	referencePath := flag.String("reference", "reference/c4.wav", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render candidate from the synth engine")
	instrument := flag.String("instrument", synth.DefaultPresetName, "Instrument preset for rendered candidate")
	presetPath := flag.String("preset", "", "Preset JSON path overriding the instrument for rendered candidate")
	note := flag.Int("note", 60, "MIDI note for rendered candidate")
	velocity := flag.Float64("velocity", 0.8, "Note velocity in [0,1] for rendered candidate")
	sampleRate := flag.Int("sample-rate", 44100, "Analysis sample rate in Hz")
	decayDBFS := flag.Float64("decay-dbfs", -90.0, "Auto-stop threshold in dBFS for rendered candidate")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required for stop")
	minDuration := flag.Float64("min-duration", 2.0, "Minimum rendered duration in seconds")
	maxDuration := flag.Float64("max-duration", 20.0, "Maximum rendered duration in seconds")
	releaseAfter := flag.Float64("release-after", 2.0, "Note hold time before release for rendered candidate")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	ref, err := fitcommon.ReadMonoWAVAtRate(*referencePath, *sampleRate)
	if err != nil {
		die("failed to load reference: %v", err)
	}

	var cand []float64
	if *candidatePath != "" {
		cand, err = fitcommon.ReadMonoWAVAtRate(*candidatePath, *sampleRate)
		if err != nil {
			die("failed to load candidate: %v", err)
		}
	} else {
		stereo, err := renderCandidate(
			*instrument,
			*presetPath,
			*note,
			*velocity,
			*sampleRate,
			*decayDBFS,
			*decayHoldBlocks,
			*minDuration,
			*maxDuration,
			*releaseAfter,
		)
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		cand = fitcommon.MixdownMono(stereo)
		if *writeCandidate != "" {
			if err := fitcommon.WriteInterleavedWAV(*writeCandidate, stereo, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	metrics := analysis.Compare(ref, cand, *sampleRate)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Reference frames: %d\n", metrics.ReferenceFrames)
	fmt.Printf("Candidate frames: %d\n", metrics.CandidateFrames)
	fmt.Printf("Aligned frames:   %d\n", metrics.AlignedFrames)
	fmt.Printf("Lag:              %d samples (%.3f ms)\n", metrics.LagSamples, 1000.0*float64(metrics.LagSamples)/float64(metrics.SampleRate))
	fmt.Println()
	fmt.Printf("Waveform RMSE:    %.6f\n", metrics.WaveformRMSE)
	fmt.Printf("Envelope RMSE:    %.1f dB\n", metrics.EnvelopeRMSEDB)
	fmt.Printf("Spectrum RMSE:    %.1f dB\n", metrics.SpectrumRMSEDB)
	fmt.Printf("Decay slopes:     ref=%.1f dB/s  cand=%.1f dB/s  (diff %.1f dB/s)\n",
		metrics.RefDecayDBPerS, metrics.CandDecayDBPerS, metrics.DecayDiffDBPerS)
	fmt.Println()
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", metrics.Score)
	fmt.Printf("Similarity:       %.2f%%\n", metrics.Similarity*100.0)
}

func renderCandidate(
	instrument string,
	presetPath string,
	note int,
	velocity float64,
	sampleRate int,
	decayDBFS float64,
	decayHoldBlocks int,
	minDuration float64,
	maxDuration float64,
	releaseAfter float64,
) ([]float32, error) {
	cfg := synth.DefaultConfig()
	cfg.Instrument = instrument
	cfg.ReverbMix = 0 // compare the dry voice, not the room
	cfg.Volume = 1

	eng := synth.NewEngine(sampleRate, &cfg)
	defer eng.Close()

	if presetPath != "" {
		p, err := preset.LoadJSON(presetPath)
		if err != nil {
			return nil, err
		}
		eng.RegisterPreset(*p)
		eng.SetInstrument(p.Name)
	}

	if decayHoldBlocks < 1 {
		decayHoldBlocks = 1
	}
	if minDuration < 0 {
		minDuration = 0
	}
	if maxDuration < minDuration {
		maxDuration = minDuration
	}

	const blockSize = 128
	minFrames := int(float64(sampleRate) * minDuration)
	maxFrames := int(float64(sampleRate) * maxDuration)
	releaseAtFrame := int(float64(sampleRate) * releaseAfter)
	if releaseAtFrame < 0 {
		releaseAtFrame = 0
	}
	if maxFrames < 1 {
		return nil, fmt.Errorf("max duration too small")
	}

	eng.PlayNote(note, velocity)

	threshold := math.Pow(10.0, decayDBFS/20.0)
	framesRendered := 0
	belowCount := 0
	released := false
	stereo := make([]float32, 0, maxFrames*2)

	for framesRendered < maxFrames {
		framesToRender := blockSize
		if framesRendered+framesToRender > maxFrames {
			framesToRender = maxFrames - framesRendered
		}
		if !released && framesRendered >= releaseAtFrame {
			eng.StopNote(note)
			released = true
		}
		block := eng.Process(framesToRender)
		stereo = append(stereo, block...)
		framesRendered += framesToRender

		if framesRendered >= minFrames && released {
			if fitcommon.RMS(block) < threshold {
				belowCount++
				if belowCount >= decayHoldBlocks {
					break
				}
			} else {
				belowCount = 0
			}
		}
	}
	return stereo, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
