package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-synth/analysis"
	fitcommon "github.com/cwbudde/algo-synth/internal/fitcommon"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	referencePath := flag.String("reference", "reference/note.wav", "Reference WAV path")
	instrument := flag.String("instrument", synth.DefaultPresetName, "Base preset name to start from")
	presetPath := flag.String("preset", "", "Base preset JSON path overriding -instrument (optional)")
	outputPreset := flag.String("output-preset", "out/fitted.json", "Path to write best fitted preset JSON")
	writeBest := flag.String("write-best", "", "Optional path to write the best candidate render as a mono WAV")
	note := flag.Int("note", 60, "MIDI note to fit")
	velocity := flag.Float64("velocity", 0.8, "Velocity for evaluation renders")
	releaseAfter := flag.Float64("release-after", 1.0, "Seconds before note-off for each evaluation render")
	sampleRate := flag.Int("sample-rate", 44100, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 120.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 4000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 50, "Print progress every N evaluations")
	maxDuration := flag.Float64("max-duration", 8.0, "Maximum evaluation render duration in seconds")
	workers := flag.String("workers", "1", "Parallel workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	parsedWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	base := synth.LookupPreset(*instrument)
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		base = *p
	}

	ref, err := fitcommon.ReadMonoWAVAtRate(*referencePath, *sampleRate)
	if err != nil {
		die("failed to load reference: %v", err)
	}

	defs, initCand := buildKnobs(base)
	fmt.Printf("Fitting %d knobs to %s (note %d, %d Hz, %d workers)...\n",
		len(defs), *referencePath, *note, *sampleRate, parsedWorkers)

	settings := renderSettings{
		note:         *note,
		velocity:     *velocity,
		releaseAfter: *releaseAfter,
		sampleRate:   *sampleRate,
		maxDuration:  *maxDuration,
	}

	variant := strings.ToLower(*mayflyVariant)
	deadline := time.Now().Add(time.Duration(*timeBudget * float64(time.Second)))
	start := time.Now()

	var (
		evals  int64
		rounds int64

		mu          sync.Mutex
		best        = initCand
		bestScore   = math.Inf(1)
		bestMetrics analysis.Metrics
	)

	var wg sync.WaitGroup
	for w := 0; w < parsedWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if time.Now().After(deadline) || atomic.LoadInt64(&evals) >= int64(*maxEvals) {
					return
				}
				round := atomic.AddInt64(&rounds, 1)
				remaining := *maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				budget := min(*mayflyRoundEvals, remaining)
				iters := max(1, budget/(2**mayflyPop))

				cfg, err := newMayflyConfig(variant, *mayflyPop, len(defs), iters)
				if err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d setup failed: %v\n", round, err)
					return
				}
				cfg.Rand = rand.New(rand.NewSource(*seed + round*7919))
				cfg.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return math.Inf(1)
					}
					n := atomic.AddInt64(&evals, 1)
					if n > int64(*maxEvals) {
						return math.Inf(1)
					}

					cand := fromNormalized(pos, defs)
					p := applyCandidate(base, defs, cand)
					mono := renderCandidate(p, settings)
					m := analysis.Compare(ref, mono, settings.sampleRate)

					mu.Lock()
					if m.Score < bestScore {
						bestScore = m.Score
						bestMetrics = m
						best = candidate{Vals: append([]float64(nil), cand.Vals...)}
						fmt.Printf("Improved eval=%d score=%.4f sim=%.2f%%\n",
							n, m.Score, m.Similarity*100.0)
					}
					bs := bestScore
					mu.Unlock()

					if n%int64(*reportEvery) == 0 {
						fmt.Printf("Progress eval=%d/%d elapsed=%.1fs best=%.4f\n",
							n, *maxEvals, time.Since(start).Seconds(), bs)
					}
					return m.Score
				}

				if _, err := runMayfly(cfg); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
		}()
	}
	wg.Wait()

	if math.IsInf(bestScore, 1) {
		die("no successful evaluations")
	}

	fitted := applyCandidate(base, defs, best)
	if fitted.Name == "" || fitted.Name == base.Name {
		fitted.Name = base.Name + "-fitted"
	}
	if err := preset.SaveJSON(*outputPreset, &fitted); err != nil {
		die("failed to write preset: %v", err)
	}

	if *writeBest != "" {
		mono := renderCandidate(fitted, settings)
		out := make([]float32, len(mono))
		for i, v := range mono {
			out[i] = float32(v)
		}
		if err := fitcommon.WriteMonoWAV(*writeBest, out, settings.sampleRate); err != nil {
			die("failed to write best render: %v", err)
		}
		fmt.Printf("Wrote %s\n", *writeBest)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		atomic.LoadInt64(&evals), time.Since(start).Seconds(),
		bestMetrics.Score, bestMetrics.Similarity*100.0, variant)
	fmt.Printf("Wrote %s\n", *outputPreset)
}

type renderSettings struct {
	note         int
	velocity     float64
	releaseAfter float64
	sampleRate   int
	maxDuration  float64
}

// renderCandidate renders the preset dry (no reverb) and returns a mono mix
// for comparison against the reference.
func renderCandidate(p synth.Preset, s renderSettings) []float64 {
	cfg := synth.DefaultConfig()
	cfg.ReverbMix = 0
	cfg.Volume = 1
	cfg.Seed = 1

	p.Name = "fit-candidate"
	eng := synth.NewEngine(s.sampleRate, &cfg)
	defer eng.Close()
	eng.RegisterPreset(p)
	eng.SetInstrument(p.Name)
	eng.PlayNote(s.note, s.velocity)

	const blockSize = 128
	const thresholdDBFS = -90.0
	const holdBlocks = 6

	maxFrames := int(s.maxDuration * float64(s.sampleRate))
	if maxFrames < blockSize {
		maxFrames = blockSize
	}
	releaseAt := int(s.releaseAfter * float64(s.sampleRate))
	threshold := math.Pow(10.0, thresholdDBFS/20.0)

	stereo := make([]float32, 0, maxFrames*2)
	released := false
	belowCount := 0
	rendered := 0
	for rendered < maxFrames {
		n := blockSize
		if rendered+n > maxFrames {
			n = maxFrames - rendered
		}
		if !released && rendered >= releaseAt {
			eng.StopNote(s.note)
			released = true
		}
		block := eng.Process(n)
		stereo = append(stereo, block...)
		rendered += n

		if released {
			if fitcommon.RMS(block) < threshold {
				belowCount++
				if belowCount >= holdBlocks {
					break
				}
			} else {
				belowCount = 0
			}
		}
	}
	return fitcommon.MixdownMono(stereo)
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
