package irsynth

import (
	"fmt"
	"math"
	"math/rand"
)

// Config controls synthetic reverb IR generation.
type Config struct {
	SampleRate int
	DurationS  float64
	Seed       int64

	DecayS       float64 // decay time constant of the diffuse noise bed
	ShimmerS     float64 // window at the start holding the bright early taps
	ShimmerLevel float64
	EarlyCount   int
	StereoWidth  float64
	FadeOutS     float64 // cosine fade-out at the end; 0 = no fade

	NormalizePeak float64
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    44100,
		DurationS:     1.2,
		Seed:          1,
		DecayS:        0.9,
		ShimmerS:      0.08,
		ShimmerLevel:  0.35,
		EarlyCount:    20,
		StereoWidth:   0.6,
		FadeOutS:      0.01,
		NormalizePeak: 0.5,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.DecayS <= 0 {
		return fmt.Errorf("decay seconds must be > 0")
	}
	if c.ShimmerS < 0 {
		return fmt.Errorf("shimmer seconds must be >= 0")
	}
	if c.ShimmerLevel < 0 {
		return fmt.Errorf("shimmer level must be >= 0")
	}
	if c.EarlyCount < 0 {
		return fmt.Errorf("early count must be >= 0")
	}
	if c.StereoWidth < 0 {
		return fmt.Errorf("stereo width must be >= 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// GenerateStereo synthesizes a decorrelated stereo reverb IR: an
// exponentially decaying filtered-noise bed plus a cluster of bright early
// taps inside the shimmer window. Output is deterministic for a given
// config, including the seed.
func GenerateStereo(cfg Config) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	n := int(math.Round(cfg.DurationS * float64(cfg.SampleRate)))
	if n < 1 {
		n = 1
	}
	left := make([]float64, n)
	right := make([]float64, n)

	rng := rand.New(rand.NewSource(cfg.Seed))

	// Diffuse bed. Independent noise draws per channel keep the two sides
	// decorrelated; the one-pole smoothing rounds off the harsh top end.
	lpL := 0.0
	lpR := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(cfg.SampleRate)
		env := math.Exp(-t / cfg.DecayS)
		lpL = 0.9*lpL + 0.1*rng.NormFloat64()
		lpR = 0.9*lpR + 0.1*rng.NormFloat64()
		left[i] = env * lpL
		right[i] = env * lpR
	}

	// Early shimmer taps inside the first ShimmerS seconds.
	if cfg.ShimmerLevel > 0 && cfg.ShimmerS > 0 {
		for i := 0; i < cfg.EarlyCount; i++ {
			t := 0.001 + (cfg.ShimmerS-0.001)*rng.Float64()
			idx := int(t * float64(cfg.SampleRate))
			if idx <= 0 || idx >= n {
				continue
			}
			amp := cfg.ShimmerLevel * (0.3 + 0.7*rng.Float64()) * math.Exp(-t/cfg.ShimmerS)
			pan := (rng.Float64()*2.0 - 1.0) * cfg.StereoWidth
			left[idx] += amp * (1.0 - 0.5*pan)
			right[idx] += amp * (1.0 + 0.5*pan)
		}
	}

	highpassDC(left, 0.995)
	highpassDC(right, 0.995)
	applyFadeOut(left, cfg.FadeOutS, cfg.SampleRate)
	applyFadeOut(right, cfg.FadeOutS, cfg.SampleRate)

	peak := maxAbs(left)
	if rp := maxAbs(right); rp > peak {
		peak = rp
	}
	if peak < 1e-12 {
		peak = 1e-12
	}
	s := cfg.NormalizePeak / peak
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := 0; i < n; i++ {
		outL[i] = float32(left[i] * s)
		outR[i] = float32(right[i] * s)
	}
	return outL, outR, nil
}

func highpassDC(x []float64, r float64) {
	if len(x) == 0 {
		return
	}
	prevIn := 0.0
	prevOut := 0.0
	for i := range x {
		y := x[i] - prevIn + r*prevOut
		prevIn = x[i]
		prevOut = y
		x[i] = y
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		a := math.Abs(v)
		if a > m {
			m = a
		}
	}
	return m
}

// applyFadeOut applies a cosine fade-out to the last fadeS seconds of buf.
func applyFadeOut(buf []float64, fadeS float64, sampleRate int) {
	if fadeS <= 0 || len(buf) == 0 {
		return
	}
	fadeSamples := int(math.Round(fadeS * float64(sampleRate)))
	if fadeSamples > len(buf) {
		fadeSamples = len(buf)
	}
	start := len(buf) - fadeSamples
	for i := 0; i < fadeSamples; i++ {
		t := float64(i) / float64(fadeSamples)
		gain := 0.5 * (1.0 + math.Cos(t*math.Pi))
		buf[start+i] *= gain
	}
}
