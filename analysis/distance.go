package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics describes how far a candidate rendering is from a reference
// recording. Score blends the sub-metrics into [0,1] with 0 a perfect match;
// Similarity maps the score onto a friendlier 0..1 scale.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	WaveformRMSE    float64 `json:"waveform_rmse"`
	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectrumRMSEDB  float64 `json:"spectrum_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Analysis parameters. The envelope runs on 1024-sample frames; the spectrum
// is a Hann-windowed magnitude average over up to specMaxFrames hops, which
// suits the steady harmonic stacks the voice engine produces.
const (
	silenceFloor      = 1e-6
	rmsTarget         = 0.1
	minAlignedFrames  = 256
	maxCompareSeconds = 12.0

	envFrame = 1024
	envHop   = 256

	specFFTSize   = 2048
	specHop       = 1024
	specMaxFrames = 16
)

// Compare returns objective distance metrics and a combined score in [0,1].
// Both signals are trimmed to their onset, loudness-normalized, and aligned
// by cross-correlation before any metric runs.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}

	ref := prepare(reference)
	cand := prepare(candidate)
	if ref == nil || cand == nil {
		return m
	}

	lag := alignOffset(ref, cand, maxLagFor(sampleRate, len(ref), len(cand)))
	m.LagSamples = lag
	if lag >= 0 {
		ref = ref[lag:]
	} else {
		cand = cand[-lag:]
	}

	n := min(len(ref), len(cand))
	if limit := int(maxCompareSeconds * float64(sampleRate)); n > limit {
		n = limit
	}
	if n < minAlignedFrames {
		return m
	}
	ref = ref[:n]
	cand = cand[:n]
	m.AlignedFrames = n

	m.WaveformRMSE = pairedRMSE(ref, cand)

	refEnv := envelopeDB(ref)
	candEnv := envelopeDB(cand)
	m.EnvelopeRMSEDB = pairedRMSE(refEnv, candEnv)

	m.SpectrumRMSEDB = spectrumRMSEDB(ref, cand)

	hopSec := float64(envHop) / float64(sampleRate)
	m.RefDecayDBPerS = decaySlope(refEnv, hopSec)
	m.CandDecayDBPerS = decaySlope(candEnv, hopSec)
	if !math.IsNaN(m.RefDecayDBPerS) && !math.IsNaN(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	m.Score = combinedScore(&m)
	m.Similarity = math.Exp(-4.0 * m.Score)
	return m
}

// prepare trims leading silence and scales the remainder to a fixed RMS.
// Returns nil when the signal is silent throughout.
func prepare(x []float64) []float64 {
	start := 0
	for start < len(x) && math.Abs(x[start]) <= silenceFloor {
		start++
	}
	x = x[start:]
	if len(x) == 0 {
		return nil
	}
	r := rms(x)
	if r <= 1e-12 {
		return nil
	}
	g := rmsTarget / r
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

func maxLagFor(sampleRate int, refLen int, candLen int) int {
	maxLag := sampleRate / 2
	if limit := min(refLen, candLen) - 1; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 1 {
		maxLag = 1
	}
	return maxLag
}

// alignOffset finds the lag maximizing the normalized cross-correlation over
// the overlap. Long inputs are decimated; the sampled indices shift together
// with the lag, so the peak survives decimation.
func alignOffset(ref []float64, cand []float64, maxLag int) int {
	if maxLag < 1 {
		return 0
	}
	step := 1
	switch n := min(len(ref), len(cand)); {
	case n > 100000:
		step = 4
	case n > 20000:
		step = 2
	}

	best := math.Inf(-1)
	bestLag := 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := overlapCorrelation(ref, cand, lag, step); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func overlapCorrelation(a []float64, b []float64, lag int, step int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	if n <= 0 {
		return math.Inf(-1)
	}
	var dot, ea, eb float64
	for i := 0; i < n; i += step {
		x := a[ai+i]
		y := b[bi+i]
		dot += x * y
		ea += x * x
		eb += y * y
	}
	if ea <= 0 || eb <= 0 {
		return math.Inf(-1)
	}
	return dot / math.Sqrt(ea*eb)
}

// pairedRMSE is the root-mean-square difference over the common prefix.
func pairedRMSE(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// envelopeDB is the hop-sampled frame RMS in decibels.
func envelopeDB(x []float64) []float64 {
	if len(x) < envFrame {
		return nil
	}
	out := make([]float64, 0, 1+(len(x)-envFrame)/envHop)
	for start := 0; start+envFrame <= len(x); start += envHop {
		out = append(out, toDB(rms(x[start:start+envFrame])))
	}
	return out
}

// spectrumRMSEDB compares Hann-windowed magnitude spectra averaged over up to
// specMaxFrames hops. Averaging smooths single-frame phase artifacts out of
// tonal material before the per-bin dB comparison.
func spectrumRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n < specFFTSize {
		return 0
	}
	plan, err := algofft.NewPlanReal64(specFFTSize)
	if err != nil {
		return 0
	}

	window := hannWindow(specFFTSize)
	buf := make([]float64, specFFTSize)
	spec := make([]complex128, specFFTSize/2+1)

	average := func(x []float64) []float64 {
		frames := 1 + (len(x)-specFFTSize)/specHop
		if frames > specMaxFrames {
			frames = specMaxFrames
		}
		mag := make([]float64, specFFTSize/2+1)
		for f := 0; f < frames; f++ {
			off := f * specHop
			for i := range buf {
				buf[i] = x[off+i] * window[i]
			}
			if err := plan.Forward(spec, buf); err != nil {
				return nil
			}
			for k := range mag {
				mag[k] += cmplx.Abs(spec[k])
			}
		}
		for k := range mag {
			mag[k] /= float64(frames)
		}
		return mag
	}

	magA := average(a[:n])
	magB := average(b[:n])
	if magA == nil || magB == nil {
		return 0
	}

	var sum float64
	bins := 0
	for k := 1; k < len(magA)-1; k++ {
		d := toDB(magA[k]) - toDB(magB[k])
		sum += d * d
		bins++
	}
	return math.Sqrt(sum / float64(bins))
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func toDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// decaySlope fits a line to the dB envelope between the peak frame and the
// point 60 dB below it, in dB per second. NaN when the tail is too short for
// a meaningful fit.
func decaySlope(envDB []float64, hopSec float64) float64 {
	if len(envDB) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peakIdx := 0
	for i, v := range envDB {
		if v > envDB[peakIdx] {
			peakIdx = i
		}
	}
	start := peakIdx + 1
	end := len(envDB)
	for i := start; i < len(envDB); i++ {
		if envDB[i] < envDB[peakIdx]-60.0 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	n := float64(end - start)
	var meanX, meanY float64
	for i := start; i < end; i++ {
		meanX += float64(i-start) * hopSec
		meanY += envDB[i]
	}
	meanX /= n
	meanY /= n

	var num, den float64
	for i := start; i < end; i++ {
		dx := float64(i-start)*hopSec - meanX
		num += dx * (envDB[i] - meanY)
		den += dx * dx
	}
	if den < 1e-12 {
		return math.NaN()
	}
	return num / den
}

func combinedScore(m *Metrics) float64 {
	s := 0.30*clamp01(m.WaveformRMSE/0.25) +
		0.25*clamp01(m.EnvelopeRMSEDB/30.0) +
		0.30*clamp01(m.SpectrumRMSEDB/30.0) +
		0.15*clamp01(m.DecayDiffDBPerS/40.0)
	return clamp01(s)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
