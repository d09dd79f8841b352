package dsp

import "math"

// Biquad implements a second-order IIR filter (no heap allocations in Process)
type Biquad struct {
	// Coefficients
	b0, b1, b2 float32
	a1, a2     float32

	// State (previous samples)
	x1, x2 float32 // input history
	y1, y2 float32 // output history
}

// NewLowpass creates a lowpass biquad filter.
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	b := &Biquad{}
	b.SetLowpass(cutoff, sampleRate, q)
	return b
}

// SetLowpass retunes the filter to a new cutoff/Q without clearing state,
// so a swept filter stays click-free across coefficient updates.
func (b *Biquad) SetLowpass(cutoff, sampleRate, q float32) {
	maxCutoff := 0.49 * sampleRate
	if cutoff > maxCutoff {
		cutoff = maxCutoff
	}
	if cutoff < 1 {
		cutoff = 1
	}
	if q <= 0 {
		q = 0.707
	}

	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	// Normalize by a0
	b.b0 = float32(b0 / a0)
	b.b1 = float32(b1 / a0)
	b.b2 = float32(b2 / a0)
	b.a1 = float32(a1 / a0)
	b.a2 = float32(a2 / a0)
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I implementation
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	// Update state
	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = FlushDenormals(output)

	return b.y1
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
