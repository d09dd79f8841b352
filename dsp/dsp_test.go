package dsp

import (
	"math"
	"testing"
)

func TestLowpassPassesDCAndAttenuatesHigh(t *testing.T) {
	const sr = 48000.0
	b := NewLowpass(1000, sr, 0.707)

	// DC settles to unity gain.
	var out float32
	for i := 0; i < 4800; i++ {
		out = b.Process(1.0)
	}
	if math.Abs(float64(out)-1.0) > 0.01 {
		t.Fatalf("DC gain = %f, want ~1", out)
	}

	// A tone far above cutoff comes out heavily attenuated.
	b.Reset()
	freq := 12000.0
	var peak float64
	for i := 0; i < 9600; i++ {
		x := float32(math.Sin(2 * math.Pi * freq * float64(i) / sr))
		y := float64(b.Process(x))
		if i > 4800 && math.Abs(y) > peak {
			peak = math.Abs(y)
		}
	}
	if peak > 0.05 {
		t.Fatalf("12kHz through 1kHz lowpass peaked at %f, want < 0.05", peak)
	}
}

func TestSetLowpassPreservesState(t *testing.T) {
	const sr = 48000.0
	b := NewLowpass(2000, sr, 0.707)

	// Drive with a tone, then retune mid-stream. The first sample after the
	// retune must not jump discontinuously.
	var last float32
	for i := 0; i < 1000; i++ {
		last = b.Process(float32(math.Sin(2 * math.Pi * 440 * float64(i) / sr)))
	}
	b.SetLowpass(1500, sr, 0.707)
	next := b.Process(float32(math.Sin(2 * math.Pi * 440 * 1000.0 / sr)))
	if math.Abs(float64(next-last)) > 0.2 {
		t.Fatalf("retune caused discontinuity: %f -> %f", last, next)
	}
}

func TestSetLowpassClampsCutoff(t *testing.T) {
	const sr = 48000.0
	b := NewLowpass(100000, sr, 0.707) // above Nyquist, must clamp

	for i := 0; i < 1000; i++ {
		y := b.Process(float32(math.Sin(2 * math.Pi * 440 * float64(i) / sr)))
		if math.IsNaN(float64(y)) || math.IsInf(float64(y), 0) {
			t.Fatalf("non-finite output at %d with clamped cutoff", i)
		}
	}

	b2 := NewLowpass(0, sr, 0) // zero cutoff and Q fall back to sane values
	for i := 0; i < 1000; i++ {
		y := b2.Process(1.0)
		if math.IsNaN(float64(y)) || math.IsInf(float64(y), 0) {
			t.Fatalf("non-finite output at %d with floored cutoff", i)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	b := NewLowpass(1000, 48000, 0.707)
	for i := 0; i < 100; i++ {
		b.Process(1.0)
	}
	b.Reset()
	first := b.Process(0)
	if first != 0 {
		t.Fatalf("expected zero output after Reset with zero input, got %f", first)
	}
}

func TestFlushDenormals(t *testing.T) {
	if got := FlushDenormals(1e-35); got != 0 {
		t.Fatalf("expected denormal flushed to zero, got %g", got)
	}
	if got := FlushDenormals(0.5); got != 0.5 {
		t.Fatalf("expected normal value untouched, got %g", got)
	}
	if got := FlushDenormals(-1e-35); got != 0 {
		t.Fatalf("expected negative denormal flushed to zero, got %g", got)
	}
}
