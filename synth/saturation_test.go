package synth

import (
	"math"
	"testing"
)

func TestSaturationCurveShared(t *testing.T) {
	a := saturationCurve(0.35)
	b := saturationCurve(0.35)
	if len(a) == 0 || len(b) == 0 {
		t.Fatal("expected non-empty curves")
	}
	if &a[0] != &b[0] {
		t.Fatal("expected the same amount to share one table")
	}
	c := saturationCurve(0.5)
	if &a[0] == &c[0] {
		t.Fatal("different amounts must not share a table")
	}
}

func TestSaturationCurveZeroAmount(t *testing.T) {
	if curve := saturationCurve(0); curve != nil {
		t.Fatal("expected nil curve for zero amount")
	}
	if curve := saturationCurve(-1); curve != nil {
		t.Fatal("expected nil curve for negative amount")
	}
}

func TestSaturationCurveBoundedAndOdd(t *testing.T) {
	curve := saturationCurve(0.8)
	for i, v := range curve {
		if math.Abs(float64(v)) > 1.0001 {
			t.Fatalf("curve[%d] = %f exceeds unit range", i, v)
		}
	}
	// Symmetric table: f(-x) = -f(x).
	n := len(curve)
	for i := 0; i < n/2; i++ {
		if math.Abs(float64(curve[i]+curve[n-1-i])) > 1e-5 {
			t.Fatalf("curve not odd-symmetric at %d: %f vs %f", i, curve[i], curve[n-1-i])
		}
	}
}

func TestShapeSampleMonotonic(t *testing.T) {
	curve := saturationCurve(0.6)
	prev := shapeSample(curve, -1)
	for x := float32(-0.99); x <= 1; x += 0.01 {
		y := shapeSample(curve, x)
		if y < prev-1e-6 {
			t.Fatalf("waveshaper not monotonic at x=%f: %f < %f", x, y, prev)
		}
		prev = y
	}
}

func TestShapeSampleClampsOutOfRange(t *testing.T) {
	curve := saturationCurve(0.6)
	lo := shapeSample(curve, -2)
	hi := shapeSample(curve, 2)
	if lo != curve[0] {
		t.Fatalf("expected clamp to table start, got %f", lo)
	}
	if hi != curve[len(curve)-1] {
		t.Fatalf("expected clamp to table end, got %f", hi)
	}
}

func TestShapeSampleNilCurvePassthrough(t *testing.T) {
	if got := shapeSample(nil, 0.3); got != 0.3 {
		t.Fatalf("expected passthrough for nil curve, got %f", got)
	}
}
