package fitcommon

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-2, 0, 1, 0},
		{3, 0, 1, 1},
		{1, 1, 1, 1},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestParseWorkers(t *testing.T) {
	if n, err := ParseWorkers("3"); err != nil || n != 3 {
		t.Fatalf("ParseWorkers(3) = %d, %v", n, err)
	}
	if n, err := ParseWorkers(" Auto "); err != nil || n < 1 {
		t.Fatalf("ParseWorkers(auto) = %d, %v", n, err)
	}
	for _, bad := range []string{"", "0", "-2", "many"} {
		if _, err := ParseWorkers(bad); err == nil {
			t.Fatalf("ParseWorkers(%q) accepted", bad)
		}
	}
}

func TestMixdownMono(t *testing.T) {
	got := MixdownMono([]float32{1, 0, 0.5, -0.5, -1, -1})
	want := []float64{0.5, 0, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("frame %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %f, want 0", got)
	}
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-7 {
		t.Fatalf("RMS = %f, want 0.5", got)
	}
}
