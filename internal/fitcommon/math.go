package fitcommon

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MixdownMono folds interleaved stereo float32 frames into mono float64.
func MixdownMono(interleaved []float32) []float64 {
	out := make([]float64, len(interleaved)/2)
	for i := range out {
		out[i] = 0.5 * (float64(interleaved[i*2]) + float64(interleaved[i*2+1]))
	}
	return out
}

// RMS over all samples regardless of channel layout.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// ParseWorkers parses a worker-count flag value. "auto" resolves to the CPU
// count, so the result is always >= 1 on success.
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}
