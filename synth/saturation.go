package synth

import (
	"math"
	"sync"
)

const saturationCurveLen = 2048

// Saturation curves are moderately large lookup tables; voices with the same
// rounded amount share one table instead of reallocating per note.
var (
	saturationMu     sync.Mutex
	saturationCurves = map[int64][]float32{}
)

// saturationCurve returns a shared waveshaping table for the given amount,
// keyed by the amount rounded to 3 decimal places.
func saturationCurve(amount float64) []float32 {
	key := int64(math.Round(amount * 1000))
	if key <= 0 {
		return nil
	}

	saturationMu.Lock()
	defer saturationMu.Unlock()
	if curve, ok := saturationCurves[key]; ok {
		return curve
	}

	k := float64(key) / 1000.0 * 8.0
	curve := make([]float32, saturationCurveLen)
	for i := range curve {
		x := float64(i)/(saturationCurveLen-1)*2.0 - 1.0
		curve[i] = float32((1.0 + k) * x / (1.0 + k*math.Abs(x)))
	}
	saturationCurves[key] = curve
	return curve
}

// shapeSample applies the lookup table to one sample with linear
// interpolation between table entries. Inputs outside [-1,1] clamp to the
// table edges, which is the hard-limit behavior a saturator wants anyway.
func shapeSample(curve []float32, x float32) float32 {
	if len(curve) == 0 {
		return x
	}
	pos := (float64(x) + 1.0) * 0.5 * float64(len(curve)-1)
	if pos <= 0 {
		return curve[0]
	}
	if pos >= float64(len(curve)-1) {
		return curve[len(curve)-1]
	}
	idx := int(pos)
	frac := float32(pos - float64(idx))
	return curve[idx] + frac*(curve[idx+1]-curve[idx])
}
