package analysis

import "testing"

func BenchmarkSpectrumRMSEDB(b *testing.B) {
	const sr = 44100
	x := harmonicTone(sr, 220, []float64{1, 0.6, 0.4, 0.25}, 1.0, 0.8)
	y := harmonicTone(sr, 233.08, []float64{1, 0.3, 0.1}, 1.0, 0.5)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spectrumRMSEDB(x, y)
	}
}

func BenchmarkCompare(b *testing.B) {
	const sr = 44100
	ref := harmonicTone(sr, 261.63, []float64{1, 0.5, 0.3, 0.2}, 3.0, 0.9)
	cand := harmonicTone(sr, 261.63, []float64{1, 0.45, 0.35, 0.15}, 3.0, 0.7)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand, sr)
	}
}
