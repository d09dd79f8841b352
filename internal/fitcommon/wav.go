package fitcommon

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadMonoWAV reads a WAV file and folds all channels into one.
func ReadMonoWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("read %s: not a wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate < 1 {
		return nil, 0, fmt.Errorf("read %s: malformed format chunk", path)
	}

	ch := buf.Format.NumChannels
	out := make([]float64, len(buf.Data)/ch)
	scale := 1.0 / float64(ch)
	for i := range out {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum * scale
	}
	return out, buf.Format.SampleRate, nil
}

// ReadMonoWAVAtRate reads a mono mixdown and resamples it to rate. Every cmd
// that consumes a reference recording wants exactly this pairing.
func ReadMonoWAVAtRate(path string, rate int) ([]float64, error) {
	samples, srcRate, err := ReadMonoWAV(path)
	if err != nil {
		return nil, err
	}
	return Resample(samples, srcRate, rate)
}

// Resample converts between sample rates; a matching rate passes through.
func Resample(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d Hz: %w", fromRate, toRate, err)
	}
	return r.Process(in), nil
}

// WriteMonoWAV writes 16-bit mono PCM, creating parent directories.
func WriteMonoWAV(path string, samples []float32, sampleRate int) error {
	return writePCM16(path, samples, sampleRate, 1)
}

// WriteStereoWAV interleaves two equal-length channels and writes 16-bit
// stereo PCM.
func WriteStereoWAV(path string, left []float32, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("write %s: %d left vs %d right samples", path, len(left), len(right))
	}
	data := make([]float32, len(left)*2)
	for i, v := range left {
		data[i*2] = v
		data[i*2+1] = right[i]
	}
	return writePCM16(path, data, sampleRate, 2)
}

// WriteInterleavedWAV writes already-interleaved stereo as 16-bit PCM.
func WriteInterleavedWAV(path string, samples []float32, sampleRate int) error {
	return writePCM16(path, samples, sampleRate, 2)
}

func writePCM16(path string, data []float32, sampleRate int, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	defer enc.Close()
	return enc.Write(&audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: 16,
	})
}
