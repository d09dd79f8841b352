package synth

import (
	"fmt"
	"os"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
)

// effectsBus is the shared master chain every voice sums into: master gain,
// then a dry/wet crossfade around partitioned stereo reverb convolution,
// then a stereo compressor pair. One instance per engine.
type effectsBus struct {
	sampleRate int
	partSize   int

	mix    float32 // wet fraction in [0,1]; dry is always 1-mix
	volume float32

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]
	irLen    int

	wetL []float32
	wetR []float32

	compL *dynamics.Compressor
	compR *dynamics.Compressor
}

func newEffectsBus(sampleRate int, mix, volume float64) (*effectsBus, error) {
	b := &effectsBus{
		sampleRate: sampleRate,
		partSize:   controlInterval,
		mix:        float32(clampf(mix, 0, 1)),
		volume:     float32(volume),
	}
	b.SetIR([]float32{1}, []float32{1})

	var err error
	if b.compL, err = newBusCompressor(sampleRate); err != nil {
		return nil, err
	}
	if b.compR, err = newBusCompressor(sampleRate); err != nil {
		return nil, err
	}
	return b, nil
}

// newBusCompressor builds one channel of the master compressor: gentle
// glue settings rather than limiting.
func newBusCompressor(sampleRate int) (*dynamics.Compressor, error) {
	c, err := dynamics.NewCompressor(float64(sampleRate))
	if err != nil {
		return nil, err
	}
	if err := c.SetSampleRate(float64(sampleRate)); err != nil {
		return nil, err
	}
	if err := c.SetThreshold(-18); err != nil {
		return nil, err
	}
	if err := c.SetRatio(6); err != nil {
		return nil, err
	}
	if err := c.SetKnee(20); err != nil {
		return nil, err
	}
	if err := c.SetAttack(5); err != nil {
		return nil, err
	}
	if err := c.SetRelease(200); err != nil {
		return nil, err
	}
	return c, nil
}

// SetMix sets the reverb wet fraction. Values outside [0,1] clamp.
func (b *effectsBus) SetMix(mix float64) {
	b.mix = float32(clampf(mix, 0, 1))
}

// SetVolume sets the master gain applied ahead of the reverb send.
func (b *effectsBus) SetVolume(volume float64) {
	b.volume = float32(volume)
}

// SetIR configures the left/right reverb impulse responses. A construction
// failure keeps the previous convolvers running.
func (b *effectsBus) SetIR(leftIR, rightIR []float32) {
	if len(leftIR) == 0 {
		leftIR = []float32{1}
	}
	if len(rightIR) == 0 {
		rightIR = []float32{1}
	}

	leftOLA, errL := dspconv.NewStreamingOverlapAdd32(leftIR, b.partSize)
	rightOLA, errR := dspconv.NewStreamingOverlapAdd32(rightIR, b.partSize)
	if errL != nil || errR != nil {
		return
	}
	b.leftOLA = leftOLA
	b.rightOLA = rightOLA
	b.irLen = len(leftIR)
	if len(rightIR) > b.irLen {
		b.irLen = len(rightIR)
	}

	b.wetL = make([]float32, b.partSize)
	b.wetR = make([]float32, b.partSize)
	b.Reset()
}

// SetIRFromWAV loads a mono or stereo impulse response from a WAV file,
// resampling it to the bus rate when needed.
func (b *effectsBus) SetIRFromWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("invalid wav buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return fmt.Errorf("invalid wav sample-rate: %d", srcRate)
	}
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return fmt.Errorf("empty wav data: %s", path)
	}

	left := make([]float32, frames)
	right := make([]float32, frames)
	if numCh == 1 {
		for i := range frames {
			v := buf.Data[i]
			left[i] = v
			right[i] = v
		}
	} else {
		for i := range frames {
			left[i] = buf.Data[i*numCh]
			right[i] = buf.Data[i*numCh+1]
		}
	}

	left, err = b.resampleIfNeeded(left, srcRate)
	if err != nil {
		return err
	}
	right, err = b.resampleIfNeeded(right, srcRate)
	if err != nil {
		return err
	}
	b.SetIR(left, right)
	return nil
}

// Process runs one control block through the master chain in place: master
// gain, then the reverb crossfade, then the compressor as the final stage.
// Blocks must be exactly the partition size; anything else is left untouched
// so the convolver timeline never drifts against the dry path.
func (b *effectsBus) Process(left, right []float32) {
	if len(left) != b.partSize || len(right) != b.partSize {
		return
	}

	for i := range left {
		left[i] *= b.volume
		right[i] *= b.volume
	}

	errL := b.leftOLA.ProcessBlockTo(b.wetL, left)
	errR := b.rightOLA.ProcessBlockTo(b.wetR, right)
	wet := b.mix
	if errL != nil || errR != nil {
		wet = 0
	}
	dry := 1 - wet

	for i := range left {
		l := dry*left[i] + wet*b.wetL[i]
		r := dry*right[i] + wet*b.wetR[i]
		left[i] = float32(b.compL.ProcessSample(float64(l)))
		right[i] = float32(b.compR.ProcessSample(float64(r)))
	}
}

// Reset clears convolver and compressor history.
func (b *effectsBus) Reset() {
	if b.leftOLA != nil {
		b.leftOLA.Reset()
	}
	if b.rightOLA != nil {
		b.rightOLA.Reset()
	}
	if b.compL != nil {
		b.compL.Reset()
	}
	if b.compR != nil {
		b.compR.Reset()
	}
}

func (b *effectsBus) resampleIfNeeded(in []float32, inRate int) ([]float32, error) {
	if inRate == b.sampleRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(inRate),
		float64(b.sampleRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}

	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64 := r.Process(in64)
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}
