package synth

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-synth/dsp"
)

const (
	// controlInterval is the automation tick, in samples. Filter sweeps are
	// evaluated at this rate; the amplitude envelope runs per sample.
	controlInterval = 64

	// releaseFloor is the near-silent level release ramps land on. Never
	// exactly zero: exponential ramps and log-domain math need a positive
	// endpoint.
	releaseFloor = 1e-4

	// closedCutoffHz is where the filter sweeps to while a voice releases.
	closedCutoffHz = 120.0

	// maxSweepCutoffHz caps the filter-envelope start point.
	maxSweepCutoffHz = 15000.0

	// minPluckSeconds floors the pluck transient length.
	minPluckSeconds = 0.05
)

type oscillator struct {
	harmonic int // 0-based harmonic index
	freq     float32
	gain     float32
	phase    float64
}

// Voice is one sounding note: a detuned harmonic oscillator bank with a
// shared vibrato LFO, optional pluck transient, a swept lowpass, optional
// saturation, and a static pan. Voices are exclusively owned by the
// Allocator, which drives their lifecycle through the engine scheduler.
type Voice struct {
	sampleRate int
	note       int
	velocity   float32
	preset     Preset

	startTime      float64
	releaseSeconds float64
	released       bool
	age            int // samples since note on

	oscs []oscillator

	vibRateHz float64
	vibDepth  float32 // cents at the fundamental
	vibPhase  float64

	noise []float32

	filter       *dsp.Biquad
	filterQ      float32
	cutoff       float32
	cutoffTarget float32
	cutoffCoef   float64
	cutoffTicks  int

	gain          float32
	peak          float32
	sustainLvl    float32
	attackSamples int
	attackStep    float32
	decayCoef     float32
	relCoef       float32

	curve      []float32
	panL, panR float32

	autoStopTimer TaskID
	cleanupTimer  TaskID
}

// newVoice builds the signal chain for one note at the given velocity
// (in [0,1]) from the preset. Random detune and pan are drawn once here and
// never re-randomized.
func newVoice(sampleRate int, note int, velocity float64, p Preset, rng *rand.Rand, startTime float64) *Voice {
	velocity = clampf(velocity, 0, 1)

	v := &Voice{
		sampleRate:     sampleRate,
		note:           note,
		velocity:       float32(velocity),
		preset:         p,
		startTime:      startTime,
		releaseSeconds: p.Release,
		vibRateHz:      p.VibratoRateHz,
		vibDepth:       float32(p.VibratoDepthCents),
		filterQ:        float32(p.FilterQ),
	}

	fundamental := midiNoteToFreq(note)
	nyquist := 0.5 * float32(sampleRate)
	spread := float32(p.DetuneSpreadCents)
	for i, amp := range p.Harmonics {
		if amp <= 0 {
			continue
		}
		freq := fundamental * float32(i+1)
		if freq > nyquist {
			continue
		}
		detuneCents := (rng.Float32() - 0.5) * spread
		gain := amp * rolloff(i) * 0.3
		v.oscs = append(v.oscs, oscillator{
			harmonic: i,
			freq:     freq * centsToRatio(detuneCents),
			gain:     gain,
		})
	}

	if p.PluckLevel > 0 {
		seconds := p.PluckDecayS
		if seconds < minPluckSeconds {
			seconds = minPluckSeconds
		}
		n := int(seconds * float64(sampleRate))
		v.noise = make([]float32, n)
		for i := range v.noise {
			t := float64(i) / float64(n)
			env := (1 - t) * (1 - t) * (1 - t)
			v.noise[i] = (rng.Float32()*2 - 1) * float32(p.PluckLevel*env)
		}
	}

	if p.Saturation > 0 {
		v.curve = saturationCurve(p.Saturation)
	}

	pan := float32(0)
	if p.StereoSpread > 0 {
		pan = (rng.Float32()*2 - 1) * float32(p.StereoSpread)
	}
	angle := float64(pan+1) * math.Pi / 4
	v.panL = float32(math.Cos(angle))
	v.panR = float32(math.Sin(angle))

	// Filter-envelope sweep: open by the envelope amount, close back down to
	// the preset cutoff over attack + half the decay.
	v.cutoffTarget = float32(p.FilterCutoffHz)
	v.cutoff = float32(math.Min(p.FilterCutoffHz*(1+p.FilterEnvAmount), maxSweepCutoffHz))
	v.filter = dsp.NewLowpass(v.cutoff, float32(sampleRate), v.filterQ)
	v.startCutoffRamp(v.cutoffTarget, p.Attack+p.Decay*0.5)

	// Linear attack to velocity-scaled peak, then one-pole approach toward
	// the sustain level with time constant decay*0.3.
	v.peak = v.velocity * 0.5
	v.sustainLvl = v.peak * float32(p.Sustain)
	v.attackSamples = int(p.Attack * float64(sampleRate))
	if v.attackSamples < 1 {
		v.attackSamples = 1
	}
	v.attackStep = v.peak / float32(v.attackSamples)
	tau := p.Decay * 0.3
	if tau <= 0 {
		tau = 1.0 / float64(sampleRate)
	}
	v.decayCoef = float32(1 - math.Exp(-1/(tau*float64(sampleRate))))

	return v
}

// rolloff is the fixed per-harmonic attenuation applied on top of the
// preset's declared amplitudes.
func rolloff(harmonic int) float32 {
	r := float32(1)
	for i := 0; i < harmonic; i++ {
		r *= 0.85
	}
	return r
}

func (v *Voice) startCutoffRamp(target float32, seconds float64) {
	if target < 1 {
		target = 1
	}
	ticks := int(seconds * float64(v.sampleRate) / controlInterval)
	if ticks < 1 {
		ticks = 1
	}
	v.cutoffTarget = target
	v.cutoffTicks = ticks
	v.cutoffCoef = math.Pow(float64(target)/float64(v.cutoff), 1/float64(ticks))
}

// release transitions the voice onto its exponential release ramp. Idempotent.
func (v *Voice) release() {
	if v.released {
		return
	}
	v.released = true

	relSamples := int(v.releaseSeconds * float64(v.sampleRate))
	if relSamples < 1 {
		relSamples = 1
	}
	g0 := float64(v.gain)
	if g0 < releaseFloor {
		g0 = releaseFloor
	}
	v.relCoef = float32(math.Exp(math.Log(releaseFloor/g0) / float64(relSamples)))

	// Close the filter over 80% of the release time, in parallel with the
	// amplitude ramp.
	v.startCutoffRamp(closedCutoffHz, 0.8*v.releaseSeconds)
}

// renderBlock accumulates up to controlInterval frames into the stereo
// accumulators. Filter automation advances once per call.
func (v *Voice) renderBlock(left, right []float32) {
	if v.cutoffTicks > 0 {
		v.cutoffTicks--
		if v.cutoffTicks == 0 {
			v.cutoff = v.cutoffTarget
		} else {
			v.cutoff = float32(float64(v.cutoff) * v.cutoffCoef)
		}
		v.filter.SetLowpass(v.cutoff, float32(v.sampleRate), v.filterQ)
	}

	twoPiOverSr := 2 * math.Pi / float64(v.sampleRate)
	vibStep := v.vibRateHz * twoPiOverSr

	for i := range left {
		var vibCents float32
		if v.vibDepth != 0 {
			vibCents = v.vibDepth * float32(math.Sin(v.vibPhase))
			v.vibPhase += vibStep
			if v.vibPhase > 2*math.Pi {
				v.vibPhase -= 2 * math.Pi
			}
		}

		var s float32
		for j := range v.oscs {
			o := &v.oscs[j]
			f := o.freq
			if vibCents != 0 {
				// The shared LFO feeds each harmonic scaled by its order, so
				// higher harmonics vibrato proportionally more.
				f *= centsToRatio(vibCents * float32(o.harmonic+1))
			}
			o.phase += float64(f) * twoPiOverSr
			if o.phase > 2*math.Pi {
				o.phase -= 2 * math.Pi
			}
			s += o.gain * float32(math.Sin(o.phase))
		}

		if v.age < len(v.noise) {
			s += v.noise[v.age]
		}

		s = v.filter.Process(s)
		if v.curve != nil {
			s = shapeSample(v.curve, s)
		}

		v.advanceEnvelope()
		s *= v.gain

		left[i] += s * v.panL
		right[i] += s * v.panR
		v.age++
	}
}

func (v *Voice) advanceEnvelope() {
	switch {
	case v.released:
		v.gain *= v.relCoef
		if v.gain < releaseFloor {
			v.gain = releaseFloor
		}
	case v.age < v.attackSamples:
		v.gain += v.attackStep
		if v.gain > v.peak {
			v.gain = v.peak
		}
	default:
		v.gain += v.decayCoef * (v.sustainLvl - v.gain)
	}
	v.gain = dsp.FlushDenormals(v.gain)
}

// ageSeconds reports how long the voice has been sounding.
func (v *Voice) ageSeconds() float64 {
	return float64(v.age) / float64(v.sampleRate)
}
