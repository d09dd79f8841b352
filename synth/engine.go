package synth

import (
	"math/rand"

	"github.com/cwbudde/algo-synth/irsynth"
)

// Config holds engine construction parameters. Zero-value fields are filled
// from DefaultConfig at construction.
type Config struct {
	Instrument string
	ReverbMix  float64
	Volume     float64

	// Seed drives per-voice randomness (detune, pan, pluck noise). IRSeed
	// drives reverb IR generation separately so the room does not change
	// with the voice seed.
	Seed   int64
	IRSeed int64

	// IRDurationS overrides the reverb IR length; <= 0 means the default.
	IRDurationS float64
}

func DefaultConfig() Config {
	return Config{
		Instrument:  DefaultPresetName,
		ReverbMix:   0.25,
		Volume:      0.8,
		Seed:        1,
		IRSeed:      1,
		IRDurationS: 1.2,
	}
}

const (
	maxVolume = 1.5
)

// Engine is the public facade over the whole voice chain: preset selection,
// voice allocation, the shared effects bus, the sample-clock scheduler, and
// the diagnostics recorder. It is not safe for concurrent use; realtime
// callers marshal onto one goroutine (see internal/audio).
//
// No Engine method returns an error. Bad inputs clamp or fall back, and a
// failed effects-bus build leaves the bus bypassed rather than killing
// playback.
type Engine struct {
	sampleRate int
	cfg        Config

	sched *scheduler
	rec   *Recorder
	alloc *Allocator
	bus   *effectsBus

	registered map[string]Preset
	instrument Preset

	initialized bool
	closed      bool

	blockL [controlInterval]float32
	blockR [controlInterval]float32

	// Rendered frames beyond a partial request, delivered first on the next
	// call so the bus only ever sees whole convolver partitions.
	carryL   [controlInterval]float32
	carryR   [controlInterval]float32
	carryLen int
	carryPos int
}

// NewEngine builds an engine at the given sample rate. The expensive parts
// (reverb IR, convolvers, compressors) are deferred to Init, which the first
// PlayNote triggers on its own.
func NewEngine(sampleRate int, cfg *Config) *Engine {
	def := DefaultConfig()
	c := def
	if cfg != nil {
		c = *cfg
		if c.Instrument == "" {
			c.Instrument = def.Instrument
		}
		if c.Seed == 0 {
			c.Seed = def.Seed
		}
		if c.IRSeed == 0 {
			c.IRSeed = def.IRSeed
		}
		if c.IRDurationS <= 0 {
			c.IRDurationS = def.IRDurationS
		}
	}
	c.ReverbMix = clampf(c.ReverbMix, 0, 1)
	c.Volume = clampf(c.Volume, 0, maxVolume)

	e := &Engine{
		sampleRate: sampleRate,
		cfg:        c,
		sched:      newScheduler(sampleRate),
		registered: make(map[string]Preset),
	}
	e.rec = newRecorder(e.sched, func() []VoiceSnapshot {
		if e.alloc == nil {
			return nil
		}
		return e.alloc.Snapshot()
	})
	e.alloc = newAllocator(sampleRate, e.sched, e.rec, rand.New(rand.NewSource(c.Seed)))
	e.instrument = e.lookup(c.Instrument)
	return e
}

// Init builds the effects bus and its procedural reverb IR. Idempotent, and
// called lazily by the first PlayNote, so explicit Init is only needed to
// front-load the IR generation cost.
func (e *Engine) Init() {
	if e.initialized || e.closed {
		return
	}
	e.initialized = true

	bus, err := newEffectsBus(e.sampleRate, e.cfg.ReverbMix, e.cfg.Volume)
	if err != nil {
		// Run dry: voices still render, just without the master chain.
		return
	}

	irCfg := irsynth.DefaultConfig()
	irCfg.SampleRate = e.sampleRate
	irCfg.DurationS = e.cfg.IRDurationS
	irCfg.Seed = e.cfg.IRSeed
	if left, right, err := irsynth.GenerateStereo(irCfg); err == nil {
		bus.SetIR(left, right)
	}
	e.bus = bus
}

// PlayNote starts a voice for the MIDI note at the given velocity in [0,1].
// Out-of-range notes are ignored; velocity clamps.
func (e *Engine) PlayNote(note int, velocity float64) {
	if e.closed || note < 0 || note > 127 {
		return
	}
	e.Init()
	e.alloc.NoteOn(note, velocity, e.instrument)
}

// StopNote releases the voice on the note, if one is sounding.
func (e *Engine) StopNote(note int) {
	if e.closed {
		return
	}
	e.alloc.NoteOff(note)
}

// StopAll releases every sounding voice.
func (e *Engine) StopAll() {
	if e.closed {
		return
	}
	e.alloc.StopAll()
}

// SetInstrument selects the preset for subsequent notes. Voices already
// sounding keep the preset they started with. Unknown names fall back to the
// default preset.
func (e *Engine) SetInstrument(name string) {
	if e.closed {
		return
	}
	e.instrument = e.lookup(name)
}

// RegisterPreset adds or replaces a named preset, shadowing a built-in of
// the same name. Presets with an empty name are ignored.
func (e *Engine) RegisterPreset(p Preset) {
	if e.closed || p.Name == "" {
		return
	}
	e.registered[p.Name] = clonePreset(p)
}

// SetReverbMix sets the wet fraction of the reverb crossfade. Clamps to [0,1].
func (e *Engine) SetReverbMix(mix float64) {
	if e.closed {
		return
	}
	e.cfg.ReverbMix = clampf(mix, 0, 1)
	if e.bus != nil {
		e.bus.SetMix(e.cfg.ReverbMix)
	}
}

// SetVolume sets the master gain. Clamps to [0,1.5].
func (e *Engine) SetVolume(volume float64) {
	if e.closed {
		return
	}
	e.cfg.Volume = clampf(volume, 0, maxVolume)
	if e.bus != nil {
		e.bus.SetVolume(e.cfg.Volume)
	}
}

// SetIRFromWAV replaces the procedural reverb IR with one loaded from a WAV
// file, resampled to the engine rate.
func (e *Engine) SetIRFromWAV(path string) error {
	if e.closed {
		return nil
	}
	e.Init()
	if e.bus == nil {
		return nil
	}
	return e.bus.SetIRFromWAV(path)
}

// Process renders the next frames of stereo interleaved audio.
func (e *Engine) Process(frames int) []float32 {
	if frames < 0 {
		frames = 0
	}
	out := make([]float32, frames*2)
	e.ProcessInto(out)
	return out
}

// ProcessInto renders stereo interleaved audio into dst (len(dst)/2 frames).
// Rendering always happens in whole control blocks so the effects bus sees
// full convolver partitions; frames beyond a partial request are carried
// over to the next call. The clock advances and scheduled tasks fire at
// control-block boundaries, so timing resolution is controlInterval samples.
func (e *Engine) ProcessInto(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	if e.closed {
		return
	}

	frames := len(dst) / 2
	done := 0
	for done < frames && e.carryPos < e.carryLen {
		dst[done*2] = e.carryL[e.carryPos]
		dst[done*2+1] = e.carryR[e.carryPos]
		e.carryPos++
		done++
	}

	for done < frames {
		left := e.blockL[:]
		right := e.blockR[:]
		for i := range left {
			left[i] = 0
			right[i] = 0
		}

		e.sched.Advance(controlInterval)
		e.alloc.Render(left, right)
		if e.bus != nil {
			e.bus.Process(left, right)
		}
		for i := range left {
			if !isFinite(left[i]) {
				left[i] = 0
			}
			if !isFinite(right[i]) {
				right[i] = 0
			}
		}

		n := controlInterval
		if frames-done < n {
			n = frames - done
		}
		for i := 0; i < n; i++ {
			dst[(done+i)*2] = left[i]
			dst[(done+i)*2+1] = right[i]
		}
		if n < controlInterval {
			e.carryLen = copy(e.carryL[:], left[n:])
			copy(e.carryR[:], right[n:])
			e.carryPos = 0
		}
		done += n
	}
}

// ActiveVoices reports the number of allocated voices, including released
// tails that have not been cleaned up yet.
func (e *Engine) ActiveVoices() int {
	if e.closed {
		return 0
	}
	return e.alloc.ActiveVoices()
}

// ExportLog returns the diagnostics log as a text report.
func (e *Engine) ExportLog() string {
	return e.rec.Export()
}

// ClearLog empties the diagnostics log.
func (e *Engine) ClearLog() {
	e.rec.Clear()
}

// LogCount reports the number of diagnostics entries currently held.
func (e *Engine) LogCount() int {
	return e.rec.Count()
}

// Close stops all voices, cancels every pending task, and renders the engine
// inert. All further calls are no-ops.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.carryLen = 0
	e.carryPos = 0
	e.alloc.Shutdown()
	e.rec.Clear()
	e.sched.Reset()
	if e.bus != nil {
		e.bus.Reset()
	}
}

// lookup resolves a preset name against registered presets first, then the
// built-in catalog with its default fallback.
func (e *Engine) lookup(name string) Preset {
	if p, ok := e.registered[name]; ok {
		return clonePreset(p)
	}
	return LookupPreset(name)
}
