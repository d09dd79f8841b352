package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource produces stereo interleaved float32 audio on demand.
type SampleSource interface {
	ProcessInto(dst []float32)
}

// StreamReader adapts a SampleSource to the io.Reader the audio backend
// pulls from: 32-bit little-endian float frames, 8 bytes per stereo frame.
// The lock serializes audio pulls against Sync callbacks, so engine mutation
// from the UI side never races the render.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.ProcessInto(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	return frames * 8, nil
}

// Sync runs fn while holding the stream lock. All control calls into the
// source (note on/off, parameter changes) must go through here.
func (r *StreamReader) Sync(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

func (r *StreamReader) Close() error { return nil }

// Player owns the platform audio player pulling from a StreamReader.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide audio context. The backend
// allows only one context per process, created at a fixed sample rate.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Sync runs fn with the audio stream paused at a block boundary.
func (p *Player) Sync(fn func()) { p.reader.Sync(fn) }

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
