package synth

import (
	"math"
	"math/rand"
	"testing"
)

// quietTone keeps the test signal well under the compressor knee so the
// master chain is gain-transparent and assertions stay linear.
func quietTone(frames int, sr int) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = 0.01 * float32(math.Sin(2*math.Pi*440*float64(i)/float64(sr)))
	}
	return out
}

func processAll(b *effectsBus, left, right []float32) {
	for done := 0; done+b.partSize <= len(left); done += b.partSize {
		b.Process(left[done:done+b.partSize], right[done:done+b.partSize])
	}
}

func TestBusIdentityIRIsMixInvariant(t *testing.T) {
	const sr = 44100
	// Convolving with a unit impulse reproduces the dry signal, so the
	// crossfade must cancel out at the extremes and anywhere in between.
	in := quietTone(512, sr)
	var want []float32
	for _, mix := range []float64{0, 0.37, 1} {
		b, err := newEffectsBus(sr, mix, 1)
		if err != nil {
			t.Fatal(err)
		}
		l := append([]float32(nil), in...)
		r := append([]float32(nil), in...)
		processAll(b, l, r)
		if want == nil {
			want = l
			continue
		}
		for i := range l {
			if math.Abs(float64(l[i]-want[i])) > 1e-4 {
				t.Fatalf("mix %.2f changed output under identity IR at %d: %f vs %f", mix, i, l[i], want[i])
			}
		}
	}
}

func TestBusDryPathIgnoresIR(t *testing.T) {
	const sr = 44100
	a, err := newEffectsBus(sr, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newEffectsBus(sr, 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(2))
	ir := make([]float32, 4096)
	for i := range ir {
		ir[i] = (rng.Float32()*2 - 1) * 0.1
	}
	b.SetIR(ir, ir)

	in := quietTone(512, sr)
	al := append([]float32(nil), in...)
	ar := append([]float32(nil), in...)
	bl := append([]float32(nil), in...)
	br := append([]float32(nil), in...)
	processAll(a, al, ar)
	processAll(b, bl, br)

	for i := range al {
		if al[i] != bl[i] {
			t.Fatalf("dry-only output depends on the IR at %d", i)
		}
	}
}

func TestBusReverbTailExtendsSignal(t *testing.T) {
	const sr = 44100
	b, err := newEffectsBus(sr, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(3))
	ir := make([]float32, 2048)
	for i := range ir {
		ir[i] = (rng.Float32()*2 - 1) * 0.05
	}
	b.SetIR(ir, ir)

	// One quiet burst, then silence. The wet path must ring past the input.
	left := make([]float32, 4096)
	right := make([]float32, 4096)
	burst := quietTone(64, sr)
	copy(left, burst)
	copy(right, burst)
	processAll(b, left, right)

	var tail float64
	for i := 1024; i < len(left); i++ {
		if !isFinite(left[i]) || !isFinite(right[i]) {
			t.Fatalf("non-finite sample at %d", i)
		}
		tail += float64(left[i] * left[i])
	}
	if tail == 0 {
		t.Fatal("expected a reverb tail after the burst")
	}
}

func TestBusVolumeScalesOutput(t *testing.T) {
	const sr = 44100
	full, err := newEffectsBus(sr, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	half, err := newEffectsBus(sr, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	in := quietTone(256, sr)
	fl := append([]float32(nil), in...)
	fr := append([]float32(nil), in...)
	hl := append([]float32(nil), in...)
	hr := append([]float32(nil), in...)
	processAll(full, fl, fr)
	processAll(half, hl, hr)

	for i := range fl {
		if math.Abs(float64(hl[i]-0.5*fl[i])) > 1e-5 {
			t.Fatalf("volume not linear at %d: %f vs half of %f", i, hl[i], fl[i])
		}
	}
}

func TestBusSetMixClamps(t *testing.T) {
	b, err := newEffectsBus(44100, 0.5, 1)
	if err != nil {
		t.Fatal(err)
	}
	b.SetMix(2)
	if b.mix != 1 {
		t.Fatalf("mix = %f after SetMix(2), want 1", b.mix)
	}
	b.SetMix(-1)
	if b.mix != 0 {
		t.Fatalf("mix = %f after SetMix(-1), want 0", b.mix)
	}
}

func TestBusSetIREmptyFallsBackToImpulse(t *testing.T) {
	b, err := newEffectsBus(44100, 0.5, 1)
	if err != nil {
		t.Fatal(err)
	}
	b.SetIR(nil, nil)
	if b.irLen != 1 {
		t.Fatalf("irLen = %d after empty SetIR, want 1", b.irLen)
	}
}

func TestBusIgnoresShortBlocks(t *testing.T) {
	const sr = 44100
	b, err := newEffectsBus(sr, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	left := quietTone(17, sr)
	right := append([]float32(nil), left...)
	want := append([]float32(nil), left...)
	b.Process(left, right)
	for i := range left {
		if left[i] != want[i] || right[i] != want[i] {
			t.Fatalf("short block modified at %d: %f vs %f", i, left[i], want[i])
		}
	}
}
