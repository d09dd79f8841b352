package synth

import (
	"math"
	"math/rand"
	"strings"
	"testing"
)

func newTestRecorder(snaps []VoiceSnapshot) (*Recorder, *scheduler) {
	sched := newScheduler(1000)
	rec := newRecorder(sched, func() []VoiceSnapshot {
		return append([]VoiceSnapshot(nil), snaps...)
	})
	return rec, sched
}

func TestRecorderImmediateAndDelayedSnapshots(t *testing.T) {
	snaps := []VoiceSnapshot{{Note: 60, Gain: 0.4, CutoffHz: 2000}}
	rec, sched := newTestRecorder(snaps)

	rec.Record(EventNoteOn, 60, "velocity=0.80 preset=test")

	entry := rec.Entries()[0]
	if len(entry.Immediate) != 1 || entry.Immediate[0].Note != 60 {
		t.Fatal("immediate snapshot missing or wrong")
	}
	if entry.Delayed != nil {
		t.Fatal("delayed snapshot present before the capture window")
	}

	sched.Advance(49) // 1ms short of the window
	if entry.Delayed != nil {
		t.Fatal("delayed snapshot fired early")
	}
	sched.Advance(2)
	if len(entry.Delayed) != 1 {
		t.Fatal("delayed snapshot did not fire at +50ms")
	}
	if entry.delayedTask != 0 {
		t.Fatal("fired capture did not clear its task handle")
	}
}

func TestRecorderRingEvictsOldestAndCancelsTimer(t *testing.T) {
	rec, sched := newTestRecorder(nil)

	for i := 0; i < maxLogEntries; i++ {
		rec.Record(EventNoteOn, i%128, "")
	}
	if rec.Count() != maxLogEntries {
		t.Fatalf("Count = %d, want %d", rec.Count(), maxLogEntries)
	}
	pendingBefore := sched.Pending()

	rec.Record(EventNoteOff, 0, "")
	if rec.Count() != maxLogEntries {
		t.Fatalf("ring grew past its limit: %d", rec.Count())
	}
	// One timer added for the new entry, one cancelled for the evicted one.
	if got := sched.Pending(); got != pendingBefore {
		t.Fatalf("pending timers = %d, want %d", got, pendingBefore)
	}

	entries := rec.Entries()
	if entries[0].Note != 1%128 || entries[len(entries)-1].Event != EventNoteOff {
		t.Fatal("eviction did not drop the oldest entry")
	}

	// Firing everything left must not touch the evicted entry.
	sched.Advance(1000)
	if sched.Pending() != 0 {
		t.Fatalf("%d timers survived the advance", sched.Pending())
	}
}

func TestRecorderClearCancelsAllTimers(t *testing.T) {
	rec, sched := newTestRecorder(nil)

	for i := 0; i < 10; i++ {
		rec.Record(EventNoteOn, 60, "")
	}
	rec.Clear()
	if rec.Count() != 0 {
		t.Fatalf("Count = %d after Clear", rec.Count())
	}
	if sched.Pending() != 0 {
		t.Fatalf("%d capture timers survived Clear", sched.Pending())
	}
}

func TestRecorderExportFormat(t *testing.T) {
	snaps := []VoiceSnapshot{{
		Note: 60, AgeSeconds: 0.125, Gain: 0.4, CutoffHz: 2000,
		Oscillators: []OscSnapshot{{Harmonic: 0, FreqHz: 261.6, Gain: 0.3}},
	}}
	rec, sched := newTestRecorder(snaps)

	rec.Record(EventNoteOn, 60, "velocity=0.80 preset=test")
	sched.Advance(100)
	rec.Record(EventStopAll, -1, "active=1")

	out := rec.Export()
	if !strings.HasPrefix(out, "voice engine log: 2 entries\n") {
		t.Fatalf("unexpected header: %q", out[:40])
	}
	for _, want := range []string{
		"#0001", "NOTE_ON", "note=60", "velocity=0.80 preset=test",
		"#0002", "STOP_ALL", "active=1",
		"immediate: 1 voice(s)", "delayed+50ms: 1 voice(s)",
		"h1=261.6Hz/0.300",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "STOP_ALL note=") {
		t.Fatal("note field emitted for a note-less event")
	}

	// Same state exports byte-identically.
	if out2 := rec.Export(); out2 != out {
		t.Fatal("export is not deterministic")
	}
}

func TestRecorderEntriesReturnsCopy(t *testing.T) {
	rec, _ := newTestRecorder(nil)
	rec.Record(EventNoteOn, 60, "")

	entries := rec.Entries()
	entries[0] = nil
	if rec.Entries()[0] == nil {
		t.Fatal("Entries exposed the recorder's backing slice")
	}
}

func TestSnapshotVoiceProjection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := testVoicePreset()
	p.Harmonics = []float32{1, 0.5}
	v := newVoice(44100, 69, 0.8, p, rng, 0)
	renderVoice(v, 441)

	snap := snapshotVoice(v)
	if snap.Note != 69 || snap.Released {
		t.Fatalf("unexpected projection: %+v", snap)
	}
	if len(snap.Oscillators) != 2 {
		t.Fatalf("projection has %d oscillators, want 2", len(snap.Oscillators))
	}
	if snap.Oscillators[0].FreqHz < 430 || snap.Oscillators[0].FreqHz > 450 {
		t.Fatalf("fundamental projected at %.1f Hz", snap.Oscillators[0].FreqHz)
	}
	if math.Abs(snap.AgeSeconds-441.0/44100) > 1e-9 {
		t.Fatalf("age after 441 frames = %f, want 0.01", snap.AgeSeconds)
	}
}
