package synth

import (
	"fmt"
	"math/rand"
	"sort"
)

// MaxPolyphony is the hard ceiling on simultaneously sounding voices.
// Reaching it triggers oldest-first stealing rather than an error.
const MaxPolyphony = 24

// cleanupGraceSeconds is added after a voice's release time before its
// resources are freed, so the ramp tail decays inaudibly first.
const cleanupGraceSeconds = 0.150

// Allocator owns every Voice and its pending timers. One voice per MIDI note
// at most; voices displaced by retrigger or stealing move to a dying list
// that keeps rendering their release tails until cleanup.
type Allocator struct {
	sampleRate int
	sched      *scheduler
	rec        *Recorder
	rng        *rand.Rand

	notes map[int]*Voice
	dying []*Voice
}

func newAllocator(sampleRate int, sched *scheduler, rec *Recorder, rng *rand.Rand) *Allocator {
	return &Allocator{
		sampleRate: sampleRate,
		sched:      sched,
		rec:        rec,
		rng:        rng,
		notes:      make(map[int]*Voice),
	}
}

// NoteOn allocates a voice for the note. An existing voice on the same note
// is forced into release first, and the oldest voice is stolen when the
// polyphony ceiling is hit.
func (a *Allocator) NoteOn(note int, velocity float64, p Preset) {
	if old, ok := a.notes[note]; ok {
		a.evict(old)
	}

	if a.unreleasedCount() >= MaxPolyphony {
		if victim := a.oldestUnreleased(); victim != nil {
			a.rec.Record(EventVoiceSteal, victim.note,
				fmt.Sprintf("polyphony %d reached, stealing oldest", MaxPolyphony))
			a.evict(victim)
		}
	}

	v := newVoice(a.sampleRate, note, velocity, p, a.rng, a.sched.Now())
	v.autoStopTimer = a.sched.AfterSeconds(autoStopSeconds(p), func() {
		if a.notes[note] == v && !v.released {
			a.releaseVoice(v)
		}
	})
	a.notes[note] = v
	a.rec.Record(EventNoteOn, note, fmt.Sprintf("velocity=%.2f preset=%s", velocity, p.Name))
}

// NoteOff releases the voice on the note. Notes with no sounding voice are a
// strict no-op: no state change, no log entry.
func (a *Allocator) NoteOff(note int) {
	v, ok := a.notes[note]
	if !ok || v.released {
		return
	}
	a.rec.Record(EventNoteOff, note, "")
	a.releaseVoice(v)
}

// StopAll releases every sounding voice and logs a single STOP_ALL entry
// with the pre-call active count.
func (a *Allocator) StopAll() {
	active := len(a.notes)
	a.rec.Record(EventStopAll, -1, fmt.Sprintf("active=%d", active))

	for _, note := range a.sortedNotes() {
		if v := a.notes[note]; !v.released {
			a.releaseVoice(v)
		}
	}
}

// releaseVoice puts a voice on its release ramp and schedules cleanup.
// Idempotent: already-released voices are untouched.
func (a *Allocator) releaseVoice(v *Voice) {
	if v.released {
		return
	}
	a.sched.Cancel(v.autoStopTimer)
	v.autoStopTimer = 0
	v.release()
	v.cleanupTimer = a.sched.AfterSeconds(v.releaseSeconds+cleanupGraceSeconds, func() {
		a.cleanup(v)
	})
	a.rec.Record(EventVoiceRelease, v.note, "")
}

// evict releases a voice and removes it from the note map immediately; the
// tail keeps rendering from the dying list until its cleanup timer fires.
func (a *Allocator) evict(v *Voice) {
	a.releaseVoice(v)
	if a.notes[v.note] == v {
		delete(a.notes, v.note)
		a.dying = append(a.dying, v)
	}
}

// cleanup frees a voice's graph state and erases it from the allocator.
// Pointer identity guards against a note slot that has been reused since
// the timer was scheduled.
func (a *Allocator) cleanup(v *Voice) {
	if a.notes[v.note] == v {
		delete(a.notes, v.note)
	} else {
		for i, d := range a.dying {
			if d == v {
				a.dying = append(a.dying[:i], a.dying[i+1:]...)
				break
			}
		}
	}
	v.cleanupTimer = 0
	v.oscs = nil
	v.noise = nil
	v.curve = nil
	v.filter = nil
}

// Render accumulates one control block from every live voice into the
// stereo buffers. Note order is fixed so block sums are reproducible.
func (a *Allocator) Render(left, right []float32) {
	for _, note := range a.sortedNotes() {
		a.notes[note].renderBlock(left, right)
	}
	for _, v := range a.dying {
		v.renderBlock(left, right)
	}
}

// ActiveVoices reports the number of notes currently occupying the map,
// including released voices whose cleanup has not fired yet.
func (a *Allocator) ActiveVoices() int {
	return len(a.notes)
}

// Shutdown cancels every pending voice timer and drops all voices without
// waiting for release tails. Used on engine teardown.
func (a *Allocator) Shutdown() {
	for _, v := range a.notes {
		a.sched.Cancel(v.autoStopTimer)
		a.sched.Cancel(v.cleanupTimer)
	}
	for _, v := range a.dying {
		a.sched.Cancel(v.cleanupTimer)
	}
	a.notes = make(map[int]*Voice)
	a.dying = nil
}

// Snapshot captures a diagnostic projection of every live voice, sorted by
// note then start time. Snapshots only report synthesis state; they never
// drive it.
func (a *Allocator) Snapshot() []VoiceSnapshot {
	voices := make([]*Voice, 0, len(a.notes)+len(a.dying))
	for _, v := range a.notes {
		voices = append(voices, v)
	}
	voices = append(voices, a.dying...)
	sort.Slice(voices, func(i, j int) bool {
		if voices[i].note != voices[j].note {
			return voices[i].note < voices[j].note
		}
		return voices[i].startTime < voices[j].startTime
	})

	out := make([]VoiceSnapshot, 0, len(voices))
	for _, v := range voices {
		out = append(out, snapshotVoice(v))
	}
	return out
}

func (a *Allocator) unreleasedCount() int {
	n := 0
	for _, v := range a.notes {
		if !v.released {
			n++
		}
	}
	return n
}

// oldestUnreleased returns the steal victim: smallest start time, ties
// broken by lowest note so the choice is deterministic.
func (a *Allocator) oldestUnreleased() *Voice {
	var victim *Voice
	for _, v := range a.notes {
		if v.released {
			continue
		}
		if victim == nil ||
			v.startTime < victim.startTime ||
			(v.startTime == victim.startTime && v.note < victim.note) {
			victim = v
		}
	}
	return victim
}

func (a *Allocator) sortedNotes() []int {
	notes := make([]int, 0, len(a.notes))
	for note := range a.notes {
		notes = append(notes, note)
	}
	sort.Ints(notes)
	return notes
}

// autoStopSeconds is the safety-net lifetime cap for a voice whose note-off
// never arrives: min(8s, max(4s, 2*decay + 2*release + 1s)).
func autoStopSeconds(p Preset) float64 {
	s := 2*p.Decay + 2*p.Release + 1
	if s < 4 {
		s = 4
	}
	if s > 8 {
		s = 8
	}
	return s
}
