package synth

import (
	"fmt"
	"strings"
)

// Event names a loggable voice-lifecycle transition.
type Event string

const (
	EventNoteOn       Event = "NOTE_ON"
	EventNoteOff      Event = "NOTE_OFF"
	EventVoiceSteal   Event = "VOICE_STEAL"
	EventVoiceRelease Event = "VOICE_RELEASE"
	EventStopAll      Event = "STOP_ALL"
)

const (
	// maxLogEntries bounds the diagnostics ring; the oldest entry is evicted
	// FIFO past this point.
	maxLogEntries = 1000

	// delayedCaptureSeconds is how long after an event the second snapshot
	// fires, to observe envelope/filter movement just after the event.
	delayedCaptureSeconds = 0.050
)

// OscSnapshot reports one oscillator of a voice at snapshot time.
type OscSnapshot struct {
	Harmonic int
	FreqHz   float32
	Gain     float32
}

// VoiceSnapshot is a read-only diagnostic projection of a Voice. It reports
// synthesis state and must never be used to drive it.
type VoiceSnapshot struct {
	Note        int
	AgeSeconds  float64
	Released    bool
	Gain        float32
	CutoffHz    float32
	Oscillators []OscSnapshot
}

func snapshotVoice(v *Voice) VoiceSnapshot {
	snap := VoiceSnapshot{
		Note:       v.note,
		AgeSeconds: v.ageSeconds(),
		Released:   v.released,
		Gain:       v.gain,
		CutoffHz:   v.cutoff,
	}
	snap.Oscillators = make([]OscSnapshot, 0, len(v.oscs))
	for _, o := range v.oscs {
		snap.Oscillators = append(snap.Oscillators, OscSnapshot{
			Harmonic: o.harmonic,
			FreqHz:   o.freq,
			Gain:     o.gain,
		})
	}
	return snap
}

// LogEntry is one recorded event with voice snapshots taken at the event and
// 50ms after it.
type LogEntry struct {
	Timestamp float64 // engine clock, seconds
	Event     Event
	Note      int // -1 when the event has no subject note
	Message   string
	Immediate []VoiceSnapshot
	Delayed   []VoiceSnapshot

	delayedTask TaskID
}

// Recorder keeps a bounded ring of log entries. It owns the delayed-capture
// timers; evicting or clearing an entry cancels its pending capture so no
// orphaned callback ever writes into a dropped entry.
type Recorder struct {
	sched    *scheduler
	snapshot func() []VoiceSnapshot
	entries  []*LogEntry
}

func newRecorder(sched *scheduler, snapshot func() []VoiceSnapshot) *Recorder {
	return &Recorder{sched: sched, snapshot: snapshot}
}

// Record appends an entry with an immediate snapshot and schedules its
// delayed snapshot. Inserting past the ring limit evicts the oldest entry
// and cancels that entry's pending capture timer.
func (r *Recorder) Record(event Event, note int, message string) {
	entry := &LogEntry{
		Timestamp: r.sched.Now(),
		Event:     event,
		Note:      note,
		Message:   message,
		Immediate: r.snapshot(),
	}
	entry.delayedTask = r.sched.AfterSeconds(delayedCaptureSeconds, func() {
		entry.Delayed = r.snapshot()
		entry.delayedTask = 0
	})

	if len(r.entries) >= maxLogEntries {
		evicted := r.entries[0]
		r.sched.Cancel(evicted.delayedTask)
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, entry)
}

// Count returns the number of entries currently held.
func (r *Recorder) Count() int {
	return len(r.entries)
}

// Entries returns the current ring contents, oldest first.
func (r *Recorder) Entries() []*LogEntry {
	return append([]*LogEntry(nil), r.entries...)
}

// Clear removes every entry and cancels all pending delayed captures.
func (r *Recorder) Clear() {
	for _, entry := range r.entries {
		r.sched.Cancel(entry.delayedTask)
	}
	r.entries = nil
}

// Export renders the ring as a deterministic human-readable report.
func (r *Recorder) Export() string {
	var b strings.Builder
	fmt.Fprintf(&b, "voice engine log: %d entries\n", len(r.entries))
	for i, entry := range r.entries {
		fmt.Fprintf(&b, "#%04d [%9.3fs] %-13s", i+1, entry.Timestamp, entry.Event)
		if entry.Note >= 0 {
			fmt.Fprintf(&b, " note=%d", entry.Note)
		}
		if entry.Message != "" {
			fmt.Fprintf(&b, " %s", entry.Message)
		}
		b.WriteByte('\n')
		writeSnapshots(&b, "immediate", entry.Immediate)
		writeSnapshots(&b, "delayed+50ms", entry.Delayed)
	}
	return b.String()
}

func writeSnapshots(b *strings.Builder, label string, snaps []VoiceSnapshot) {
	fmt.Fprintf(b, "  %s: %d voice(s)\n", label, len(snaps))
	for _, s := range snaps {
		fmt.Fprintf(b, "    note=%-3d age=%7.3fs released=%-5v gain=%.5f cutoff=%7.1fHz",
			s.Note, s.AgeSeconds, s.Released, s.Gain, s.CutoffHz)
		for _, o := range s.Oscillators {
			fmt.Fprintf(b, " h%d=%.1fHz/%.3f", o.Harmonic+1, o.FreqHz, o.Gain)
		}
		b.WriteByte('\n')
	}
}
