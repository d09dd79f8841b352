package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	intaudio "github.com/cwbudde/algo-synth/internal/audio"
	"github.com/cwbudde/algo-synth/synth"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 44100, "output sample rate")
		instrument = flag.String("instrument", synth.DefaultPresetName, "instrument preset name")
		notesFlag  = flag.String("notes", "60,64,67,72", "comma-separated MIDI notes to arpeggiate")
		velocity   = flag.Float64("velocity", 0.8, "note velocity in [0,1]")
		noteLen    = flag.Float64("note-length", 0.4, "seconds between note-ons")
		hold       = flag.Float64("hold", 0.8, "seconds each note is held before note-off")
		repeats    = flag.Int("repeats", 2, "how many times to play the sequence")
		reverbMix  = flag.Float64("reverb", 0.25, "reverb wet mix in [0,1]")
		volume     = flag.Float64("volume", 0.8, "master volume in [0,1.5]")
		tail       = flag.Float64("tail", 2.0, "seconds to keep playing after the last note-off")
	)
	flag.Parse()

	notes, err := parseNotes(*notesFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg := synth.DefaultConfig()
	cfg.Instrument = *instrument
	cfg.ReverbMix = *reverbMix
	cfg.Volume = *volume

	eng := synth.NewEngine(*sampleRate, &cfg)
	defer eng.Close()
	eng.Init()

	player, err := intaudio.NewPlayer(*sampleRate, eng)
	if err != nil {
		log.Fatal(err)
	}
	player.Play()

	fmt.Printf("Playing %v on %q (%d Hz)...\n", notes, *instrument, *sampleRate)

	type event struct {
		at   time.Duration
		note int
		on   bool
	}
	events := make([]event, 0, len(notes)*2**repeats)
	for rep := 0; rep < *repeats; rep++ {
		base := time.Duration(float64(rep*len(notes)) * *noteLen * float64(time.Second))
		for i, n := range notes {
			on := base + time.Duration(float64(i)**noteLen*float64(time.Second))
			events = append(events,
				event{at: on, note: n, on: true},
				event{at: on + time.Duration(*hold*float64(time.Second)), note: n, on: false})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].at < events[j].at })

	start := time.Now()
	for _, ev := range events {
		if d := time.Until(start.Add(ev.at)); d > 0 {
			time.Sleep(d)
		}
		ev := ev
		player.Sync(func() {
			if ev.on {
				eng.PlayNote(ev.note, *velocity)
			} else {
				eng.StopNote(ev.note)
			}
		})
	}

	time.Sleep(time.Duration(*tail * float64(time.Second)))
	if err := player.Stop(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("done")
}

func parseNotes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	notes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 127 {
			return nil, fmt.Errorf("invalid note %q", part)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}
