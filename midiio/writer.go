package midiio

import (
	"fmt"
	"io"
	"os"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/EdmondVirelle/cyber-qin/pipeline"
)

const writerResolution = 480

// Write serializes a time-sorted event list to a single-track standard
// MIDI file at a fixed tempo.
func Write(w io.Writer, events []pipeline.Event, bpm float64) error {
	if bpm <= 0 {
		bpm = 120
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(writerResolution)

	var track smf.Track
	track.Add(0, smf.MetaTempo(bpm))

	secToTick := func(t float64) int64 {
		return int64(t * bpm / 60.0 * writerResolution)
	}

	var prevTick int64
	for _, e := range events {
		tick := secToTick(e.Time)
		delta := uint32(tick - prevTick)
		prevTick = tick
		switch e.Kind {
		case pipeline.NoteOn:
			track.Add(delta, gomidi.NoteOn(uint8(e.Channel), uint8(e.Note), uint8(e.Velocity)))
		case pipeline.NoteOff:
			track.Add(delta, gomidi.NoteOff(uint8(e.Channel), uint8(e.Note)))
		}
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// WriteFile serializes events to a .mid file at path.
func WriteFile(path string, events []pipeline.Event, bpm float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create midi file: %w", err)
	}
	defer f.Close()
	return Write(f, events, bpm)
}
