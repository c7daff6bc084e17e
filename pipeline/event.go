// Package pipeline transforms raw MIDI event lists into a reduced,
// collision-free stream that fits a scheme's playable range. The whole
// pipeline is a pure function: stages never mutate their input, each one
// builds a new slice.
package pipeline

// EventKind distinguishes note-on from note-off. NoteOff sorts before
// NoteOn at equal timestamps so a key is released before being re-pressed
// in the same instant.
type EventKind int

const (
	NoteOff EventKind = iota
	NoteOn
)

func (k EventKind) String() string {
	if k == NoteOn {
		return "note_on"
	}
	return "note_off"
}

// Event is a single timed note event. Value type, never mutated in place.
type Event struct {
	Time     float64
	Kind     EventKind
	Note     int
	Velocity int
	Channel  int
	Track    int
}
