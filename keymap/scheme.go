package keymap

import (
	"errors"
	"fmt"
	"sync"
)

// Scheme is a complete key mapping for one game layout. Schemes are built
// once by the registry and shared read-only afterwards.
type Scheme struct {
	ID          string
	Name        string
	Game        string
	KeyCount    int
	NoteMin     int
	NoteMax     int
	Rows        int
	KeysPerRow  int
	Description string
	Mapping     map[int]KeyMapping
}

// InRange reports whether a MIDI note is inside the scheme's declared range.
func (s *Scheme) InRange(note int) bool {
	return note >= s.NoteMin && note <= s.NoteMax
}

// ErrSchemeNotFound is returned by Get for unknown scheme IDs.
var ErrSchemeNotFound = errors.New("mapping scheme not found")

// DefaultID returns the scheme selected when no config exists.
func DefaultID() string { return "wwm_36" }

var (
	registryOnce sync.Once
	registry     map[string]*Scheme
	registryIDs  []string
)

func initRegistry() {
	registry = make(map[string]*Scheme)
	for _, s := range []*Scheme{
		buildWWM36(),
		buildFF1432(),
		buildGeneric24(),
		buildGeneric48(),
		buildGeneric88(),
	} {
		registry[s.ID] = s
		registryIDs = append(registryIDs, s.ID)
	}
}

// Get returns a scheme by ID.
func Get(id string) (*Scheme, error) {
	registryOnce.Do(initRegistry)
	s, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemeNotFound, id)
	}
	return s, nil
}

// List returns all registered schemes in display order.
func List() []*Scheme {
	registryOnce.Do(initRegistry)
	out := make([]*Scheme, 0, len(registryIDs))
	for _, id := range registryIDs {
		out = append(out, registry[id])
	}
	return out
}

// octaveRow describes how one chromatic octave lands on a 7-letter key row:
// naturals on the bare key, sharps via Shift, flats via Ctrl.
type rowStep struct {
	key int // index into the 7-key row
	mod Modifier
}

var chromaticRow = [12]rowStep{
	{0, ModNone},  // C
	{0, ModShift}, // C#
	{1, ModNone},  // D
	{2, ModCtrl},  // Eb
	{2, ModNone},  // E
	{3, ModNone},  // F
	{3, ModShift}, // F#
	{4, ModNone},  // G
	{4, ModShift}, // G#
	{5, ModNone},  // A
	{6, ModCtrl},  // Bb
	{6, ModNone},  // B
}

// addOctave maps one chromatic octave starting at baseNote onto a 7-key row.
func addOctave(m map[int]KeyMapping, baseNote int, row [7]string) {
	for i, step := range chromaticRow {
		m[baseNote+i] = km(row[step.key], step.mod)
	}
}

func buildWWM36() *Scheme {
	m := make(map[int]KeyMapping)
	addOctave(m, 48, [7]string{"Z", "X", "C", "V", "B", "N", "M"})
	addOctave(m, 60, [7]string{"A", "S", "D", "F", "G", "H", "J"})
	addOctave(m, 72, [7]string{"Q", "W", "E", "R", "T", "Y", "U"})
	return &Scheme{
		ID:          "wwm_36",
		Name:        "Where Winds Meet 36-key",
		Game:        "Where Winds Meet",
		KeyCount:    36,
		NoteMin:     48,
		NoteMax:     83,
		Rows:        3,
		KeysPerRow:  12,
		Description: "3x12 layout: ZXC / ASD / QWE rows, Shift/Ctrl accidentals",
		Mapping:     m,
	}
}

func buildFF1432() *Scheme {
	m := make(map[int]KeyMapping)
	rows := [3][8]string{
		{"A", "S", "D", "F", "G", "H", "J", "K"},
		{"Q", "W", "E", "R", "T", "Y", "U", "I"},
		{"1", "2", "3", "4", "5", "6", "7", "8"},
	}
	note := 48
	for _, row := range rows {
		for _, key := range row {
			m[note] = km(key, ModNone)
			note++
		}
	}
	for i := 0; i < 8; i++ {
		m[note] = km(fmt.Sprint(i+1), ModCtrl)
		note++
	}
	return &Scheme{
		ID:          "ff14_32",
		Name:        "FF14 32-key",
		Game:        "FF14",
		KeyCount:    32,
		NoteMin:     48,
		NoteMax:     79,
		Rows:        4,
		KeysPerRow:  8,
		Description: "4x8 layout: ASDFGHJK / QWERTYUI / 12345678 / Ctrl+1-8",
		Mapping:     m,
	}
}

func buildGeneric24() *Scheme {
	m := make(map[int]KeyMapping)
	addOctave(m, 48, [7]string{"Z", "X", "C", "V", "B", "N", "M"})
	addOctave(m, 60, [7]string{"Q", "W", "E", "R", "T", "Y", "U"})
	return &Scheme{
		ID:          "generic_24",
		Name:        "Generic 24-key",
		Game:        "Generic",
		KeyCount:    24,
		NoteMin:     48,
		NoteMax:     71,
		Rows:        2,
		KeysPerRow:  12,
		Description: "2x12 layout: ZXC row + QWE row, Shift/Ctrl accidentals",
		Mapping:     m,
	}
}

func buildGeneric48() *Scheme {
	m := make(map[int]KeyMapping)
	numKeys := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "MINUS", "EQUALS"}
	for i, key := range numKeys {
		m[36+i] = km(key, ModNone)
	}
	addOctave(m, 48, [7]string{"Z", "X", "C", "V", "B", "N", "M"})
	addOctave(m, 60, [7]string{"A", "S", "D", "F", "G", "H", "J"})
	addOctave(m, 72, [7]string{"Q", "W", "E", "R", "T", "Y", "U"})
	return &Scheme{
		ID:          "generic_48",
		Name:        "Generic 48-key",
		Game:        "Generic",
		KeyCount:    48,
		NoteMin:     36,
		NoteMax:     83,
		Rows:        4,
		KeysPerRow:  12,
		Description: "4x12 layout: number row / ZXC / ASD / QWE, four octaves",
		Mapping:     m,
	}
}

func buildGeneric88() *Scheme {
	m := make(map[int]KeyMapping)
	// 88 keys, MIDI 21 (A0) to 108 (C8). Three groups of eleven keys, each
	// cycled through plain/Shift/Ctrl layers; every (key, modifier) pair in
	// range stays unique.
	groups := [3][11]string{
		{"Z", "X", "C", "V", "B", "N", "M", "A", "S", "D", "F"},
		{"Q", "W", "E", "R", "T", "Y", "U", "I", "O", "P", "K"},
		{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "MINUS"},
	}
	layers := [3]Modifier{ModNone, ModShift, ModCtrl}
	note := 21
	for _, keys := range groups {
		for _, mod := range layers {
			for _, key := range keys {
				if note > 108 {
					break
				}
				m[note] = km(key, mod)
				note++
			}
		}
	}
	return &Scheme{
		ID:          "generic_88",
		Name:        "Generic 88-key",
		Game:        "Generic",
		KeyCount:    88,
		NoteMin:     21,
		NoteMax:     108,
		Rows:        8,
		KeysPerRow:  11,
		Description: "8x11 layout: layered Shift/Ctrl combinations, full piano range",
		Mapping:     m,
	}
}
