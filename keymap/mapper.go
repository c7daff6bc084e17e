package keymap

import "sync/atomic"

// Transpose bounds in semitones.
const (
	TransposeMin = -24
	TransposeMax = 24
)

// mapperState is the complete lookup state. Lookup reads it through a single
// atomic pointer so a concurrent SetScheme/SetTranspose is observed either
// fully-old or fully-new, never torn.
type mapperState struct {
	scheme    *Scheme
	transpose int
}

// Mapper translates MIDI note numbers to game key combinations for the
// active scheme, applying the current transpose. Safe for concurrent use:
// the MIDI callback thread calls Lookup while the control thread swaps
// scheme or transpose.
type Mapper struct {
	state atomic.Pointer[mapperState]
}

// NewMapper creates a Mapper with the given scheme active and no transpose.
func NewMapper(scheme *Scheme) *Mapper {
	m := &Mapper{}
	m.state.Store(&mapperState{scheme: scheme})
	return m
}

// Lookup maps a MIDI note to a KeyMapping, applying the current transpose.
// The second return is false when the transposed note is out of the scheme's
// range; this is an expected filtering outcome, not an error.
func (m *Mapper) Lookup(note int) (KeyMapping, bool) {
	st := m.state.Load()
	mapping, ok := st.scheme.Mapping[note+st.transpose]
	return mapping, ok
}

// SetScheme atomically switches to a new mapping scheme, keeping the
// current transpose.
func (m *Mapper) SetScheme(scheme *Scheme) {
	for {
		old := m.state.Load()
		next := &mapperState{scheme: scheme, transpose: old.transpose}
		if m.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// SetTranspose sets the transpose in semitones, clamped to ±24.
func (m *Mapper) SetTranspose(semitones int) {
	if semitones < TransposeMin {
		semitones = TransposeMin
	}
	if semitones > TransposeMax {
		semitones = TransposeMax
	}
	for {
		old := m.state.Load()
		next := &mapperState{scheme: old.scheme, transpose: semitones}
		if m.state.CompareAndSwap(old, next) {
			return
		}
	}
}

// Scheme returns the currently active scheme.
func (m *Mapper) Scheme() *Scheme {
	return m.state.Load().scheme
}

// Transpose returns the current transpose in semitones.
func (m *Mapper) Transpose() int {
	return m.state.Load().transpose
}
