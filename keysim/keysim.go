// Package keysim turns key mappings into ordered batches of platform key
// events and tracks note lifecycle so every key-down gets a matching key-up.
package keysim

import (
	"sync"
	"time"

	"github.com/EdmondVirelle/cyber-qin/debug"
	"github.com/EdmondVirelle/cyber-qin/keymap"
)

// KeyEvent is a single key transition handed to the injection layer.
type KeyEvent struct {
	Scan  int
	KeyUp bool
}

// Injector delivers a batch of key events to the platform. The whole batch
// must be handed over in one call, in order, with no interleaving from other
// callers. A non-nil error is logged by the Simulator and otherwise ignored:
// performance continues with the next event.
type Injector interface {
	Emit(batch []KeyEvent) error
}

// DefaultStuckTimeout is how long a note may stay held before the watchdog
// force-releases it.
const DefaultStuckTimeout = 10 * time.Second

type activeEntry struct {
	mapping keymap.KeyMapping
	pressed time.Time
}

// Simulator manages key press/release sequences with modifier support.
// It tracks held notes so note-offs release the right key and the stuck-key
// watchdog can recover from lost note-off messages.
type Simulator struct {
	inj     Injector
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	active map[int]activeEntry
}

// NewSimulator creates a Simulator emitting through inj.
func NewSimulator(inj Injector) *Simulator {
	return &Simulator{
		inj:     inj,
		timeout: DefaultStuckTimeout,
		now:     time.Now,
		active:  make(map[int]activeEntry),
	}
}

// SetStuckTimeout overrides the stuck-key timeout.
func (s *Simulator) SetStuckTimeout(d time.Duration) {
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
}

// Press executes key-down for a MIDI note.
//
// Modified keys emit [modifier-down, key-down, modifier-up] as one batch:
// the modifier is "flashed" for the instant of the press only, so it cannot
// leak into other notes of a chord arriving concurrently.
func (s *Simulator) Press(note int, mapping keymap.KeyMapping) {
	s.mu.Lock()
	if _, held := s.active[note]; held {
		// Lost note-off: release before re-pressing to avoid a double down.
		s.releaseLocked(note)
	}
	modScan := keymap.ModifierScan(mapping.Modifier)
	var batch []KeyEvent
	if modScan != 0 {
		batch = []KeyEvent{
			{Scan: modScan},
			{Scan: mapping.Scan},
			{Scan: modScan, KeyUp: true},
		}
	} else {
		batch = []KeyEvent{{Scan: mapping.Scan}}
	}
	if err := s.inj.Emit(batch); err != nil {
		debug.Log("keysim", "press %s failed: %v", mapping.Label, err)
	}
	s.active[note] = activeEntry{mapping: mapping, pressed: s.now()}
	s.mu.Unlock()
}

// Release executes key-up for a MIDI note. Only the base key is released;
// the modifier already went up in the press batch. Returns false if the
// note was not active.
func (s *Simulator) Release(note int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(note)
}

func (s *Simulator) releaseLocked(note int) bool {
	entry, held := s.active[note]
	if !held {
		return false
	}
	delete(s.active, note)
	if err := s.inj.Emit([]KeyEvent{{Scan: entry.mapping.Scan, KeyUp: true}}); err != nil {
		debug.Log("keysim", "release %s failed: %v", entry.mapping.Label, err)
	}
	return true
}

// ReleaseAll releases every held key. Used on stop, disconnect, or panic.
func (s *Simulator) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for note := range s.active {
		s.releaseLocked(note)
	}
}

// CheckStuckKeys force-releases notes held longer than the timeout and
// returns them. Run it periodically to guard against dropped note-offs.
func (s *Simulator) CheckStuckKeys() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var stuck []int
	for note, entry := range s.active {
		if now.Sub(entry.pressed) > s.timeout {
			stuck = append(stuck, note)
		}
	}
	for _, note := range stuck {
		debug.Log("keysim", "stuck key released: note %d", note)
		s.releaseLocked(note)
	}
	return stuck
}

// ActiveNotes returns the currently held MIDI notes.
func (s *Simulator) ActiveNotes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := make([]int, 0, len(s.active))
	for note := range s.active {
		notes = append(notes, note)
	}
	return notes
}
