package keysim

import (
	"errors"
	"testing"
	"time"

	"github.com/EdmondVirelle/cyber-qin/keymap"
)

func wwmMapping(t *testing.T, note int) keymap.KeyMapping {
	t.Helper()
	s, err := keymap.Get("wwm_36")
	if err != nil {
		t.Fatal(err)
	}
	m, ok := s.Mapping[note]
	if !ok {
		t.Fatalf("note %d not in wwm_36", note)
	}
	return m
}

func TestPressPlainKey(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	sim.Press(60, wwmMapping(t, 60)) // C4 -> A, no modifier

	batches := rec.Batches()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	want := []KeyEvent{{Scan: keymap.Scan["A"]}}
	if len(batches[0]) != 1 || batches[0][0] != want[0] {
		t.Errorf("batch = %v, want %v", batches[0], want)
	}
}

func TestPressModifiedKeyFlashesModifier(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	sim.Press(49, wwmMapping(t, 49)) // C#3 -> Shift+Z

	batches := rec.Batches()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want exactly one atomic batch", len(batches))
	}
	want := []KeyEvent{
		{Scan: keymap.ScanLShift},
		{Scan: keymap.Scan["Z"]},
		{Scan: keymap.ScanLShift, KeyUp: true},
	}
	got := batches[0]
	if len(got) != 3 {
		t.Fatalf("batch has %d events, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("batch[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReleaseEmitsOnlyBaseKeyUp(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	sim.Press(49, wwmMapping(t, 49))
	rec.Reset()

	if !sim.Release(49) {
		t.Fatal("Release(49) = false, want true")
	}
	batches := rec.Batches()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	want := KeyEvent{Scan: keymap.Scan["Z"], KeyUp: true}
	if len(batches[0]) != 1 || batches[0][0] != want {
		t.Errorf("release batch = %v, want [%v]", batches[0], want)
	}
}

func TestReleaseInactiveNoteIsNoop(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	if sim.Release(60) {
		t.Error("Release(60) = true for inactive note, want false")
	}
	if len(rec.Batches()) != 0 {
		t.Errorf("emitted %d batches, want none", len(rec.Batches()))
	}
}

func TestDoublePressReleasesFirst(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	sim.Press(60, wwmMapping(t, 60))
	sim.Press(60, wwmMapping(t, 60))

	// press, then release+press
	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3 (down, up, down)", len(events))
	}
	if !events[1].KeyUp {
		t.Error("second press did not release the held key first")
	}
	if got := sim.ActiveNotes(); len(got) != 1 || got[0] != 60 {
		t.Errorf("ActiveNotes() = %v, want [60]", got)
	}
}

func TestInjectionFailureIsNonFatal(t *testing.T) {
	rec := &RecordingInjector{}
	rec.SetError(errors.New("delivery refused"))
	sim := NewSimulator(rec)

	sim.Press(60, wwmMapping(t, 60))
	// Note is still tracked so the eventual note-off pairs up.
	if got := sim.ActiveNotes(); len(got) != 1 {
		t.Errorf("ActiveNotes() = %v, want the pressed note tracked", got)
	}
	sim.Release(60)
	if got := sim.ActiveNotes(); len(got) != 0 {
		t.Errorf("ActiveNotes() = %v, want empty", got)
	}
}

func TestCheckStuckKeys(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	now := time.Now()
	sim.now = func() time.Time { return now }

	sim.Press(60, wwmMapping(t, 60))
	sim.Press(64, wwmMapping(t, 64))

	// Before the timeout nothing is released.
	now = now.Add(DefaultStuckTimeout - time.Second)
	if stuck := sim.CheckStuckKeys(); len(stuck) != 0 {
		t.Fatalf("CheckStuckKeys() before timeout = %v, want none", stuck)
	}

	// Keep one note fresh, let the other cross the timeout.
	sim.Release(64)
	sim.Press(64, wwmMapping(t, 64))
	now = now.Add(2 * time.Second)

	stuck := sim.CheckStuckKeys()
	if len(stuck) != 1 || stuck[0] != 60 {
		t.Fatalf("CheckStuckKeys() = %v, want [60]", stuck)
	}
	if got := sim.ActiveNotes(); len(got) != 1 || got[0] != 64 {
		t.Errorf("ActiveNotes() = %v, want [64]", got)
	}
}

func TestReleaseAll(t *testing.T) {
	rec := &RecordingInjector{}
	sim := NewSimulator(rec)

	sim.Press(60, wwmMapping(t, 60))
	sim.Press(64, wwmMapping(t, 64))
	sim.Press(67, wwmMapping(t, 67))
	sim.ReleaseAll()

	if got := sim.ActiveNotes(); len(got) != 0 {
		t.Errorf("ActiveNotes() after ReleaseAll = %v, want empty", got)
	}
	ups := 0
	for _, ev := range rec.Events() {
		if ev.KeyUp {
			ups++
		}
	}
	if ups != 3 {
		t.Errorf("got %d key-up events, want 3", ups)
	}
}
