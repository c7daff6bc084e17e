package keymap

import (
	"errors"
	"testing"
)

func TestGetUnknownScheme(t *testing.T) {
	_, err := Get("no_such_scheme")
	if !errors.Is(err, ErrSchemeNotFound) {
		t.Fatalf("Get() error = %v, want ErrSchemeNotFound", err)
	}
}

func TestListContainsAllSchemes(t *testing.T) {
	want := []string{"wwm_36", "ff14_32", "generic_24", "generic_48", "generic_88"}
	schemes := List()
	if len(schemes) != len(want) {
		t.Fatalf("List() returned %d schemes, want %d", len(schemes), len(want))
	}
	for i, id := range want {
		if schemes[i].ID != id {
			t.Errorf("List()[%d].ID = %q, want %q", i, schemes[i].ID, id)
		}
	}
}

func TestSchemesCoverDeclaredRange(t *testing.T) {
	for _, s := range List() {
		t.Run(s.ID, func(t *testing.T) {
			if len(s.Mapping) != s.NoteMax-s.NoteMin+1 {
				t.Errorf("mapping has %d entries, range declares %d",
					len(s.Mapping), s.NoteMax-s.NoteMin+1)
			}
			for note := s.NoteMin; note <= s.NoteMax; note++ {
				if _, ok := s.Mapping[note]; !ok {
					t.Errorf("note %d (%s) unmapped", note, NoteName(note))
				}
			}
		})
	}
}

func TestSchemesHaveNoKeyCollisions(t *testing.T) {
	for _, s := range List() {
		t.Run(s.ID, func(t *testing.T) {
			type combo struct {
				scan int
				mod  Modifier
			}
			seen := make(map[combo]int)
			for note, m := range s.Mapping {
				c := combo{m.Scan, m.Modifier}
				if prev, dup := seen[c]; dup {
					t.Errorf("notes %d and %d both map to %s", prev, note, m.Label)
				}
				seen[c] = note
			}
		})
	}
}

func TestSchemeKeyCountMatchesRange(t *testing.T) {
	for _, s := range List() {
		if got := s.NoteMax - s.NoteMin + 1; got != s.KeyCount {
			t.Errorf("%s: range spans %d notes, KeyCount = %d", s.ID, got, s.KeyCount)
		}
	}
}

func TestWWM36KnownMappings(t *testing.T) {
	s, err := Get("wwm_36")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		note  int
		label string
		mod   Modifier
	}{
		{48, "Z", ModNone},        // C3
		{49, "Shift+Z", ModShift}, // C#3
		{51, "Ctrl+C", ModCtrl},   // Eb3
		{60, "A", ModNone},        // C4
		{70, "Ctrl+J", ModCtrl},   // Bb4
		{72, "Q", ModNone},        // C5
		{83, "U", ModNone},        // B5
	}
	for _, tt := range tests {
		m, ok := s.Mapping[tt.note]
		if !ok {
			t.Errorf("note %d unmapped", tt.note)
			continue
		}
		if m.Label != tt.label || m.Modifier != tt.mod {
			t.Errorf("note %d = %s (%v), want %s (%v)", tt.note, m.Label, m.Modifier, tt.label, tt.mod)
		}
	}
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		note int
		want string
	}{
		{60, "C4"},
		{61, "C#4"},
		{63, "Eb4"},
		{21, "A0"},
		{108, "C8"},
		{48, "C3"},
	}
	for _, tt := range tests {
		if got := NoteName(tt.note); got != tt.want {
			t.Errorf("NoteName(%d) = %q, want %q", tt.note, got, tt.want)
		}
	}
}

func TestScanTableCarriesNoDeadKeys(t *testing.T) {
	used := map[int]bool{
		ScanLShift: true,
		ScanLCtrl:  true,
	}
	for _, s := range List() {
		for _, m := range s.Mapping {
			used[m.Scan] = true
		}
	}
	for key, scan := range Scan {
		if !used[scan] {
			t.Errorf("scan table entry %q (%#x) is referenced by no scheme", key, scan)
		}
	}
}
