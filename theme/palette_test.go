package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGPL(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gpl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadGPL(t *testing.T) {
	path := writeGPL(t, `GIMP Palette
Name: dusk
Columns: 3
# a comment line
  0   0   0 black
128  64  32 rust
255 255 255 white
`)
	p, err := LoadGPL(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "dusk" {
		t.Errorf("Name = %q, want %q", p.Name, "dusk")
	}
	if len(p.Colors) != 3 {
		t.Fatalf("parsed %d colors, want 3", len(p.Colors))
	}
	if p.Colors[1] != (RGB{128, 64, 32}) {
		t.Errorf("Colors[1] = %v, want {128 64 32}", p.Colors[1])
	}
}

func TestLoadGPLErrors(t *testing.T) {
	if _, err := LoadGPL(filepath.Join(t.TempDir(), "missing.gpl")); err == nil {
		t.Error("no error for missing file")
	}
	empty := writeGPL(t, "GIMP Palette\nName: empty\n")
	if _, err := LoadGPL(empty); err == nil {
		t.Error("no error for palette without colors")
	}
}

func TestMustLoadGPLPanicsOnMissingFile(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for missing palette file")
		}
	}()
	MustLoadGPL(filepath.Join(t.TempDir(), "missing.gpl"))
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {100, 200, 50}}}
	tests := []struct {
		norm float64
		want RGB
	}{
		{-0.5, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{50, 100, 25}},
		{1, RGB{100, 200, 50}},
		{2, RGB{100, 200, 50}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.norm); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.norm, got, tt.want)
		}
	}
}

func TestIndexClamps(t *testing.T) {
	p := &Palette{Colors: []RGB{{1, 1, 1}, {2, 2, 2}}}
	if got := p.Index(-1); got != (RGB{1, 1, 1}) {
		t.Errorf("Index(-1) = %v, want first color", got)
	}
	if got := p.Index(5); got != (RGB{2, 2, 2}) {
		t.Errorf("Index(5) = %v, want last color", got)
	}
	if got := p.Index(1); got != (RGB{2, 2, 2}) {
		t.Errorf("Index(1) = %v, want second color", got)
	}
}

func TestDefaultPaletteUsable(t *testing.T) {
	p := Default()
	if len(p.Colors) < 2 {
		t.Fatalf("default palette has %d colors", len(p.Colors))
	}
	th := New(p)
	if th.Accent() == th.BG() {
		t.Error("accent and background resolve to the same color")
	}
}
