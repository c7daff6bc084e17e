package keymap

import "fmt"

// Modifier is the modifier key attached to a mapped note, if any.
// Sharps map through Shift, flats through Ctrl.
type Modifier int

const (
	ModNone Modifier = iota
	ModShift
	ModCtrl
)

func (m Modifier) String() string {
	switch m {
	case ModShift:
		return "Shift"
	case ModCtrl:
		return "Ctrl"
	default:
		return ""
	}
}

// KeyMapping is a single game key action: base scan code plus optional modifier.
type KeyMapping struct {
	Scan     int
	Modifier Modifier
	Label    string
}

// Windows Set 1 scan codes for the keys the supported games read.
// Reference: https://www.win.tue.nl/~aeb/linux/kbd/scancodes-1.html
var Scan = map[string]int{
	// Low octave row
	"Z": 0x2C, "X": 0x2D, "C": 0x2E, "V": 0x2F, "B": 0x30, "N": 0x31, "M": 0x32,
	// Mid octave row
	"A": 0x1E, "S": 0x1F, "D": 0x20, "F": 0x21, "G": 0x22, "H": 0x23, "J": 0x24,
	// High octave row
	"Q": 0x10, "W": 0x11, "E": 0x12, "R": 0x13, "T": 0x14, "Y": 0x15, "U": 0x16,
	// Extended letters for the larger schemes
	"I": 0x17, "O": 0x18, "P": 0x19, "K": 0x25,
	// Number row
	"1": 0x02, "2": 0x03, "3": 0x04, "4": 0x05, "5": 0x06,
	"6": 0x07, "7": 0x08, "8": 0x09, "9": 0x0A, "0": 0x0B,
	"MINUS": 0x0C, "EQUALS": 0x0D,
	// Modifiers
	"LSHIFT": 0x2A, "LCTRL": 0x1D,
}

// Scan codes for the modifier keys themselves.
const (
	ScanLShift = 0x2A
	ScanLCtrl  = 0x1D
)

// ModifierScan returns the scan code for a modifier, or 0 for ModNone.
func ModifierScan(m Modifier) int {
	switch m {
	case ModShift:
		return ScanLShift
	case ModCtrl:
		return ScanLCtrl
	default:
		return 0
	}
}

// km builds a KeyMapping from a key name and modifier, deriving the label.
func km(key string, mod Modifier) KeyMapping {
	scan, ok := Scan[key]
	if !ok {
		panic(fmt.Sprintf("keymap: unknown key %q", key))
	}
	label := key
	if key == "MINUS" {
		label = "-"
	} else if key == "EQUALS" {
		label = "="
	}
	switch mod {
	case ModShift:
		label = "Shift+" + label
	case ModCtrl:
		label = "Ctrl+" + label
	}
	return KeyMapping{Scan: scan, Modifier: mod, Label: label}
}

var noteNames = [12]string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "G#", "A", "Bb", "B"}

// NoteName returns the spelled name of a MIDI note, e.g. 60 -> "C4".
func NoteName(note int) string {
	octave := note/12 - 1
	return fmt.Sprintf("%s%d", noteNames[((note%12)+12)%12], octave)
}
