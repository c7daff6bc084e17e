//go:build windows

package keysim

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard     = 1
	keyeventfScancode = 0x0008
	keyeventfKeyup    = 0x0002
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT. The trailing padding brings the struct up to the
// size of the full union (MOUSEINPUT is the largest member, 40 bytes total
// on 64-bit); SendInput silently rejects every call with a smaller cbSize.
type input struct {
	inputType uint32
	_         uint32
	ki        keybdInput
	_         [8]byte
}

var (
	user32       = windows.NewLazySystemDLL("user32.dll")
	procSendInpt = user32.NewProc("SendInput")
)

// SendInputInjector emits scan-code key events through the Win32 SendInput
// call. A single Emit maps to a single SendInput invocation, which is what
// guarantees the batch stays ordered and un-interleaved.
type SendInputInjector struct{}

// NewPlatformInjector returns the injector for the running platform.
func NewPlatformInjector() Injector {
	return &SendInputInjector{}
}

func (j *SendInputInjector) Emit(batch []KeyEvent) error {
	if len(batch) == 0 {
		return nil
	}
	inputs := make([]input, len(batch))
	for i, ev := range batch {
		flags := uint32(keyeventfScancode)
		if ev.KeyUp {
			flags |= keyeventfKeyup
		}
		inputs[i] = input{
			inputType: inputKeyboard,
			ki: keybdInput{
				wScan:   uint16(ev.Scan),
				dwFlags: flags,
			},
		}
	}
	sent, _, _ := procSendInpt.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(sent) != len(inputs) {
		return fmt.Errorf("SendInput delivered %d of %d events", sent, len(inputs))
	}
	return nil
}
