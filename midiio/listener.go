package midiio

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/EdmondVirelle/cyber-qin/debug"
	"github.com/EdmondVirelle/cyber-qin/pipeline"
)

// Listener opens one MIDI input port and delivers note events through a
// callback. The callback runs on the driver's own thread; keep it fast and
// never block in it.
type Listener struct {
	mu       sync.Mutex
	port     string
	stopFunc func()
}

// Ports returns the names of the available MIDI input ports.
func Ports() []string {
	ins := gomidi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Open subscribes to the named input port. onEvent receives note-ons and
// note-offs only; a note-on with velocity zero is normalized to a note-off
// before delivery. Any previously open port is closed first.
func (l *Listener) Open(port string, onEvent func(pipeline.Event)) error {
	l.Close()

	ins := gomidi.GetInPorts()
	var in int = -1
	for i := range ins {
		if ins[i].String() == port {
			in = i
			break
		}
	}
	if in < 0 {
		return fmt.Errorf("midi input port %q not found", port)
	}

	stop, err := gomidi.ListenTo(ins[in], func(msg gomidi.Message, timestampms int32) {
		var ch, key, vel uint8
		switch {
		case msg.GetNoteOn(&ch, &key, &vel):
			kind := pipeline.NoteOn
			if vel == 0 {
				kind = pipeline.NoteOff
			}
			onEvent(pipeline.Event{Kind: kind, Note: int(key), Velocity: int(vel), Channel: int(ch)})
		case msg.GetNoteOff(&ch, &key, &vel):
			onEvent(pipeline.Event{Kind: pipeline.NoteOff, Note: int(key), Channel: int(ch)})
		}
		// Aftertouch, CC, sysex and the rest are ignored.
	})
	if err != nil {
		return fmt.Errorf("open midi input %q: %w", port, err)
	}

	l.mu.Lock()
	l.port = port
	l.stopFunc = stop
	l.mu.Unlock()
	debug.Log("midiio", "opened input port %q", port)
	return nil
}

// Port returns the name of the open port, or "".
func (l *Listener) Port() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// Connected reports whether a port is open.
func (l *Listener) Connected() bool {
	return l.Port() != ""
}

// Close stops listening. Safe to call when nothing is open.
func (l *Listener) Close() {
	l.mu.Lock()
	stop := l.stopFunc
	l.stopFunc = nil
	l.port = ""
	l.mu.Unlock()
	if stop != nil {
		stop()
		debug.Log("midiio", "input port closed")
	}
}
