package midiio

import (
	"context"
	"time"

	"github.com/EdmondVirelle/cyber-qin/debug"
)

// ReconnectInterval is how often the watcher rescans the port list.
const ReconnectInterval = 3 * time.Second

// StatusEvent reports a device appearing or disappearing.
type StatusEvent struct {
	Connected bool
	Port      string
}

// Watcher polls the MIDI port list so an unplugged keyboard reconnects
// without user action. Disconnection is a transient condition here, not an
// error: the only user-visible effect is a status indicator.
type Watcher struct {
	port        string
	interval    time.Duration
	events      chan StatusEvent
	onReconnect func(port string)
	connected   bool

	// injectable for tests
	ports func() []string
}

// NewWatcher watches for the named port. onReconnect runs every time the
// port reappears after being absent (including its first appearance).
func NewWatcher(port string, onReconnect func(port string)) *Watcher {
	return &Watcher{
		port:        port,
		interval:    ReconnectInterval,
		events:      make(chan StatusEvent, 16),
		onReconnect: onReconnect,
		ports:       Ports,
	}
}

// MarkConnected seeds the watcher's state as already connected. Call it
// before Run when the port was just opened, otherwise the first scan treats
// the open port as a fresh appearance and fires onReconnect against a
// healthy connection. Not safe to call after Run has started.
func (w *Watcher) MarkConnected() {
	w.connected = true
}

// Events returns the status channel. Sends are non-blocking; a slow reader
// misses intermediate transitions, never blocks the watcher.
func (w *Watcher) Events() <-chan StatusEvent {
	return w.events
}

// Run polls until ctx is cancelled (blocking - run in goroutine).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	connected := w.scan(w.connected)
	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			connected = w.scan(connected)
		}
	}
}

func (w *Watcher) scan(wasConnected bool) bool {
	present := false
	for _, name := range w.ports() {
		if name == w.port {
			present = true
			break
		}
	}
	if present == wasConnected {
		return wasConnected
	}
	if present {
		debug.Log("midiio", "port %q reappeared, reconnecting", w.port)
		if w.onReconnect != nil {
			w.onReconnect(w.port)
		}
	} else {
		debug.Log("midiio", "port %q disappeared", w.port)
	}
	select {
	case w.events <- StatusEvent{Connected: present, Port: w.port}:
	default:
	}
	return present
}
