// Package live wires a hardware MIDI port straight onto the key simulator
// for real-time play.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/EdmondVirelle/cyber-qin/debug"
	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/keysim"
	"github.com/EdmondVirelle/cyber-qin/midiio"
	"github.com/EdmondVirelle/cyber-qin/pipeline"
	"github.com/EdmondVirelle/cyber-qin/player"
)

const watchdogInterval = 2 * time.Second

// Adapter maps incoming note events to key presses synchronously on the
// MIDI callback thread. No queue: latency is the whole point.
type Adapter struct {
	mapper   *keymap.Mapper
	sim      *keysim.Simulator
	listener *midiio.Listener

	boostOnce sync.Once

	mu       sync.Mutex
	attached bool
	cancel   context.CancelFunc

	notes chan pipeline.Event
}

func New(mapper *keymap.Mapper, sim *keysim.Simulator) *Adapter {
	return &Adapter{
		mapper:   mapper,
		sim:      sim,
		listener: &midiio.Listener{},
		notes:    make(chan pipeline.Event, 64),
	}
}

// Notes feeds handled events to a display surface. Drop-on-full; the
// callback thread never blocks on a slow reader.
func (a *Adapter) Notes() <-chan pipeline.Event { return a.notes }

// Mapper returns the mapper so a UI can adjust transpose mid-performance.
func (a *Adapter) Mapper() *keymap.Mapper { return a.mapper }

// Attach opens the named port and starts translating events. A watcher
// reopens the port if the device drops and comes back.
func (a *Adapter) Attach(port string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attached {
		return nil
	}
	if err := a.listener.Open(port, a.handle); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.attached = true

	watcher := midiio.NewWatcher(port, func(p string) {
		if err := a.listener.Open(p, a.handle); err != nil {
			debug.Log("live", "reopen %q failed: %v", p, err)
		}
	})
	watcher.MarkConnected()
	go watcher.Run(ctx)
	go a.watchdog(ctx)
	return nil
}

// Detach closes the port and releases any held keys.
func (a *Adapter) Detach() {
	a.mu.Lock()
	if !a.attached {
		a.mu.Unlock()
		return
	}
	a.attached = false
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	cancel()
	a.listener.Close()
	a.sim.ReleaseAll()
}

// Attached reports whether a port is open.
func (a *Adapter) Attached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attached
}

// Port returns the attached port name, or "" when detached.
func (a *Adapter) Port() string {
	return a.listener.Port()
}

// handle runs on the MIDI callback thread.
func (a *Adapter) handle(evt pipeline.Event) {
	a.boostOnce.Do(func() {
		restore := player.BoostPriority()
		_ = restore // held for the life of the process
	})

	switch evt.Kind {
	case pipeline.NoteOn:
		mapping, ok := a.mapper.Lookup(evt.Note)
		if !ok {
			return
		}
		a.sim.Press(evt.Note, mapping)
	case pipeline.NoteOff:
		if !a.sim.Release(evt.Note) {
			return
		}
	}
	select {
	case a.notes <- evt:
	default:
	}
}

func (a *Adapter) watchdog(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stuck := a.sim.CheckStuckKeys(); len(stuck) > 0 {
				debug.Log("live", "released %d stuck keys", len(stuck))
			}
		}
	}
}
