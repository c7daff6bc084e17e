package player

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/EdmondVirelle/cyber-qin/debug"
	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/keysim"
	"github.com/EdmondVirelle/cyber-qin/midiio"
	"github.com/EdmondVirelle/cyber-qin/pipeline"
)

// State is the playback machine state.
type State int

const (
	Stopped State = iota
	Countdown
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Countdown:
		return "countdown"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

const (
	SpeedMin       = 0.25
	SpeedMax       = 2.0
	DefaultCountIn = 4

	watchdogInterval = 2 * time.Second
	// sleep until this close to the target, then spin. time.Sleep on
	// Windows can overshoot by a full scheduler quantum; spinning the last
	// millisecond keeps key-down timing tight.
	spinWindow = time.Millisecond
)

// Progress reports playback position, in song seconds.
type Progress struct {
	Pos      float64
	Duration float64
}

// Player schedules a processed event list onto the key simulator. All
// methods are safe to call from any goroutine; dispatch happens on a
// dedicated OS-locked goroutine.
type Player struct {
	mapper *keymap.Mapper
	sim    *keysim.Simulator

	mu       sync.Mutex
	state    State
	events   []pipeline.Event
	duration float64
	bpm      float64
	countIn  int
	speed    float64
	loop     bool
	pos      float64
	idx      int

	anchorWall time.Time
	anchorPos  float64

	stop chan struct{}
	done chan struct{}

	ticks    chan int
	progress chan Progress
	notes    chan pipeline.Event
}

func New(mapper *keymap.Mapper, sim *keysim.Simulator) *Player {
	return &Player{
		mapper:   mapper,
		sim:      sim,
		speed:    1.0,
		countIn:  DefaultCountIn,
		ticks:    make(chan int, 8),
		progress: make(chan Progress, 16),
		notes:    make(chan pipeline.Event, 64),
	}
}

// Ticks delivers count-in beats, counting down to 1. Buffered; beats are
// dropped rather than delaying the countdown.
func (p *Player) Ticks() <-chan int { return p.ticks }

// Progress delivers position updates after each dispatched event.
func (p *Player) Progress() <-chan Progress { return p.progress }

// Notes delivers dispatched note events for display. Drop-on-full.
func (p *Player) Notes() <-chan pipeline.Event { return p.notes }

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Pos() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Load replaces the event list, stopping any current playback first.
// Events must already be processed and time-sorted.
func (p *Player) Load(events []pipeline.Event, info midiio.FileInfo) {
	p.Stop()
	p.mu.Lock()
	p.events = events
	p.duration = info.Duration
	p.bpm = info.TempoBPM
	p.pos = 0
	p.idx = 0
	p.mu.Unlock()
}

// SetCountIn sets the number of count-in beats before playback. Zero
// disables the countdown.
func (p *Player) SetCountIn(beats int) {
	p.mu.Lock()
	if beats >= 0 {
		p.countIn = beats
	}
	p.mu.Unlock()
}

func (p *Player) SetLoop(on bool) {
	p.mu.Lock()
	p.loop = on
	p.mu.Unlock()
}

func (p *Player) Loop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loop
}

// SetSpeed clamps to [SpeedMin, SpeedMax] and re-anchors so the change
// applies from the current position, not retroactively. Returns the speed
// actually set.
func (p *Player) SetSpeed(speed float64) float64 {
	if speed < SpeedMin {
		speed = SpeedMin
	}
	if speed > SpeedMax {
		speed = SpeedMax
	}
	p.mu.Lock()
	p.speed = speed
	p.rearmLocked()
	p.mu.Unlock()
	return speed
}

func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// rearmLocked resets the wall-clock anchor to the current position.
// Caller holds p.mu.
func (p *Player) rearmLocked() {
	p.anchorWall = time.Now()
	p.anchorPos = p.pos
}

// Play starts playback from the current position, or resumes from pause.
// No-op while already playing or counting in, or with nothing loaded.
func (p *Player) Play() {
	p.mu.Lock()
	switch p.state {
	case Playing, Countdown:
		p.mu.Unlock()
		return
	case Paused:
		p.rearmLocked()
		p.state = Playing
		p.mu.Unlock()
		return
	}
	if len(p.events) == 0 {
		p.mu.Unlock()
		return
	}
	p.state = Countdown
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go p.run(stop, done)
}

// Pause holds the current position and releases all held keys.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.state != Playing {
		p.mu.Unlock()
		return
	}
	p.state = Paused
	p.mu.Unlock()
	p.sim.ReleaseAll()
}

// Stop ends playback, joins the dispatch goroutine and releases all keys.
// Position rewinds to the start.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	stop, done := p.stop, p.done
	p.stop = nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
	p.sim.ReleaseAll()

	p.mu.Lock()
	p.state = Stopped
	p.pos = 0
	p.idx = 0
	p.mu.Unlock()
}

// Seek jumps to pos seconds. Held keys are released; anything sounding
// across the seam would otherwise never get its note-off.
func (p *Player) Seek(pos float64) {
	p.mu.Lock()
	if pos < 0 {
		pos = 0
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	p.pos = pos
	p.idx = indexAt(p.events, pos)
	p.rearmLocked()
	p.mu.Unlock()
	p.sim.ReleaseAll()
}

// indexAt returns the index of the first event at or after pos.
func indexAt(events []pipeline.Event, pos float64) int {
	return sort.Search(len(events), func(i int) bool {
		return events[i].Time >= pos
	})
}

func (p *Player) run(stop, done chan struct{}) {
	defer close(done)
	runtime.LockOSThread()
	restore := BoostPriority()
	defer restore()

	p.mu.Lock()
	beats := p.countIn
	bpm := p.bpm
	p.mu.Unlock()
	if bpm <= 0 {
		bpm = 120
	}
	beatDur := time.Duration(60.0 / bpm * float64(time.Second))
	for i := beats; i >= 1; i-- {
		select {
		case p.ticks <- i:
		default:
		}
		select {
		case <-stop:
			return
		case <-time.After(beatDur):
		}
	}

	p.mu.Lock()
	p.state = Playing
	p.rearmLocked()
	p.mu.Unlock()

	watchdog := time.NewTicker(watchdogInterval)
	defer watchdog.Stop()

	for {
		select {
		case <-stop:
			return
		case <-watchdog.C:
			if stuck := p.sim.CheckStuckKeys(); len(stuck) > 0 {
				debug.Log("player", "released %d stuck keys", len(stuck))
			}
		default:
		}

		p.mu.Lock()
		if p.state == Paused {
			p.mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if p.idx >= len(p.events) {
			if p.loop && len(p.events) > 0 {
				p.pos = 0
				p.idx = 0
				p.rearmLocked()
				p.mu.Unlock()
				continue
			}
			p.mu.Unlock()
			break
		}
		evt := p.events[p.idx]
		target := targetFor(p.anchorWall, p.anchorPos, evt.Time, p.speed)
		p.mu.Unlock()

		if !waitUntil(target, stop) {
			return
		}

		p.mu.Lock()
		// a seek or pause may have landed while we slept
		if p.state != Playing || p.idx >= len(p.events) || p.events[p.idx] != evt {
			p.mu.Unlock()
			continue
		}
		p.idx++
		p.pos = evt.Time
		dur := p.duration
		p.mu.Unlock()

		p.dispatch(evt)
		select {
		case p.progress <- Progress{Pos: evt.Time, Duration: dur}:
		default:
		}
	}

	// ran off the end
	p.sim.ReleaseAll()
	p.mu.Lock()
	p.state = Stopped
	p.pos = 0
	p.idx = 0
	p.stop = nil
	dur := p.duration
	p.mu.Unlock()
	select {
	case p.progress <- Progress{Pos: dur, Duration: dur}:
	default:
	}
}

// targetFor computes the wall-clock deadline for an event. Deadlines are
// derived from the anchor every time, never accumulated, so per-event
// scheduling error stays bounded instead of compounding over the file.
func targetFor(anchorWall time.Time, anchorPos, evtTime, speed float64) time.Time {
	return anchorWall.Add(time.Duration((evtTime - anchorPos) / speed * float64(time.Second)))
}

// waitUntil sleeps until spinWindow before target, then busy-waits.
// Returns false if stop fires first.
func waitUntil(target time.Time, stop chan struct{}) bool {
	for {
		rem := time.Until(target)
		if rem <= 0 {
			return true
		}
		if rem > spinWindow {
			select {
			case <-stop:
				return false
			case <-time.After(rem - spinWindow):
			}
			continue
		}
		select {
		case <-stop:
			return false
		default:
		}
	}
}

func (p *Player) dispatch(evt pipeline.Event) {
	if evt.Kind == pipeline.NoteOn {
		mapping, ok := p.mapper.Lookup(evt.Note)
		if !ok {
			return
		}
		p.sim.Press(evt.Note, mapping)
	} else {
		p.sim.Release(evt.Note)
	}
	select {
	case p.notes <- evt:
	default:
	}
}
