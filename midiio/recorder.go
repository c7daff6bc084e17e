package midiio

import (
	"sync"
	"time"

	"github.com/EdmondVirelle/cyber-qin/pipeline"
)

// Recorder captures live note events with timestamps relative to the first
// event, ready for export through Write.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	first     time.Time
	events    []pipeline.Event
	now       func() time.Time
}

// NewRecorder creates an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Start begins a new take, discarding any previous one.
func (r *Recorder) Start() {
	r.mu.Lock()
	r.recording = true
	r.first = time.Time{}
	r.events = nil
	r.mu.Unlock()
}

// Record adds one event. The first event defines time zero. Ignored while
// not recording, so it can stay wired as a listener callback permanently.
func (r *Recorder) Record(e pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	now := r.now()
	if r.first.IsZero() {
		r.first = now
	}
	e.Time = now.Sub(r.first).Seconds()
	r.events = append(r.events, e)
}

// Stop ends the take and returns the captured events.
func (r *Recorder) Stop() []pipeline.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	out := make([]pipeline.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Recording reports whether a take is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Len returns the number of captured events so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
