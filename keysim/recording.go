package keysim

import "sync"

// RecordingInjector captures emitted batches instead of delivering them.
// Each Emit call is kept as one batch so atomicity can be asserted.
type RecordingInjector struct {
	mu      sync.Mutex
	batches [][]KeyEvent
	fail    error
}

// SetError makes subsequent Emit calls return err (still recording).
func (r *RecordingInjector) SetError(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *RecordingInjector) Emit(batch []KeyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]KeyEvent, len(batch))
	copy(copied, batch)
	r.batches = append(r.batches, copied)
	return r.fail
}

// Batches returns a snapshot of everything emitted so far.
func (r *RecordingInjector) Batches() [][]KeyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]KeyEvent, len(r.batches))
	copy(out, r.batches)
	return out
}

// Events returns all emitted events flattened in order.
func (r *RecordingInjector) Events() []KeyEvent {
	var out []KeyEvent
	for _, b := range r.Batches() {
		out = append(out, b...)
	}
	return out
}

// Reset drops everything recorded so far.
func (r *RecordingInjector) Reset() {
	r.mu.Lock()
	r.batches = nil
	r.mu.Unlock()
}
