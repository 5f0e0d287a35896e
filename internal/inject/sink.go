package inject

import (
	"context"
	"sync"
)

// Sink performs a single synthetic input operation against the desktop
// session.
type Sink interface {
	Apply(ctx context.Context, op Op) error
}

// RecorderSink captures operations for tests instead of emitting input.
type RecorderSink struct {
	mu  sync.Mutex
	ops []Op
}

// Apply records the operation.
func (r *RecorderSink) Apply(_ context.Context, op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	return nil
}

// Ops returns a copy of the recorded operations.
func (r *RecorderSink) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset discards recorded operations.
func (r *RecorderSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}
