package keysource

import (
	"context"
	"sync/atomic"
)

// Gate is the suppression window between the OS key stream and the match
// pipeline. While closed, incoming events are dropped, not buffered: the
// injector closes the gate before emitting synthetic output and reopens it
// afterwards, so the engine can never match against its own typing. The OS
// event channels are uncontrolled collaborators, so suppression has to
// happen here rather than by filtering at the source.
type Gate struct {
	closed  atomic.Bool
	dropped atomic.Uint64
}

// Close starts suppressing events.
func (g *Gate) Close() { g.closed.Store(true) }

// Open stops suppressing events.
func (g *Gate) Open() { g.closed.Store(false) }

// Closed reports whether events are currently suppressed.
func (g *Gate) Closed() bool { return g.closed.Load() }

// Dropped returns how many events have been suppressed so far.
func (g *Gate) Dropped() uint64 { return g.dropped.Load() }

// gatedSource forwards events from an inner source while the gate is open.
type gatedSource struct {
	inner  Source
	gate   *Gate
	out    chan Event
	cancel context.CancelFunc
}

// Gated wraps a source so that events arriving while gate is closed are
// discarded at forwarding time.
func Gated(inner Source, gate *Gate) Source {
	return &gatedSource{inner: inner, gate: gate}
}

func (s *gatedSource) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	if err := s.inner.Start(ctx); err != nil {
		s.cancel()
		return err
	}
	s.out = make(chan Event, 64)

	go func() {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.inner.Events():
				if !ok {
					return
				}
				if s.gate.Closed() {
					s.gate.dropped.Add(1)
					continue
				}
				select {
				case s.out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}

func (s *gatedSource) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.inner.Stop()
}

func (s *gatedSource) Events() <-chan Event { return s.out }

func (s *gatedSource) Available() (bool, string) { return s.inner.Available() }
