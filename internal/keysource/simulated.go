package keysource

import (
	"context"
	"sync"
)

// SimulatedSource is a key source for tests that doesn't hook the real
// keyboard. Events emitted before Start are buffered, so tests don't have
// to synchronize with the consumer's startup.
type SimulatedSource struct {
	mu      sync.Mutex
	running bool
	stopped bool
	events  chan Event
	cancel  context.CancelFunc
}

// NewSimulated creates a source for testing.
func NewSimulated() *SimulatedSource {
	return &SimulatedSource{events: make(chan Event, 256)}
}

// Start begins the simulated source.
func (s *SimulatedSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if !s.stopped {
			s.stopped = true
			s.running = false
			close(s.events)
		}
		s.mu.Unlock()
	}()
	return nil
}

// Stop stops the source and closes the event channel.
func (s *SimulatedSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Events returns the event stream.
func (s *SimulatedSource) Events() <-chan Event { return s.events }

// Available always succeeds for the simulated source.
func (s *SimulatedSource) Available() (bool, string) {
	return true, "simulated source (for testing)"
}

// Emit sends a raw event. It is a no-op after Stop.
func (s *SimulatedSource) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.events <- ev
}

// Type emits one character event per rune of text.
func (s *SimulatedSource) Type(text string) {
	for _, r := range text {
		s.Emit(Character(r))
	}
}

// PressBackspace emits a backspace event.
func (s *SimulatedSource) PressBackspace() { s.Emit(Backspace) }

// PressOther emits a non-character event (enter, arrow, focus change...).
func (s *SimulatedSource) PressOther() { s.Emit(Other) }
