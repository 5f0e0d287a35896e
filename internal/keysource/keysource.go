// Package keysource supplies the ordered stream of key-down events the
// expansion engine consumes.
//
// IMPORTANT: events carry at most the printable character a key produced.
// Nothing is persisted; the stream exists only to feed the in-memory match
// buffer. Unknown or coalesced events are reported as KindOther so the
// engine can reset its state rather than guess.
//
// Platform support:
//   - Linux: reads /dev/input/event* (requires membership in the 'input'
//     group or root)
//   - tests: SimulatedSource
package keysource

import (
	"context"
	"errors"
)

// Kind categorizes a key event for the match state machine.
type Kind int

const (
	// KindCharacter is a key press that produced a printable character.
	KindCharacter Kind = iota
	// KindBackspace removes the character before the caret.
	KindBackspace
	// KindOther is any non-character key: enter, tab, arrows, escape,
	// modifier-only presses, or events the source could not decode.
	KindOther
)

// Event is a single key-down event.
type Event struct {
	Kind Kind
	// Char is the printable character for KindCharacter events.
	Char rune
}

// Character builds a printable-character event.
func Character(r rune) Event { return Event{Kind: KindCharacter, Char: r} }

// Backspace is the backspace event.
var Backspace = Event{Kind: KindBackspace}

// Other is a generic non-character event.
var Other = Event{Kind: KindOther}

// Source produces an ordered stream of key events.
type Source interface {
	// Start begins reading key events. The stream ends when ctx is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops reading and closes the event channel.
	Stop() error

	// Events returns the event stream. Valid after Start.
	Events() <-chan Event

	// Available reports whether this source can run on the current
	// platform with current permissions, with a human-readable reason.
	Available() (bool, string)
}

// ErrNotAvailable is returned when no usable keyboard source exists.
var ErrNotAvailable = errors.New("keyboard event source not available")

// ErrAlreadyRunning is returned when Start is called while already running.
var ErrAlreadyRunning = errors.New("key source already running")
