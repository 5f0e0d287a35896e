package match

import (
	"unicode"

	"expandd/internal/keysource"
)

// minBufferCap keeps some typing context around even when all triggers are
// short, so word-boundary checks rarely run off the front of the buffer.
const minBufferCap = 64

// Match describes a trigger that fired.
type Match struct {
	Candidate Candidate

	// Typed is the trigger text exactly as the user typed it. It differs
	// from Candidate.Trigger only in capitalization when case propagation
	// later rewrites the replacement.
	Typed string

	// TriggerLen is the trigger length in runes, which is the number of
	// backspaces needed to erase it.
	TriggerLen int
}

// Machine consumes keystroke events one at a time and reports when a
// trigger completes. It keeps a bounded buffer of recent printable
// keystrokes; backspace pops the newest rune and any other
// non-printable key clears the buffer, since the caret likely moved.
//
// Machine is not safe for concurrent use. The engine owns one and feeds it
// from a single goroutine.
type Machine struct {
	index *Index
	buf   []rune
	cap   int
}

// NewMachine creates a matching machine over the given index snapshot.
func NewMachine(index *Index) *Machine {
	capacity := index.MaxTriggerLen() + 1
	if capacity < minBufferCap {
		capacity = minBufferCap
	}
	return &Machine{
		index: index,
		buf:   make([]rune, 0, capacity),
		cap:   capacity,
	}
}

// SetIndex swaps in a new index snapshot. The keystroke buffer survives
// the swap so a trigger being typed across a reload can still fire.
func (m *Machine) SetIndex(index *Index) {
	m.index = index
	capacity := index.MaxTriggerLen() + 1
	if capacity < minBufferCap {
		capacity = minBufferCap
	}
	m.cap = capacity
	if len(m.buf) > m.cap {
		m.buf = m.buf[len(m.buf)-m.cap:]
	}
}

// Version returns the version of the index snapshot in use.
func (m *Machine) Version() uint64 {
	return m.index.Version()
}

// Reset clears the keystroke buffer.
func (m *Machine) Reset() {
	m.buf = m.buf[:0]
}

// Feed advances the machine by one keystroke event. It returns a non-nil
// Match when a trigger completed on this event; at most one match fires
// per event. The buffer is cleared after a match so the freshly typed
// replacement cannot immediately re-trigger.
func (m *Machine) Feed(ev keysource.Event) *Match {
	switch ev.Kind {
	case keysource.KindBackspace:
		if len(m.buf) > 0 {
			m.buf = m.buf[:len(m.buf)-1]
		}
		return nil

	case keysource.KindOther:
		m.Reset()
		return nil

	case keysource.KindCharacter:
		m.push(ev.Char)
		return m.check()

	default:
		return nil
	}
}

func (m *Machine) push(r rune) {
	if len(m.buf) >= m.cap {
		copy(m.buf, m.buf[1:])
		m.buf = m.buf[:len(m.buf)-1]
	}
	m.buf = append(m.buf, r)
}

func (m *Machine) check() *Match {
	for _, hit := range m.index.Lookup(m.buf) {
		if hit.Candidate.WordBoundary && !m.boundaryBefore(hit.Len) {
			continue
		}
		typed := string(m.buf[len(m.buf)-hit.Len:])
		m.Reset()
		return &Match{
			Candidate:  hit.Candidate,
			Typed:      typed,
			TriggerLen: hit.Len,
		}
	}
	return nil
}

// boundaryBefore reports whether the rune immediately before a trigger of
// the given length is a word boundary. An empty prefix counts as a
// boundary: the buffer starts fresh after matches and caret movement, so
// nothing known precedes the trigger.
func (m *Machine) boundaryBefore(triggerLen int) bool {
	pos := len(m.buf) - triggerLen - 1
	if pos < 0 {
		return true
	}
	return !isWordRune(m.buf[pos])
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
