package match

import (
	"testing"

	"expandd/internal/config"
	"expandd/internal/keysource"
)

func boolPtr(b bool) *bool { return &b }

func snippets(list ...config.Snippet) []config.Snippet { return list }

func typeString(m *Machine, s string) *Match {
	var last *Match
	for _, r := range s {
		if mt := m.Feed(keysource.Character(r)); mt != nil {
			last = mt
		}
	}
	return last
}

func TestSimpleMatch(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";email", Replace: "alice@example.com"},
	), 1)
	m := NewMachine(idx)

	if mt := typeString(m, "hello ;emai"); mt != nil {
		t.Fatalf("premature match: %+v", mt)
	}
	mt := m.Feed(keysource.Character('l'))
	if mt == nil {
		t.Fatal("expected match after final rune")
	}
	if mt.Candidate.Trigger != ";email" || mt.TriggerLen != 6 {
		t.Errorf("match = %+v", mt)
	}
	if mt.Typed != ";email" {
		t.Errorf("typed = %q", mt.Typed)
	}
}

func TestLongestTriggerWins(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: "test", Replace: "short"},
		config.Snippet{Trigger: ";test", Replace: "long"},
	), 1)
	m := NewMachine(idx)

	mt := typeString(m, "hello ;test")
	if mt == nil {
		t.Fatal("expected match")
	}
	if mt.Candidate.Replace != "long" {
		t.Errorf("got %q, want the longer trigger to win", mt.Candidate.Replace)
	}
	if mt.TriggerLen != 5 {
		t.Errorf("trigger len = %d, want 5", mt.TriggerLen)
	}
}

func TestDeclarationOrderBreaksTies(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";x", Replace: "first"},
		config.Snippet{Trigger: ";x", Replace: "second"},
	), 1)
	m := NewMachine(idx)

	mt := typeString(m, ";x")
	if mt == nil {
		t.Fatal("expected match")
	}
	if mt.Candidate.Replace != "first" {
		t.Errorf("got %q, want first-declared snippet", mt.Candidate.Replace)
	}
}

func TestOneMatchPerEventAndBufferCleared(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: "aa", Replace: "x"},
	), 1)
	m := NewMachine(idx)

	matches := 0
	for _, r := range "aaa" {
		if m.Feed(keysource.Character(r)) != nil {
			matches++
		}
	}
	// First two a's match and clear the buffer; the third starts over.
	if matches != 1 {
		t.Errorf("matches = %d, want 1", matches)
	}
}

func TestBackspacePopsBuffer(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";sig", Replace: "x"},
	), 1)
	m := NewMachine(idx)

	typeString(m, ";six")
	m.Feed(keysource.Backspace)
	mt := m.Feed(keysource.Character('g'))
	if mt == nil {
		t.Fatal("expected match after backspace correction")
	}
}

func TestOtherKeyClearsBuffer(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";sig", Replace: "x"},
	), 1)
	m := NewMachine(idx)

	typeString(m, ";si")
	m.Feed(keysource.Other)
	if mt := m.Feed(keysource.Character('g')); mt != nil {
		t.Fatalf("trigger must not span a non-printable key: %+v", mt)
	}
}

func TestWordBoundary(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: "addr", Replace: "x", WordBoundary: true},
	), 1)

	m := NewMachine(idx)
	if mt := typeString(m, "myaddr"); mt != nil {
		t.Fatalf("matched inside a word: %+v", mt)
	}

	m.Reset()
	if mt := typeString(m, "my addr"); mt == nil {
		t.Fatal("expected match after space")
	}

	// Buffer start counts as a boundary.
	m.Reset()
	if mt := typeString(m, "addr"); mt == nil {
		t.Fatal("expected match at buffer start")
	}
}

func TestWordBoundaryFallsBackToShorterTrigger(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: "xaddr", Replace: "long", WordBoundary: true},
		config.Snippet{Trigger: "addr", Replace: "short"},
	), 1)
	m := NewMachine(idx)

	mt := typeString(m, "yxaddr")
	if mt == nil {
		t.Fatal("expected the shorter unbounded trigger to fire")
	}
	if mt.Candidate.Replace != "short" {
		t.Errorf("got %q, want short", mt.Candidate.Replace)
	}
}

func TestMatchingIsCaseSensitiveByDefault(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";sig", Replace: "x"},
	), 1)
	m := NewMachine(idx)

	if mt := typeString(m, ";SIG"); mt != nil {
		t.Fatalf("case-sensitive trigger matched different case: %+v", mt)
	}
	if mt := typeString(m, ";sig"); mt == nil {
		t.Fatal("expected exact-case match")
	}
}

func TestPropagateCaseMatchesInsensitive(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";Sig", Replace: "best regards", PropagateCase: true},
	), 1)

	for _, typed := range []string{";SIG", ";Sig", ";sig"} {
		m := NewMachine(idx)
		mt := typeString(m, typed)
		if mt == nil {
			t.Fatalf("typed %q: expected match", typed)
		}
		if mt.Typed != typed {
			t.Errorf("typed %q: Typed = %q", typed, mt.Typed)
		}
	}
}

func TestDisabledSnippetsSkipped(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";a", Replace: "x", Enabled: boolPtr(false)},
	), 1)
	m := NewMachine(idx)

	if mt := typeString(m, ";a"); mt != nil {
		t.Fatalf("disabled snippet matched: %+v", mt)
	}
}

func TestBufferSlidingWindow(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";t", Replace: "x"},
	), 1)
	m := NewMachine(idx)

	// Overflow the window, then type the trigger; the drop of old runes
	// must not affect suffix matching.
	for i := 0; i < minBufferCap*2; i++ {
		m.Feed(keysource.Character('z'))
	}
	if len(m.buf) > m.cap {
		t.Fatalf("buffer grew past capacity: %d > %d", len(m.buf), m.cap)
	}
	if mt := typeString(m, ";t"); mt == nil {
		t.Fatal("expected match after window overflow")
	}
}

func TestIndexSnapshotSwap(t *testing.T) {
	idx1 := NewIndex(snippets(
		config.Snippet{Trigger: ";old", Replace: "x"},
	), 1)
	idx2 := NewIndex(snippets(
		config.Snippet{Trigger: ";new", Replace: "y"},
	), 2)

	if idx1.Version() != 1 || idx2.Version() != 2 {
		t.Fatal("version not carried through")
	}

	m := NewMachine(idx1)
	m.SetIndex(idx2)

	if mt := typeString(m, ";old"); mt != nil {
		t.Fatalf("stale trigger matched after swap: %+v", mt)
	}
	if mt := typeString(m, ";new"); mt == nil {
		t.Fatal("expected new trigger to match after swap")
	}
}

func TestIndexLen(t *testing.T) {
	idx := NewIndex(snippets(
		config.Snippet{Trigger: ";a", Replace: "1"},
		config.Snippet{Trigger: ";ab", Replace: "2"},
		config.Snippet{Trigger: "", Replace: "ignored"},
		config.Snippet{Trigger: ";off", Replace: "3", Enabled: boolPtr(false)},
	), 7)

	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
	if idx.MaxTriggerLen() != 3 {
		t.Errorf("MaxTriggerLen() = %d, want 3", idx.MaxTriggerLen())
	}
}
