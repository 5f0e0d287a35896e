package keysource

import (
	"context"
	"testing"
	"time"
)

func TestKeymapTranslate(t *testing.T) {
	km := NewQwertyKeymap()

	cases := []struct {
		code  uint16
		shift bool
		caps  bool
		want  rune
	}{
		{30, false, false, 'a'},
		{30, true, false, 'A'},
		{30, false, true, 'A'},  // caps lock
		{30, true, true, 'a'},   // shift cancels caps on letters
		{2, false, false, '1'},
		{2, true, false, '!'},
		{2, false, true, '1'},   // caps lock doesn't shift digits
		{39, false, false, ';'},
		{39, true, false, ':'},
		{keySpace, true, false, ' '},
	}
	for _, tc := range cases {
		got, ok := km.Translate(tc.code, tc.shift, tc.caps)
		if !ok {
			t.Errorf("Translate(%d) not mapped", tc.code)
			continue
		}
		if got != tc.want {
			t.Errorf("Translate(%d, shift=%v, caps=%v) = %q, want %q",
				tc.code, tc.shift, tc.caps, got, tc.want)
		}
	}

	if _, ok := km.Translate(keyEsc, false, false); ok {
		t.Error("escape should not map to a character")
	}
	if _, ok := km.Translate(keyEnter, false, false); ok {
		t.Error("enter should not map to a character")
	}
}

func TestSimulatedSource(t *testing.T) {
	s := NewSimulated()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("second Start should return ErrAlreadyRunning, got %v", err)
	}

	s.Type("ab")
	s.PressBackspace()
	s.PressOther()

	want := []Event{Character('a'), Character('b'), Backspace, Other}
	for i, w := range want {
		got := <-s.Events()
		if got != w {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestGateSuppressesEvents(t *testing.T) {
	inner := NewSimulated()
	gate := &Gate{}
	src := Gated(inner, gate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop()

	inner.Type("x")
	if got := <-src.Events(); got != Character('x') {
		t.Fatalf("open gate should forward, got %+v", got)
	}

	gate.Close()
	inner.Type("synthetic")
	// Give the forwarder time to drain and drop.
	deadline := time.Now().Add(time.Second)
	for gate.Dropped() < uint64(len("synthetic")) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if gate.Dropped() != uint64(len("synthetic")) {
		t.Fatalf("dropped = %d, want %d", gate.Dropped(), len("synthetic"))
	}

	gate.Open()
	inner.Type("y")
	select {
	case got := <-src.Events():
		if got != Character('y') {
			t.Errorf("suppressed events leaked through: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("reopened gate did not forward")
	}
}
