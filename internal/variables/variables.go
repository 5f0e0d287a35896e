// Package variables resolves template variable nodes at expansion time.
//
// Every kind evaluates independently and is allowed to produce different
// output on each evaluation (clock, uuid, random, clipboard). Failures are
// local: a variable that cannot be resolved contributes an empty string and
// the expansion still completes. User-defined variables from the config
// resolve by dot-notation path and are tried for any name outside the
// built-in kind set; a reference with no configured value renders as its
// literal token. Clipboard reads and shell commands go
// through narrow interfaces so the resolver stays testable, and both are
// bounded by a timeout so a hung external process can never stall the
// key-event pipeline.
package variables

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expandd/internal/logging"
	"expandd/internal/template"
)

// Default formats, strftime-style (converted to Go layouts internally).
const (
	defaultDateFormat     = "%Y-%m-%d"
	defaultTimeFormat     = "%H:%M:%S"
	defaultDateTimeFormat = "%Y-%m-%d %H:%M:%S"
)

// DefaultTimeout bounds clipboard reads and shell command execution.
const DefaultTimeout = 3 * time.Second

// Clipboard reads the current clipboard text contents.
type Clipboard interface {
	ReadText(ctx context.Context) (string, error)
}

// Runner executes a shell command line and captures its stdout.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// Resolved is a fully rendered replacement. CursorOffset, when non-negative,
// is the caret position counted in runes from the end of Text. It is
// produced fresh on every expansion and never cached.
type Resolved struct {
	Text         string
	CursorOffset int
}

// HasCursor reports whether a cursor position was requested.
func (r Resolved) HasCursor() bool { return r.CursorOffset >= 0 }

// Resolver evaluates parsed templates.
type Resolver struct {
	clipboard Clipboard
	runner    Runner
	timeout   time.Duration
	now       func() time.Time
	log       *logging.Logger

	mu     sync.RWMutex
	custom map[string]any
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClipboard overrides the clipboard provider.
func WithClipboard(c Clipboard) Option { return func(r *Resolver) { r.clipboard = c } }

// WithRunner overrides the shell executor.
func WithRunner(run Runner) Option { return func(r *Resolver) { r.runner = run } }

// WithTimeout sets the clipboard/shell timeout.
func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// WithCustomVars sets the initial user-defined variable table.
func WithCustomVars(vars map[string]any) Option { return func(r *Resolver) { r.custom = vars } }

// New creates a Resolver with platform defaults.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		clipboard: newSystemClipboard(),
		runner:    newShellRunner(),
		timeout:   DefaultTimeout,
		now:       time.Now,
		log:       logging.Default().WithComponent("variables"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetCustom replaces the user-defined variable table. Safe to call while
// Resolve runs on another goroutine; the config reloader calls it on every
// successful reload.
func (r *Resolver) SetCustom(vars map[string]any) {
	r.mu.Lock()
	r.custom = vars
	r.mu.Unlock()
}

// Resolve renders a template. It never returns an error: failed variables
// resolve to the empty string.
func (r *Resolver) Resolve(ctx context.Context, tpl template.Template) Resolved {
	var b strings.Builder
	cursorAt := -1

	for _, node := range tpl.Nodes {
		switch node.Type {
		case template.NodeLiteral:
			b.WriteString(node.Text)
		case template.NodeCursor:
			if cursorAt < 0 {
				cursorAt = len([]rune(b.String()))
			}
		case template.NodeVariable:
			b.WriteString(r.eval(ctx, node))
		}
	}

	text := b.String()
	offset := -1
	if cursorAt >= 0 {
		offset = len([]rune(text)) - cursorAt
	}
	return Resolved{Text: text, CursorOffset: offset}
}

// eval evaluates a single variable node.
func (r *Resolver) eval(ctx context.Context, node template.Node) string {
	arg := node.Arg
	switch node.Kind {
	case template.KindDate:
		return r.strftime(arg, defaultDateFormat)
	case template.KindTime:
		return r.strftime(arg, defaultTimeFormat)
	case template.KindDateTime:
		return r.strftime(arg, defaultDateTimeFormat)
	case template.KindClipboard:
		return r.readClipboard(ctx)
	case template.KindEnv:
		return os.Getenv(strings.TrimSpace(arg))
	case template.KindShell:
		return r.runShell(ctx, arg)
	case template.KindUUID:
		return uuid.NewString()
	case template.KindRandom:
		return randomDigits(arg)
	case template.KindCustom:
		if v, ok := r.lookupCustom(arg); ok {
			return v
		}
		return node.Text
	default:
		return ""
	}
}

// strftime formats the current local time with a strftime-style pattern. An
// invalid pattern falls back to the given default rather than failing the
// expansion.
func (r *Resolver) strftime(pattern, fallback string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = fallback
	}
	layout, err := strftimeLayout(pattern)
	if err != nil {
		r.log.Warn("invalid time format, using default", "pattern", pattern, "error", err)
		layout, _ = strftimeLayout(fallback)
	}
	return r.now().Format(layout)
}

// lookupCustom walks the user-defined variable table along a dot-notation
// path. Only scalar leaves resolve; a path ending on a nested table misses.
func (r *Resolver) lookupCustom(path string) (string, bool) {
	r.mu.RLock()
	vars := r.custom
	r.mu.RUnlock()
	if len(vars) == 0 || path == "" {
		return "", false
	}

	var cur any = vars
	for _, part := range strings.Split(path, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = table[part]; !ok {
			return "", false
		}
	}

	switch v := cur.(type) {
	case string:
		return v, true
	case bool, int, int64, float64:
		return fmt.Sprint(v), true
	case nil:
		return "", true
	default:
		// Tables and arrays are not direct replacements.
		return "", false
	}
}

func (r *Resolver) readClipboard(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.clipboard.ReadText(ctx)
	if err != nil {
		r.log.Warn("clipboard read failed", "error", err)
		return ""
	}
	return text
}

func (r *Resolver) runShell(ctx context.Context, command string) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.runner.Run(ctx, command)
	if err != nil {
		r.log.Warn("shell variable failed", "error", err)
		return ""
	}
	return strings.TrimSuffix(out, "\n")
}

// randomDigits returns exactly n decimal digits for argument n, leading
// zeros allowed. Non-positive or unparseable n yields an empty string.
func randomDigits(arg string) string {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n <= 0 {
		return ""
	}
	digits := make([]byte, n)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return string(digits)
}
