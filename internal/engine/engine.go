// Package engine runs the expansion pipeline: it feeds keystrokes through
// the matcher and, on a completed trigger, resolves, cases, plans, and
// injects the replacement.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"expandd/internal/casing"
	"expandd/internal/config"
	"expandd/internal/history"
	"expandd/internal/inject"
	"expandd/internal/keysource"
	"expandd/internal/logging"
	"expandd/internal/match"
	"expandd/internal/notify"
	"expandd/internal/template"
	"expandd/internal/variables"
)

// Options wires the engine's collaborators. Source must already be gated
// with Gate so injections are suppressed from the event stream.
type Options struct {
	Source   keysource.Source
	Gate     *keysource.Gate
	Resolver *variables.Resolver
	Injector *inject.Injector
	History  *history.Store // nil disables history
	Notifier notify.Notifier
	Logger   *logging.Logger
}

// Engine is the daemon core. All keystroke processing happens on the Run
// goroutine; config swaps and runtime toggles arrive through atomics so
// the hot path never takes a lock.
type Engine struct {
	source   keysource.Source
	gate     *keysource.Gate
	resolver *variables.Resolver
	injector *inject.Injector
	hist     *history.Store
	notifier notify.Notifier
	log      *logging.Logger

	index          atomic.Pointer[match.Index]
	enabled        atomic.Bool
	notifyOnExpand atomic.Bool
	expansions     atomic.Uint64
	versions       atomic.Uint64

	startedAt time.Time

	mu       sync.RWMutex
	snippets []config.Snippet
}

// New creates an engine and applies the initial configuration.
func New(cfg *config.Config, opts Options) *Engine {
	e := &Engine{
		source:    opts.Source,
		gate:      opts.Gate,
		resolver:  opts.Resolver,
		injector:  opts.Injector,
		hist:      opts.History,
		notifier:  opts.Notifier,
		log:       opts.Logger,
		startedAt: time.Now(),
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}
	if e.log == nil {
		e.log = logging.Default()
	}
	e.ApplyConfig(cfg)
	return e
}

// ApplyConfig swaps in a new snippet index and runtime settings. Safe to
// call from any goroutine; the matcher picks the new index up on the next
// event.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	version := e.versions.Add(1)
	idx := match.NewIndex(cfg.Snippets, version)
	e.index.Store(idx)

	e.resolver.SetCustom(cfg.Variables)
	e.enabled.Store(cfg.Settings.EnabledGlobal())
	e.notifyOnExpand.Store(cfg.Settings.NotifyOnExpand)

	e.mu.Lock()
	e.snippets = append([]config.Snippet(nil), cfg.Snippets...)
	e.mu.Unlock()

	e.log.Info("configuration applied",
		"version", version,
		"triggers", idx.Len(),
		"enabled", cfg.Settings.EnabledGlobal())
}

// SetEnabled toggles expansion at runtime without touching configuration.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	e.log.Info("expansion toggled", "enabled", enabled)
}

// Enabled reports the current runtime toggle.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// Snippets returns a copy of the loaded snippet list in declaration order.
func (e *Engine) Snippets() []config.Snippet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]config.Snippet(nil), e.snippets...)
}

// Stats is a point-in-time view of engine counters.
type Stats struct {
	StartedAt    time.Time
	Enabled      bool
	SnippetCount int
	IndexVersion uint64
	Expansions   uint64
	Suppressed   uint64
}

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	idx := e.index.Load()
	return Stats{
		StartedAt:    e.startedAt,
		Enabled:      e.enabled.Load(),
		SnippetCount: idx.Len(),
		IndexVersion: idx.Version(),
		Expansions:   e.expansions.Load(),
		Suppressed:   e.gate.Dropped(),
	}
}

// Run starts the key source and processes events until ctx is cancelled or
// the source's event channel closes.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.source.Start(ctx); err != nil {
		return fmt.Errorf("start key source: %w", err)
	}
	defer e.source.Stop()

	machine := match.NewMachine(e.index.Load())
	e.log.Info("engine running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-e.source.Events():
			if !ok {
				return nil
			}
			if !e.enabled.Load() {
				continue
			}
			if idx := e.index.Load(); idx != nil && idx.Version() != machine.Version() {
				machine.SetIndex(idx)
			}
			if m := machine.Feed(ev); m != nil {
				e.expand(ctx, m)
			}
		}
	}
}

// expand performs one expansion end to end. Failures are logged, never
// fatal: a broken shell variable or an injection hiccup must not take the
// daemon down.
func (e *Engine) expand(ctx context.Context, m *match.Match) {
	start := time.Now()
	cand := m.Candidate

	tpl := template.Parse(cand.Replace)
	resolved := e.resolver.Resolve(ctx, tpl)

	text := resolved.Text
	if cand.PropagateCase {
		text = casing.Propagate(m.Typed, text)
	}

	cursorOffset := -1
	if cand.CursorMarker && resolved.HasCursor() {
		cursorOffset = resolved.CursorOffset
	}

	plan := inject.Plan(m.TriggerLen, text, cursorOffset)
	if err := e.injector.Inject(ctx, plan); err != nil {
		e.log.Error("injection failed", "trigger", cand.Trigger, "error", err)
		return
	}

	elapsed := time.Since(start)
	e.expansions.Add(1)
	e.log.Debug("expanded",
		"trigger", cand.Trigger,
		"typed", m.Typed,
		"chars", len([]rune(text)),
		"took", elapsed)

	e.record(m, text, elapsed)

	if e.notifyOnExpand.Load() {
		if err := e.notifier.Expanded(cand.Trigger, cand.Label); err != nil {
			e.log.Debug("notification failed", "error", err)
		}
	}
}

func (e *Engine) record(m *match.Match, text string, elapsed time.Duration) {
	if e.hist == nil {
		return
	}
	_, err := e.hist.Insert(&history.Entry{
		Timestamp:      time.Now(),
		Trigger:        m.Candidate.Trigger,
		Typed:          m.Typed,
		Label:          m.Candidate.Label,
		ReplacementLen: len([]rune(text)),
		Duration:       elapsed,
	})
	if err != nil {
		e.log.Warn("history insert failed", "error", err)
	}
}
