package inject

import (
	"context"
	"fmt"
	"time"

	"expandd/internal/keysource"
)

// stepDelay lets the focused application settle between deletion, typing,
// and caret movement. Some toolkits drop input arriving mid-redraw.
const stepDelay = 10 * time.Millisecond

// Injector executes operation plans while suppressing the daemon's own
// synthetic keystrokes. The gate stays closed for the duration of a plan so
// echoed events from the injection never reach the matcher.
type Injector struct {
	sink  Sink
	gate  *keysource.Gate
	pause func(time.Duration)
}

// NewInjector wires a sink to the suppression gate shared with the key
// event source.
func NewInjector(sink Sink, gate *keysource.Gate) *Injector {
	return &Injector{
		sink:  sink,
		gate:  gate,
		pause: time.Sleep,
	}
}

// Inject executes the plan in order. The suppression gate closes before the
// first operation and reopens when the plan finishes, error or not. A
// failed operation aborts the rest of the plan; partial output is left as
// is since the daemon cannot know what the application actually received.
func (in *Injector) Inject(ctx context.Context, plan []Op) error {
	if len(plan) == 0 {
		return nil
	}

	in.gate.Close()
	defer in.gate.Open()

	for i, op := range plan {
		if i > 0 {
			in.pause(stepDelay)
		}
		if err := in.sink.Apply(ctx, op); err != nil {
			return fmt.Errorf("apply %s: %w", op.Kind, err)
		}
	}
	return nil
}
