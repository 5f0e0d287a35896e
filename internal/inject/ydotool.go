package inject

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// YdotoolSink emits synthetic input through the ydotool CLI, which works on
// both X11 and Wayland via uinput. Argument shapes stay compatible with
// ydotool 0.1.x: key names like BackSpace and the --key-delay flag.
type YdotoolSink struct {
	// SocketPath overrides YDOTOOL_SOCKET for ydotoold. Empty uses the
	// ambient environment.
	SocketPath string

	// KeystrokeDelay spaces synthetic keystrokes when typing text.
	KeystrokeDelay time.Duration
}

// Available reports whether ydotool can be found on PATH.
func (y *YdotoolSink) Available() (bool, string) {
	if _, err := exec.LookPath("ydotool"); err != nil {
		return false, "ydotool not found on PATH"
	}
	return true, ""
}

// Apply runs one operation as a ydotool invocation.
func (y *YdotoolSink) Apply(ctx context.Context, op Op) error {
	switch op.Kind {
	case OpDeleteBackward:
		if op.Count <= 0 {
			return nil
		}
		return y.run(ctx, "key", "--repeat", strconv.Itoa(op.Count), "BackSpace")

	case OpTypeText:
		if op.Text == "" {
			return nil
		}
		delayMs := strconv.FormatInt(y.KeystrokeDelay.Milliseconds(), 10)
		return y.run(ctx, "type", "--key-delay", delayMs, "--", op.Text)

	case OpMoveCaretLeft:
		if op.Count <= 0 {
			return nil
		}
		return y.run(ctx, "key", "--repeat", strconv.Itoa(op.Count), "Left")

	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}

func (y *YdotoolSink) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ydotool", args...)
	if y.SocketPath != "" {
		cmd.Env = append(os.Environ(), "YDOTOOL_SOCKET="+y.SocketPath)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ydotool %s: %w: %s", args[0], err, out)
	}
	return nil
}
