package variables

import (
	"context"
	"errors"
	"os/exec"
)

// systemClipboard reads the clipboard via command-line tools, trying xclip,
// xsel, then wl-paste so both X11 and Wayland sessions are covered.
type systemClipboard struct{}

func newSystemClipboard() Clipboard {
	return &systemClipboard{}
}

var clipboardCommands = [][]string{
	{"xclip", "-selection", "clipboard", "-o"},
	{"xsel", "--clipboard", "--output"},
	{"wl-paste", "--no-newline"},
}

func (c *systemClipboard) ReadText(ctx context.Context) (string, error) {
	var lastErr error
	for _, argv := range clipboardCommands {
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
		if err == nil {
			return string(out), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no clipboard tool available")
	}
	return "", lastErr
}

// shellRunner executes command lines with sh -c.
type shellRunner struct{}

func newShellRunner() Runner {
	return &shellRunner{}
}

func (s *shellRunner) Run(ctx context.Context, command string) (string, error) {
	out, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
