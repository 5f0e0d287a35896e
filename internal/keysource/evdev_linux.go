//go:build linux

package keysource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"expandd/internal/logging"
)

// evdev event types and values.
const (
	evKey      = 1
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// inputEvent matches the Linux input_event struct. Timeval is
// architecture-sized, which is why the decode goes through x/sys/unix.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// keyboardDevice is one discovered keyboard.
type keyboardDevice struct {
	path string
	name string
}

// LinuxSource reads key events from /dev/input and decodes them to
// printable characters with a QWERTY keymap.
type LinuxSource struct {
	mu      sync.Mutex
	running bool
	events  chan Event
	files   []*os.File
	cancel  context.CancelFunc
	keymap  *Keymap
	log     *logging.Logger
}

// NewPlatformSource returns the key source for this platform.
func NewPlatformSource() Source {
	return &LinuxSource{
		keymap: NewQwertyKeymap(),
		log:    logging.Default().WithComponent("keysource"),
	}
}

// Available checks whether at least one keyboard device is readable.
func (l *LinuxSource) Available() (bool, string) {
	devices, err := findKeyboardDevices()
	if err != nil {
		return false, fmt.Sprintf("cannot enumerate input devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}
	for _, dev := range devices {
		f, err := os.OpenFile(dev.path, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("keyboard device: %s (%s)", dev.path, dev.name)
		}
	}
	return false, "cannot read keyboard devices (need to be in 'input' group or run as root)"
}

// findKeyboardDevices parses /proc/bus/input/devices for event handlers
// with key capabilities.
func findKeyboardDevices() ([]keyboardDevice, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var devices []keyboardDevice
	var current keyboardDevice
	isKeyboard := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "N: Name="):
			current.name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)

		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					current.path = "/dev/input/" + part
				}
			}

		case strings.HasPrefix(line, "B: KEY="):
			// A long KEY bitmap means real key capabilities, not just
			// a power button.
			if len(line) > 40 {
				isKeyboard = true
			}

		case line == "":
			if isKeyboard && current.path != "" {
				devices = append(devices, current)
			}
			current = keyboardDevice{}
			isKeyboard = false
		}
	}
	if isKeyboard && current.path != "" {
		devices = append(devices, current)
	}
	return devices, scanner.Err()
}

// Start opens all readable keyboard devices and begins decoding.
func (l *LinuxSource) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyRunning
	}

	devices, err := findKeyboardDevices()
	if err != nil || len(devices) == 0 {
		return ErrNotAvailable
	}

	var files []*os.File
	for _, dev := range devices {
		f, err := os.OpenFile(dev.path, os.O_RDONLY, 0)
		if err != nil {
			l.log.Debug("cannot open input device", "path", dev.path, "error", err)
			continue
		}
		l.log.Info("reading keyboard device", "path", dev.path, "name", dev.name)
		files = append(files, f)
	}
	if len(files) == 0 {
		return ErrNotAvailable
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.files = files
	l.events = make(chan Event, 256)
	l.running = true

	raw := make(chan inputEvent, 256)
	var readers sync.WaitGroup
	for _, f := range files {
		readers.Add(1)
		go func(f *os.File) {
			defer readers.Done()
			l.readDevice(f, raw)
		}(f)
	}
	go func() {
		readers.Wait()
		close(raw)
	}()
	go l.decodeLoop(ctx, raw)

	return nil
}

// readDevice reads raw input_event structs from one device. It returns
// when the device file is closed.
func (l *LinuxSource) readDevice(f *os.File, raw chan<- inputEvent) {
	size := binary.Size(inputEvent{})
	buf := make([]byte, size)

	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		if n < size {
			continue
		}
		var ev inputEvent
		if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ev); err != nil {
			continue
		}
		if ev.Type == evKey {
			raw <- ev
		}
	}
}

// decodeLoop applies modifier state and the keymap, emitting Events in
// arrival order.
func (l *LinuxSource) decodeLoop(ctx context.Context, raw <-chan inputEvent) {
	defer close(l.events)

	shift := false
	capsLock := false

	for {
		var ev inputEvent
		var ok bool
		select {
		case <-ctx.Done():
			return
		case ev, ok = <-raw:
			if !ok {
				return
			}
		}

		switch ev.Code {
		case keyLeftShift, keyRightShift:
			shift = ev.Value != keyRelease
			continue
		case keyCapsLock:
			if ev.Value == keyPress {
				capsLock = !capsLock
			}
			continue
		}

		// Presses and autorepeats both edit the foreign text field, so
		// both must reach the buffer; releases never do.
		if ev.Value != keyPress && ev.Value != keyRepeat {
			continue
		}

		var out Event
		switch {
		case ev.Code == keyBackspace:
			out = Backspace
		case isModifier(ev.Code):
			continue
		default:
			if ch, mapped := l.keymap.Translate(ev.Code, shift, capsLock); mapped {
				out = Character(ch)
			} else {
				// Enter, tab, escape, arrows, unknown codes: the engine
				// treats all of them as a buffer reset.
				out = Other
			}
		}

		select {
		case l.events <- out:
		case <-ctx.Done():
			return
		}
	}
}

// Stop closes the devices, which unblocks the readers, and tears down the
// decode loop.
func (l *LinuxSource) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	if l.cancel != nil {
		l.cancel()
	}
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
	return nil
}

// Events returns the decoded event stream.
func (l *LinuxSource) Events() <-chan Event { return l.events }
