// Package notify sends desktop notifications over the session bus using
// the org.freedesktop.Notifications interface.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notifyBusName    = "org.freedesktop.Notifications"
	notifyObjectPath = "/org/freedesktop/Notifications"
	notifyMethod     = "org.freedesktop.Notifications.Notify"

	appName       = "expandd"
	defaultExpiry = int32(2500) // milliseconds
)

// Notifier sends expansion notifications. All failures are soft: a desktop
// without a notification service must never break expansion itself.
type Notifier interface {
	Expanded(trigger, label string) error
	Close() error
}

// DBusNotifier talks to the session notification service.
type DBusNotifier struct {
	conn *dbus.Conn
}

// NewDBus connects to the session bus.
func NewDBus() (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &DBusNotifier{conn: conn}, nil
}

// Expanded shows a short notification for a completed expansion.
func (n *DBusNotifier) Expanded(trigger, label string) error {
	body := trigger
	if label != "" {
		body = fmt.Sprintf("%s (%s)", trigger, label)
	}

	obj := n.conn.Object(notifyBusName, dbus.ObjectPath(notifyObjectPath))
	call := obj.Call(notifyMethod, 0,
		appName,            // app_name
		uint32(0),          // replaces_id
		"edit-paste",       // app_icon
		"Snippet expanded", // summary
		body,
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		defaultExpiry,
	)
	if call.Err != nil {
		return fmt.Errorf("send notification: %w", call.Err)
	}
	return nil
}

// Close disconnects from the bus.
func (n *DBusNotifier) Close() error {
	return n.conn.Close()
}

// Noop discards notifications. Used when notify_on_expand is off or no
// session bus is reachable.
type Noop struct{}

func (Noop) Expanded(string, string) error { return nil }
func (Noop) Close() error                  { return nil }
