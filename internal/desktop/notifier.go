// Package desktop raises native notifications over the session bus using the
// org.freedesktop.Notifications interface.
package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/pausalabs/pausa/internal/model"
	"github.com/pausalabs/pausa/internal/monitor"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
	closeMethod  = "org.freedesktop.Notifications.CloseNotification"

	appName      = "Pausa"
	snoozeAction = "snooze"
	// defaultAction is the reserved freedesktop key for clicking the
	// notification body itself.
	defaultAction = "default"
)

// busObject is the slice of dbus.BusObject the notifier calls through.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Notifier raises desktop notifications and maps tags to server-assigned
// notification IDs, so re-raising a tag replaces the visible notification
// instead of stacking a new one.
type Notifier struct {
	mu       sync.Mutex
	conn     *dbus.Conn
	obj      busObject
	ids      map[string]uint32 // tag -> notification id
	tags     map[uint32]string // notification id -> tag
	onSnooze func(model.ReminderType)
	onOpen   func()
	logger   *slog.Logger
}

// New connects to the session bus. onSnooze is invoked when the user picks
// the snooze action on a reminder notification; onOpen when they click the
// notification body.
func New(onSnooze func(model.ReminderType), onOpen func(), logger *slog.Logger) (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Notifier{
		conn:     conn,
		obj:      conn.Object(notifyDest, notifyPath),
		ids:      make(map[string]uint32),
		tags:     make(map[uint32]string),
		onSnooze: onSnooze,
		onOpen:   onOpen,
		logger:   logger,
	}, nil
}

// Notify raises or replaces the notification for n.Tag.
func (d *Notifier) Notify(n monitor.Notification) error {
	d.mu.Lock()
	replaces := d.ids[n.Tag]
	d.mu.Unlock()

	actions := []string{defaultAction, "Open"}
	if t, ok := reminderTypeForTag(n.Tag); ok && t.Valid() {
		actions = append(actions, snoozeAction, "Snooze 5 min")
	}

	call := d.obj.Call(notifyMethod, 0,
		appName,
		replaces,
		"", // icon: theme default
		n.Title,
		n.Body,
		actions,
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))},
		int32(-1), // server-default expiry
	)
	if call.Err != nil {
		return fmt.Errorf("notify %q: %w", n.Title, call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("read notification id: %w", err)
	}

	d.mu.Lock()
	if replaces != 0 && replaces != id {
		delete(d.tags, replaces)
	}
	d.ids[n.Tag] = id
	d.tags[id] = n.Tag
	d.mu.Unlock()
	return nil
}

// ClearAll closes every notification this process has raised.
func (d *Notifier) ClearAll() error {
	d.mu.Lock()
	ids := make([]uint32, 0, len(d.ids))
	for _, id := range d.ids {
		ids = append(ids, id)
	}
	clear(d.ids)
	clear(d.tags)
	d.mu.Unlock()

	for _, id := range ids {
		if call := d.obj.Call(closeMethod, 0, id); call.Err != nil {
			d.logger.Warn("close notification", "id", id, "error", call.Err)
		}
	}
	return nil
}

// Listen consumes ActionInvoked and NotificationClosed signals until ctx is
// cancelled. It must run for snooze actions to reach the monitor.
func (d *Notifier) Listen(ctx context.Context) error {
	if err := d.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(notifyPath),
		dbus.WithMatchInterface(notifyDest),
	); err != nil {
		return fmt.Errorf("subscribe notification signals: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	d.conn.Signal(signals)
	defer d.conn.RemoveSignal(signals)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			d.handleSignal(sig)
		}
	}
}

func (d *Notifier) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case notifyDest + ".ActionInvoked":
		if len(sig.Body) < 2 {
			return
		}
		id, _ := sig.Body[0].(uint32)
		action, _ := sig.Body[1].(string)
		switch action {
		case snoozeAction:
			d.mu.Lock()
			tag := d.tags[id]
			d.mu.Unlock()
			if t, ok := reminderTypeForTag(tag); ok && d.onSnooze != nil {
				d.logger.Info("snooze requested from notification", "type", t)
				d.onSnooze(t)
			}
		case defaultAction:
			if d.onOpen != nil {
				d.onOpen()
			}
		}

	case notifyDest + ".NotificationClosed":
		if len(sig.Body) < 1 {
			return
		}
		id, _ := sig.Body[0].(uint32)
		d.mu.Lock()
		if tag, ok := d.tags[id]; ok {
			delete(d.tags, id)
			delete(d.ids, tag)
		}
		d.mu.Unlock()
	}
}

// reminderTypeForTag recovers the reminder type from a per-type notification
// tag. Combined and trial notifications have no single type.
func reminderTypeForTag(tag string) (model.ReminderType, bool) {
	for _, t := range model.ReminderTypes() {
		if tag == t.Tag() {
			return t, true
		}
	}
	return "", false
}
