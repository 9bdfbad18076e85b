// Package notify fans a notification out to the delivery channels a user
// has enabled in their profile settings. Channels run best-effort: a
// failing channel is logged and the rest still fire.
package notify

import (
	"context"

	chat "github.com/hallwaychat/go-chat"
)

// Icon names accepted by in-app notifications.
const (
	IconInfo    = "info"
	IconSuccess = "success"
	IconWarning = "warning"
	IconError   = "error"
)

// Notification is one user-facing alert.
type Notification struct {
	Title string
	Body  string
	Icon  string
}

// Channel delivers a notification over one medium (in-app toast, sound,
// push).
type Channel interface {
	Send(ctx context.Context, n Notification) error
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(ctx context.Context, n Notification) error

// Send implements Channel.
func (f ChannelFunc) Send(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// Dispatcher routes notifications to the channels a user's settings allow.
type Dispatcher struct {
	inApp  Channel
	sound  Channel
	push   Channel
	logger chat.Logger
}

// DispatcherOption customizes the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithInApp sets the in-app (toast) channel.
func WithInApp(c Channel) DispatcherOption {
	return func(d *Dispatcher) { d.inApp = c }
}

// WithSound sets the sound channel.
func WithSound(c Channel) DispatcherOption {
	return func(d *Dispatcher) { d.sound = c }
}

// WithPush sets the push channel.
func WithPush(c Channel) DispatcherOption {
	return func(d *Dispatcher) { d.push = c }
}

// WithLogger overrides the default logger.
func WithLogger(logger chat.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher returns a dispatcher; channels left unset are skipped.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger: chat.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d
}

// Dispatch sends the notification over every channel the settings enable.
// Disabled or unset channels are skipped silently; channel failures are
// logged and do not stop the remaining channels.
func (d *Dispatcher) Dispatch(ctx context.Context, settings chat.NotificationSettings, n Notification) {
	if n.Icon == "" {
		n.Icon = IconInfo
	}

	if settings.InApp {
		d.send(ctx, "in-app", d.inApp, n)
	}
	if settings.Sound {
		d.send(ctx, "sound", d.sound, n)
	}
	if settings.Push {
		d.send(ctx, "push", d.push, n)
	}
}

func (d *Dispatcher) send(ctx context.Context, name string, c Channel, n Notification) {
	if c == nil {
		return
	}
	if err := c.Send(ctx, n); err != nil {
		d.logger.Warn("%s notification failed: %s", name, err)
	}
}
