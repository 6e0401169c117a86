package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// Dispatcher is the producer side: it stores a notification and then
// announces it to realtime listeners.
type Dispatcher struct {
	writer    Writer
	deliverer Deliverer
	logger    *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher persists through writer and then delivers through deliverer.
func NewDispatcher(writer Writer, deliverer Deliverer, opts ...DispatcherOption) *Dispatcher {
	if deliverer == nil {
		deliverer = NoOpDeliverer{}
	}

	d := &Dispatcher{
		writer:    writer,
		deliverer: deliverer,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Send persists n and then delivers it. Delivery is best effort: the row is
// already stored and will show up on the next load, so a delivery failure
// is only logged.
func (d *Dispatcher) Send(ctx context.Context, n Notification) (Notification, error) {
	stored, err := d.writer.Insert(ctx, n)
	if err != nil {
		return Notification{}, fmt.Errorf("store notification: %w", err)
	}

	if err := d.deliverer.Deliver(ctx, stored); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "notification stored but not delivered",
			logger.NotificationID(stored.ID),
			logger.UserID(stored.UserID),
			logger.Error(err),
		)
	}

	return stored, nil
}

// SendToUsers sends a copy of tmpl to each user. It stops at the first
// storage failure and returns what was sent so far.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []string, tmpl Notification) ([]Notification, error) {
	sent := make([]Notification, 0, len(userIDs))

	for _, userID := range userIDs {
		n := tmpl.Clone()
		n.ID = ""
		n.UserID = userID

		stored, err := d.Send(ctx, n)
		if err != nil {
			return sent, fmt.Errorf("send to user %s: %w", userID, err)
		}
		sent = append(sent, stored)
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "notification sent to users", logger.Count(len(sent)))
	return sent, nil
}
