package notifications

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// Deliverer pushes a stored notification to realtime listeners.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// MultiDeliverer fans a notification out to several deliverers.
type MultiDeliverer struct {
	deliverers []Deliverer
	logger     *slog.Logger
}

// MultiDelivererOption configures a MultiDeliverer.
type MultiDelivererOption func(*MultiDeliverer)

// WithMultiDelivererLogger sets the logger for failed deliveries.
func WithMultiDelivererLogger(l *slog.Logger) MultiDelivererOption {
	return func(m *MultiDeliverer) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMultiDeliverer fans a notification out to every deliverer.
func NewMultiDeliverer(deliverers []Deliverer, opts ...MultiDelivererOption) *MultiDeliverer {
	m := &MultiDeliverer{
		deliverers: deliverers,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Deliver calls every deliverer. Failures are logged and skipped; it
// always returns nil.
func (m *MultiDeliverer) Deliver(ctx context.Context, n Notification) error {
	for i, d := range m.deliverers {
		if err := d.Deliver(ctx, n); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "failed to deliver notification",
				logger.NotificationID(n.ID),
				logger.UserID(n.UserID),
				slog.Int("deliverer_index", i),
				logger.Error(err),
			)
		}
	}
	return nil
}

// NoOpDeliverer does nothing. Use it when the store itself publishes
// inserts, as the Postgres trigger does.
type NoOpDeliverer struct{}

// Deliver does nothing.
func (NoOpDeliverer) Deliver(context.Context, Notification) error {
	return nil
}
