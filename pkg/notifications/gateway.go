package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// DefaultListLimit bounds ListMine when the caller passes no limit.
const DefaultListLimit = 50

// Gateway is the only path from the engine to the Repository.
//
// Every call takes the current user id explicitly. An empty id means no one
// is signed in: the call returns the neutral result (empty list, zero, nil
// error) without touching the repository. Repository failures are logged
// and returned; repository panics are recovered and returned as
// ErrRepositoryPanic.
type Gateway struct {
	repo   Repository
	limit  int
	logger *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger for the Gateway.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithDefaultLimit overrides DefaultListLimit.
func WithDefaultLimit(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.limit = n
		}
	}
}

// NewGateway creates a Gateway over repo.
func NewGateway(repo Repository, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		repo:   repo,
		limit:  DefaultListLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("notifications.gateway"))
	return g
}

// ListMine returns up to limit of the user's notifications, newest first.
// A user without a profile row gets an empty list and no error.
func (g *Gateway) ListMine(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if userID == "" {
		return []Notification{}, nil
	}
	if limit <= 0 {
		limit = g.limit
	}

	var list []Notification
	err := g.call(ctx, "list", userID, "", func() (err error) {
		list, err = g.repo.List(ctx, userID, ListOptions{Limit: limit})
		return err
	})
	if errors.Is(err, ErrProfileNotFound) {
		return []Notification{}, nil
	}
	if err != nil {
		return []Notification{}, err
	}
	if list == nil {
		list = []Notification{}
	}
	return list, nil
}

// Get hydrates a single notification through the same read path as ListMine.
// It returns nil, nil when the row does not exist or belongs to someone else.
func (g *Gateway) Get(ctx context.Context, userID, id string) (*Notification, error) {
	if userID == "" || id == "" {
		return nil, nil
	}

	var list []Notification
	err := g.call(ctx, "get", userID, id, func() (err error) {
		list, err = g.repo.List(ctx, userID, ListOptions{Limit: 1, IDs: []string{id}})
		return err
	})
	if errors.Is(err, ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, n := range list {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, nil
}

// CountUnread returns the user's unread total. Zero without identity.
func (g *Gateway) CountUnread(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	var count int
	err := g.call(ctx, "count_unread", userID, "", func() (err error) {
		count, err = g.repo.CountUnread(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead marks one of the user's notifications read.
func (g *Gateway) MarkRead(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return nil
	}
	return g.call(ctx, "mark_read", userID, id, func() error {
		return g.repo.MarkRead(ctx, userID, id)
	})
}

// MarkUnread marks one of the user's notifications unread.
func (g *Gateway) MarkUnread(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return nil
	}
	return g.call(ctx, "mark_unread", userID, id, func() error {
		return g.repo.MarkUnread(ctx, userID, id)
	})
}

// MarkAllRead flips only the user's unread rows.
func (g *Gateway) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return g.call(ctx, "mark_all_read", userID, "", func() error {
		return g.repo.MarkAllRead(ctx, userID)
	})
}

// DeleteOne deletes one of the user's notifications.
func (g *Gateway) DeleteOne(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return nil
	}
	return g.call(ctx, "delete", userID, id, func() error {
		return g.repo.Delete(ctx, userID, id)
	})
}

// call runs fn, converting panics to errors and logging failures.
// ErrProfileNotFound is an expected state and is not logged as a failure.
func (g *Gateway) call(ctx context.Context, op, userID, id string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
		if err == nil || errors.Is(err, ErrProfileNotFound) {
			return
		}
		err = fmt.Errorf("notifications %s: %w", op, err)
		g.logger.LogAttrs(ctx, slog.LevelError, "notification gateway call failed",
			slog.String("op", op),
			logger.UserID(userID),
			logger.NotificationID(id),
			logger.Error(err),
		)
	}()
	return fn()
}
