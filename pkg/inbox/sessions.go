package inbox

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/notifsync/pkg/cache"
	"github.com/dmitrymomot/notifsync/pkg/identity"
	"github.com/dmitrymomot/notifsync/pkg/ledger"
	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/realtime"
)

// DefaultMaxSessions bounds how many user centers a process keeps alive.
const DefaultMaxSessions = 1000

// Factory builds a started, loaded Center for userID.
type Factory func(ctx context.Context, userID string) (*Center, error)

// Deps are the shared collaborators of every per-user Center.
type Deps struct {
	Gateway       *notifications.Gateway
	Channel       realtime.Channel
	LedgerStorage ledger.Storage
	Logger        *slog.Logger
	Options       []Option
}

// Factory returns a Factory that gives each user a Center with its own
// ledger namespace and a fixed identity.
func (d Deps) Factory() Factory {
	return func(ctx context.Context, userID string) (*Center, error) {
		log := d.Logger
		if log == nil {
			log = slog.Default()
		}

		l := ledger.New(d.LedgerStorage,
			ledger.WithNamespace(ledger.DefaultNamespace+userID+":"),
			ledger.WithLogger(log),
		)

		opts := append([]Option{WithResolver(identity.Static(userID)), WithLogger(log)}, d.Options...)
		c, err := NewCenter(d.Gateway, d.Channel, l, opts...)
		if err != nil {
			return nil, err
		}

		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		if err := c.Load(ctx); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "initial unread count failed", logger.UserID(userID), logger.Error(err))
		}
		return c, nil
	}
}

// Sessions keeps one Center per signed-in user. The least recently used
// centers are closed when the limit is reached.
type Sessions struct {
	centers *cache.LRU[string, *Center]
	factory Factory
	logger  *slog.Logger

	creating singleflight.Group // one factory call per user at a time
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithSessionsLogger sets the sessions logger.
func WithSessionsLogger(l *slog.Logger) SessionsOption {
	return func(s *Sessions) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSessions keeps at most capacity Centers built by factory.
// A non-positive capacity means DefaultMaxSessions.
func NewSessions(factory Factory, capacity int, opts ...SessionsOption) *Sessions {
	if capacity <= 0 {
		capacity = DefaultMaxSessions
	}

	s := &Sessions{
		centers: cache.NewLRU[string, *Center](capacity),
		factory: factory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("inbox.sessions"))

	s.centers.OnEvict(func(userID string, c *Center) {
		if err := c.Close(); err != nil {
			s.logger.LogAttrs(context.Background(), slog.LevelWarn, "failed to close evicted center",
				logger.UserID(userID), logger.Error(err))
		}
	})
	return s
}

// Get returns the user's Center, creating it on first use.
func (s *Sessions) Get(ctx context.Context, userID string) (*Center, error) {
	if userID == "" {
		return nil, ErrIdentityRequired
	}
	if c, ok := s.centers.Get(userID); ok {
		return c, nil
	}

	// Creation is shared by concurrent callers for the same user and must
	// not depend on whichever request happened to start it.
	v, err, _ := s.creating.Do(userID, func() (any, error) {
		if c, ok := s.centers.Get(userID); ok {
			return c, nil
		}
		c, err := s.factory(context.WithoutCancel(ctx), userID)
		if err != nil {
			return nil, err
		}
		s.centers.Put(userID, c)
		s.logger.LogAttrs(ctx, slog.LevelDebug, "session opened", logger.UserID(userID))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Center), nil
}

// Drop closes and forgets the user's Center, if any.
func (s *Sessions) Drop(userID string) {
	s.centers.Remove(userID)
}

// Len returns the number of open Centers.
func (s *Sessions) Len() int {
	return s.centers.Len()
}

// Close closes every Center.
func (s *Sessions) Close() error {
	s.centers.Clear()
	return nil
}
