package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
)

// PostgresChannel receives inserts announced by the notifications insert
// trigger. One connection LISTENs for the whole process and events are
// routed to local subscribers by owner. After a lost connection it
// reconnects with backoff and signals OnReconnect to every subscriber.
type PostgresChannel struct {
	pool    *pgxpool.Pool
	channel string
	backoff Backoff
	logger  *slog.Logger
	fanout  *fanout

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// PostgresOption configures a PostgresChannel.
type PostgresOption func(*PostgresChannel)

// WithListenChannel overrides notifications.InsertChannel.
func WithListenChannel(name string) PostgresOption {
	return func(c *PostgresChannel) {
		if name != "" {
			c.channel = name
		}
	}
}

// WithPostgresBackoff sets the reconnect policy.
func WithPostgresBackoff(b Backoff) PostgresOption {
	return func(c *PostgresChannel) {
		c.backoff = b
	}
}

// WithPostgresLogger sets the channel logger.
func WithPostgresLogger(l *slog.Logger) PostgresOption {
	return func(c *PostgresChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewPostgresChannel listens for trigger notifications on a connection from pool.
func NewPostgresChannel(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresChannel {
	c := &PostgresChannel{
		pool:    pool,
		channel: notifications.InsertChannel,
		backoff: DefaultBackoff,
		logger:  slog.Default(),
		fanout:  newFanout(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("realtime.postgres"), slog.String("channel", c.channel))
	return c
}

// Subscribe starts listening on first use. It returns once LISTEN is in
// place, so no insert committed after Subscribe returns is missed.
func (c *PostgresChannel) Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error) {
	if !topic.valid() {
		return nil, ErrInvalidTopic
	}
	if err := c.start(ctx); err != nil {
		return nil, err
	}
	return c.fanout.add(ctx, topic, h), nil
}

func (c *PostgresChannel) start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	if c.done != nil {
		return nil
	}

	conn, err := c.listen(ctx)
	if err != nil {
		return err
	}

	lctx, cancel := context.WithCancel(context.Background())
	c.cancel, c.done = cancel, make(chan struct{})
	go c.run(lctx, conn)
	return nil
}

// listen takes a connection out of the pool for good and issues LISTEN on it.
func (c *PostgresChannel) listen(ctx context.Context) (*pgx.Conn, error) {
	pooled, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Join(ErrListenFailed, err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{c.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, errors.Join(ErrListenFailed, err)
	}
	return conn, nil
}

func (c *PostgresChannel) run(ctx context.Context, conn *pgx.Conn) {
	defer close(c.done)

	for {
		err := c.receive(ctx, conn)
		_ = conn.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		c.logger.LogAttrs(ctx, slog.LevelWarn, "lost listen connection", logger.Error(err))

		conn = c.reconnect(ctx)
		if conn == nil {
			return
		}

		c.logger.LogAttrs(ctx, slog.LevelInfo, "listen connection restored",
			logger.Count(c.fanout.len()))
		c.fanout.reconnected()
	}
}

func (c *PostgresChannel) receive(ctx context.Context, conn *pgx.Conn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev, err := decodeEvent([]byte(n.Payload))
		if err != nil {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "skipping notification payload",
				slog.String("payload", n.Payload), logger.Error(err))
			continue
		}
		c.fanout.dispatch(ev)
	}
}

func (c *PostgresChannel) reconnect(ctx context.Context) *pgx.Conn {
	for attempt := 0; ; attempt++ {
		if !sleep(ctx, c.backoff.Delay(attempt)) {
			return nil
		}
		conn, err := c.listen(ctx)
		if err == nil {
			return conn
		}
		c.logger.LogAttrs(ctx, slog.LevelWarn, "reconnect failed",
			slog.Int("attempt", attempt+1), logger.Error(err))
	}
}

// Publish sends ev through pg_notify on the listen channel. The insert
// trigger already does this for notification rows; Publish serves
// producers that write elsewhere.
func (c *PostgresChannel) Publish(ctx context.Context, topic Topic, ev Event) error {
	if !topic.valid() {
		return ErrInvalidTopic
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, "SELECT pg_notify($1, $2)", c.channel, string(payload))
	return err
}

// Close stops listening and ends every subscription.
func (c *PostgresChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.fanout.closeAll()
	return nil
}
