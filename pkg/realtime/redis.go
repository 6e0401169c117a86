package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// DefaultRedisPrefix namespaces pub/sub channel names.
const DefaultRedisPrefix = "notifsync:realtime:"

// RedisChannel carries insert events over Redis pub/sub, one Redis channel
// per topic. go-redis reconnects a dropped subscription on its own; the
// re-subscribe confirmation that follows is surfaced as OnReconnect.
type RedisChannel struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// RedisOption configures a RedisChannel.
type RedisOption func(*RedisChannel)

// WithRedisPrefix sets the prefix of Redis channel names.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisChannel) {
		c.prefix = prefix
	}
}

// WithRedisLogger sets the channel logger.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(c *RedisChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRedisChannel publishes and subscribes through client.
func NewRedisChannel(client redis.UniversalClient, opts ...RedisOption) *RedisChannel {
	c := &RedisChannel{
		client: client,
		prefix: DefaultRedisPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("realtime.redis"))
	return c
}

func (c *RedisChannel) name(topic Topic) string {
	return c.prefix + topic.String()
}

// Subscribe returns once Redis has confirmed the subscription.
func (c *RedisChannel) Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error) {
	if !topic.valid() {
		return nil, ErrInvalidTopic
	}

	name := c.name(topic)
	ps := c.client.Subscribe(ctx, name)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{ps: ps, cancel: cancel}
	context.AfterFunc(sctx, func() { _ = sub.Unsubscribe() })

	go c.deliver(sctx, ps.ChannelWithSubscriptions(), topic, h)
	return sub, nil
}

func (c *RedisChannel) deliver(ctx context.Context, msgs <-chan any, topic Topic, h Handler) {
	for msg := range msgs {
		if ctx.Err() != nil {
			return
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				c.logger.LogAttrs(ctx, slog.LevelInfo, "subscription restored", logger.Topic(m.Channel))
				h.OnReconnect(ctx)
			}
		case *redis.Message:
			ev, err := decodeEvent([]byte(m.Payload))
			if err != nil || ev.UserID != topic.UserID {
				c.logger.LogAttrs(ctx, slog.LevelDebug, "skipping message",
					logger.Topic(m.Channel), logger.Error(err))
				continue
			}
			h.OnInsert(ctx, ev)
		}
	}
}

// Publish sends ev to the topic's Redis channel.
func (c *RedisChannel) Publish(ctx context.Context, topic Topic, ev Event) error {
	if !topic.valid() {
		return ErrInvalidTopic
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.name(topic), payload).Err()
}

type redisSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		s.err = s.ps.Close()
	})
	return s.err
}
