package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifsync/pkg/broadcast"
	"github.com/dmitrymomot/notifsync/pkg/cache"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

const (
	DefaultBufferSize = 64
	DefaultMaxTopics  = 10000
)

// MemoryChannel is an in-process Channel and Publisher. Each topic has its
// own broadcaster; the least recently used topics are closed when there
// are more than the configured maximum.
type MemoryChannel struct {
	topics     *cache.LRU[string, *broadcast.MemoryBroadcaster[Event]]
	bufferSize int
	maxTopics  int
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// MemoryOption configures a MemoryChannel.
type MemoryOption func(*MemoryChannel)

// WithBufferSize sets how many undelivered events each subscriber holds.
func WithBufferSize(n int) MemoryOption {
	return func(c *MemoryChannel) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithMaxTopics bounds the number of live topics.
func WithMaxTopics(n int) MemoryOption {
	return func(c *MemoryChannel) {
		if n > 0 {
			c.maxTopics = n
		}
	}
}

// WithMemoryLogger sets the channel logger.
func WithMemoryLogger(l *slog.Logger) MemoryOption {
	return func(c *MemoryChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewMemoryChannel creates an in-process channel.
func NewMemoryChannel(opts ...MemoryOption) *MemoryChannel {
	c := &MemoryChannel{
		bufferSize: DefaultBufferSize,
		maxTopics:  DefaultMaxTopics,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("realtime.memory"))

	c.topics = cache.NewLRU[string, *broadcast.MemoryBroadcaster[Event]](c.maxTopics)
	c.topics.OnEvict(func(topic string, b *broadcast.MemoryBroadcaster[Event]) {
		if err := b.Close(); err != nil {
			c.logger.LogAttrs(context.Background(), slog.LevelError, "failed to close evicted topic",
				logger.Topic(topic), logger.Error(err))
		}
	})
	return c
}

// Subscribe delivers inserts on topic to h until ctx ends or the
// subscription is cancelled.
func (c *MemoryChannel) Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error) {
	if !topic.valid() {
		return nil, ErrInvalidTopic
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrChannelClosed
	}

	b, _ := c.topics.GetOrCreate(topic.String(), func() *broadcast.MemoryBroadcaster[Event] {
		return broadcast.NewMemoryBroadcaster[Event](c.bufferSize)
	})

	sctx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{sub: b.Subscribe(sctx), cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for msg := range sub.sub.Receive() {
			h.OnInsert(sctx, msg.Data)
		}
	}()

	return sub, nil
}

// Publish broadcasts ev to the subscribers of topic. Publishing to a topic
// nobody listens on is not an error.
func (c *MemoryChannel) Publish(ctx context.Context, topic Topic, ev Event) error {
	if !topic.valid() {
		return ErrInvalidTopic
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}

	b, ok := c.topics.Get(topic.String())
	if !ok {
		return nil
	}
	return b.Broadcast(ctx, broadcast.Message[Event]{Data: ev})
}

// Topics returns the number of live topics.
func (c *MemoryChannel) Topics() int {
	return c.topics.Len()
}

// Close ends every subscription. Safe to call more than once.
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.topics.Clear()
	return nil
}

type memorySubscription struct {
	sub    broadcast.Subscriber[Event]
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops delivery. Events already buffered may still reach the
// handler until the delivery goroutine notices; call Wait to be sure.
func (s *memorySubscription) Unsubscribe() error {
	s.cancel()
	return s.sub.Close()
}

// Wait blocks until the delivery goroutine has exited.
func (s *memorySubscription) Wait() {
	<-s.done
}
