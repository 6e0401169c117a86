package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// KafkaConfig configures a KafkaChannel.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"notifications.inserted"`

	// GroupPrefix is joined with a random suffix so every process reads
	// the full stream.
	GroupPrefix string `env:"KAFKA_GROUP_PREFIX" envDefault:"notifsync"`
}

// KafkaChannel consumes insert events from a Kafka topic keyed by owner
// id. Each process joins its own consumer group starting at the newest
// offset, so it sees every event produced after it started and routes them
// to local subscribers. A fetch failure is followed by backoff and an
// OnReconnect signal, since events may have been skipped.
type KafkaChannel struct {
	cfg     KafkaConfig
	backoff Backoff
	logger  *slog.Logger
	fanout  *fanout
	writer  *kafka.Writer

	mu     sync.Mutex
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// KafkaOption configures a KafkaChannel.
type KafkaOption func(*KafkaChannel)

// WithKafkaBackoff sets the reader retry policy.
func WithKafkaBackoff(b Backoff) KafkaOption {
	return func(c *KafkaChannel) {
		c.backoff = b
	}
}

// WithKafkaLogger sets the channel logger.
func WithKafkaLogger(l *slog.Logger) KafkaOption {
	return func(c *KafkaChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewKafkaChannel creates a channel for cfg. The reader starts on first Subscribe.
func NewKafkaChannel(cfg KafkaConfig, opts ...KafkaOption) (*KafkaChannel, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, ErrInvalidKafkaConfig
	}

	c := &KafkaChannel{
		cfg:     cfg,
		backoff: DefaultBackoff,
		logger:  slog.Default(),
		fanout:  newFanout(),
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("realtime.kafka"), logger.Topic(cfg.Topic))
	return c, nil
}

// Subscribe starts the shared reader on first use.
func (c *KafkaChannel) Subscribe(ctx context.Context, topic Topic, h Handler) (Subscription, error) {
	if !topic.valid() {
		return nil, ErrInvalidTopic
	}
	if err := c.start(); err != nil {
		return nil, err
	}
	return c.fanout.add(ctx, topic, h), nil
}

func (c *KafkaChannel) start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	if c.reader != nil {
		return nil
	}

	group := c.cfg.GroupPrefix + "-" + uuid.NewString()
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		GroupID:     group,
		Topic:       c.cfg.Topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel, c.done = cancel, make(chan struct{})
	go c.run(ctx, c.reader)

	c.logger.LogAttrs(ctx, slog.LevelInfo, "kafka reader started", slog.String("group", group))
	return nil
}

func (c *KafkaChannel) run(ctx context.Context, r *kafka.Reader) {
	defer close(c.done)

	failures := 0
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.LogAttrs(ctx, slog.LevelWarn, "kafka fetch failed", logger.Error(err))
			if !sleep(ctx, c.backoff.Delay(failures)) {
				return
			}
			failures++
			continue
		}

		if failures > 0 {
			failures = 0
			c.fanout.reconnected()
		}

		ev, err := decodeEvent(m.Value)
		if err != nil || ev.UserID != string(m.Key) {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "skipping kafka message",
				slog.Int64("offset", m.Offset), logger.Error(err))
			continue
		}
		c.fanout.dispatch(ev)
	}
}

// Publish writes ev keyed by its owner, so one user's events stay ordered
// within a partition.
func (c *KafkaChannel) Publish(ctx context.Context, topic Topic, ev Event) error {
	if !topic.valid() {
		return ErrInvalidTopic
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.UserID), Value: payload})
}

// Close stops the reader and the writer and ends every subscription.
func (c *KafkaChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	reader, cancel, done := c.reader, c.cancel, c.done
	c.mu.Unlock()

	var errs []error
	if cancel != nil {
		cancel()
		<-done
		errs = append(errs, reader.Close())
	}
	errs = append(errs, c.writer.Close())
	c.fanout.closeAll()
	return errors.Join(errs...)
}
