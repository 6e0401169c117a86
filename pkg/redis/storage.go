package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a key/value wrapper over a go-redis client. It satisfies
// ledger.Storage, so device read state can live in Redis when sessions
// are served by several processes.
type Storage struct {
	db      redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewStorage wraps client. Every key is prefixed with cfg.KeyPrefix and
// every call is bounded by cfg.OpTimeout.
func NewStorage(client redis.UniversalClient, cfg Config) *Storage {
	return &Storage{
		db:      client,
		prefix:  cfg.KeyPrefix,
		timeout: cfg.OpTimeout,
	}
}

func (s *Storage) ctx() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get returns nil for empty keys and missing values.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := s.ctx()
	defer cancel()

	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val under key. Zero exp means no expiration.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.db.Set(ctx, s.prefix+key, val, exp).Err()
}

// Delete removes key. Empty keys are ignored.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return s.db.Del(ctx, s.prefix+key).Err()
}

// Conn returns the underlying client.
func (s *Storage) Conn() redis.UniversalClient {
	return s.db
}
