package ledger

import (
	"log/slog"
	"time"
)

const (
	DefaultNamespace = "notifications:"
	DefaultCapacity  = 100
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithNamespace sets the key prefix. Use a per-user namespace when several
// users share one Storage.
func WithNamespace(ns string) Option {
	return func(l *Ledger) {
		l.ns = ns
	}
}

// WithCapacity bounds the seen set. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}
