package httpserver

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*config)

// WithAddr sets the listen address. ":0" picks a free port; see Server.Addr.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty address")
	}
	return func(c *config) { c.addr = addr }
}

// WithReadTimeout sets the maximum duration for reading a request.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) { c.readTimeout = max(d, 0) }
}

// WithWriteTimeout bounds response writes. Leave it zero when serving event
// streams, which stay open far longer than any sane write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) { c.writeTimeout = max(d, 0) }
}

// WithIdleTimeout sets how long keep-alive connections may stay idle.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) { c.idleTimeout = max(d, 0) }
}

// WithShutdownTimeout bounds graceful shutdown. Panics if d is not positive.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: shutdown timeout must be positive")
	}
	return func(c *config) { c.shutdownTimeout = d }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnShutdown registers fn to run as soon as shutdown begins, while
// in-flight requests drain. Use it to end long-lived streams.
func WithOnShutdown(fn func()) Option {
	if fn == nil {
		panic("httpserver: nil shutdown callback")
	}
	return func(c *config) { c.onShutdown = append(c.onShutdown, fn) }
}

// WithCloser registers a dependency to close after the server stopped
// serving. Closers run in registration order; failures are logged and
// returned joined from Shutdown.
func WithCloser(name string, fn func(context.Context) error) Option {
	if fn == nil {
		panic("httpserver: nil closer " + name)
	}
	return func(c *config) { c.closers = append(c.closers, closer{name: name, fn: fn}) }
}
