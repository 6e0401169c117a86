package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifsync/pkg/config"
	"github.com/dmitrymomot/notifsync/pkg/httpserver"
	"github.com/dmitrymomot/notifsync/pkg/inbox"
	"github.com/dmitrymomot/notifsync/pkg/ledger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/pg"
	"github.com/dmitrymomot/notifsync/pkg/realtime"
	"github.com/dmitrymomot/notifsync/pkg/redis"
)

var errUnknownBackend = errors.New("unknown backend")

// app holds the process-wide dependencies shared by every user session.
type app struct {
	log        *slog.Logger
	gateway    *notifications.Gateway
	dispatcher *notifications.Dispatcher
	channel    realtime.Channel
	ledger     ledger.Storage
	metrics    *realtime.Metrics
	checks     map[string]httpserver.Check
	closers    []func(context.Context) error
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases dependencies in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) factory(cfg appConfig) inbox.Factory {
	opts := append(cfg.Inbox.Options(), inbox.WithIngestorOptions(realtime.WithMetrics(a.metrics)))
	return inbox.Deps{
		Gateway:       a.gateway,
		Channel:       a.channel,
		LedgerStorage: a.ledger,
		Logger:        a.log,
		Options:       opts,
	}.Factory()
}

// wire connects the configured backends. On error the returned app still
// owns whatever was opened and must be closed.
func wire(ctx context.Context, cfg appConfig, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{
		log:     log,
		metrics: realtime.NewMetrics(reg),
		checks:  map[string]httpserver.Check{},
	}

	var pool *pgxpool.Pool
	if cfg.needsPostgres() {
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return a, fmt.Errorf("postgres config: %w", err)
		}
		p, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return a, err
		}
		pool = p
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		a.checks["postgres"] = pg.Healthcheck(pool, cfg.HealthTimeout)

		if err := pg.Migrate(ctx, pool, notifications.Migrations, notifications.MigrationsDir, pgCfg, log); err != nil {
			return a, err
		}
	}

	var rdb *goredis.Client
	var redisCfg redis.Config
	if cfg.needsRedis() {
		if err := config.Load(&redisCfg); err != nil {
			return a, fmt.Errorf("redis config: %w", err)
		}
		c, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return a, err
		}
		rdb = c
		a.onClose(func(context.Context) error { return rdb.Close() })
		a.checks["redis"] = redis.Healthcheck(rdb)
	}

	var (
		repo   notifications.Repository
		writer notifications.Writer
	)
	switch cfg.Storage {
	case backendMemory:
		m := notifications.NewMemoryRepository()
		repo, writer = m, m
	case backendPostgres:
		p := notifications.NewPostgresRepository(pool)
		repo, writer = p, p
	default:
		return a, fmt.Errorf("%w: storage %q", errUnknownBackend, cfg.Storage)
	}
	a.gateway = notifications.NewGateway(repo,
		notifications.WithGatewayLogger(log),
		notifications.WithDefaultLimit(cfg.Inbox.ListLimit),
	)

	var publisher realtime.Publisher
	switch cfg.Realtime {
	case backendMemory:
		ch := realtime.NewMemoryChannel(realtime.WithMemoryLogger(log))
		a.onClose(func(context.Context) error { return ch.Close() })
		a.channel, publisher = ch, ch
	case backendPostgres:
		ch := realtime.NewPostgresChannel(pool, realtime.WithPostgresLogger(log))
		a.onClose(func(context.Context) error { return ch.Close() })
		a.channel, publisher = ch, ch
	case backendRedis:
		ch := realtime.NewRedisChannel(rdb, realtime.WithRedisLogger(log))
		a.channel, publisher = ch, ch
	case backendKafka:
		var kafkaCfg realtime.KafkaConfig
		if err := config.Load(&kafkaCfg); err != nil {
			return a, fmt.Errorf("kafka config: %w", err)
		}
		ch, err := realtime.NewKafkaChannel(kafkaCfg, realtime.WithKafkaLogger(log))
		if err != nil {
			return a, err
		}
		a.onClose(func(context.Context) error { return ch.Close() })
		a.channel, publisher = ch, ch
	default:
		return a, fmt.Errorf("%w: realtime driver %q", errUnknownBackend, cfg.Realtime)
	}

	// The insert trigger already announces rows written to Postgres on the
	// channel the Postgres driver listens to.
	var deliverer notifications.Deliverer = realtime.NewDeliverer(publisher)
	if cfg.Storage == backendPostgres && cfg.Realtime == backendPostgres {
		deliverer = notifications.NoOpDeliverer{}
	}
	a.dispatcher = notifications.NewDispatcher(writer, deliverer, notifications.WithDispatcherLogger(log))

	switch cfg.Ledger {
	case backendMemory:
		a.ledger = ledger.NewMemoryStorage()
	case backendSQLite:
		s, err := ledger.NewSQLiteStorage(cfg.LedgerPath)
		if err != nil {
			return a, fmt.Errorf("ledger: %w", err)
		}
		a.onClose(func(context.Context) error { return s.Close() })
		a.ledger = s
	case backendRedis:
		a.ledger = redis.NewStorage(rdb, redisCfg)
	default:
		return a, fmt.Errorf("%w: ledger %q", errUnknownBackend, cfg.Ledger)
	}

	return a, nil
}
