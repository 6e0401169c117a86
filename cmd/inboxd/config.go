package main

import (
	"time"

	"github.com/dmitrymomot/notifsync/pkg/httpserver"
	"github.com/dmitrymomot/notifsync/pkg/inbox"
)

// Backends.
const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendKafka    = "kafka"
	backendSQLite   = "sqlite"
)

type appConfig struct {
	Name string `env:"APP_NAME" envDefault:"inboxd"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	// Storage holds the notification rows: memory or postgres.
	Storage string `env:"NOTIFICATIONS_STORAGE" envDefault:"postgres"`
	// Realtime carries insert events: memory, postgres, redis or kafka.
	Realtime string `env:"REALTIME_DRIVER" envDefault:"postgres"`
	// Ledger keeps per-user read state: memory, sqlite or redis.
	Ledger     string `env:"LEDGER_BACKEND" envDefault:"sqlite"`
	LedgerPath string `env:"LEDGER_SQLITE_PATH" envDefault:"ledger.db"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTLeeway time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`

	// ProducerAPI mounts POST /internal/notifications for trusted
	// producers and local testing.
	ProducerAPI bool `env:"PRODUCER_API_ENABLED" envDefault:"false"`

	HealthTimeout time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"2s"`

	HTTP  httpserver.Config
	Inbox inbox.Config
}

func (c appConfig) needsPostgres() bool {
	return c.Storage == backendPostgres || c.Realtime == backendPostgres
}

func (c appConfig) needsRedis() bool {
	return c.Ledger == backendRedis || c.Realtime == backendRedis
}
