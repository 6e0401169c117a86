package inbox

import (
	"time"

	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/realtime"
)

// Config holds the inbox settings read from the environment.
type Config struct {
	Language         string        `env:"INBOX_LANGUAGE" envDefault:"es"`
	MaxSessions      int           `env:"INBOX_MAX_SESSIONS" envDefault:"1000"`
	ListLimit        int           `env:"INBOX_LIST_LIMIT" envDefault:"50"`
	UpdateBuffer     int           `env:"INBOX_UPDATE_BUFFER" envDefault:"16"`
	HydrationTimeout time.Duration `env:"INBOX_HYDRATION_TIMEOUT" envDefault:"10s"`
	ToastDuration    time.Duration `env:"INBOX_TOAST_DURATION" envDefault:"5s"`
	Heartbeat        time.Duration `env:"INBOX_SSE_HEARTBEAT" envDefault:"25s"`
}

// Options turns the config into Center options.
func (c Config) Options() []Option {
	return []Option{
		WithLanguage(c.Language),
		WithUpdateBuffer(c.UpdateBuffer),
		WithStoreOptions(notifications.WithListLimit(c.ListLimit)),
		WithIngestorOptions(realtime.WithHydrationTimeout(c.HydrationTimeout)),
		WithToastDuration(c.ToastDuration),
	}
}
