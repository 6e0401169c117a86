package redis

import "time"

// Config holds the Redis connection settings.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // ConnectionURL is the URL of the database. It should be in the format "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`                      // RetryAttempts is the number of retry attempts to connect to the database.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`                     // RetryInterval is the interval between retry attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                   // ConnectTimeout bounds the whole Connect call.
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"notifsync:"`                 // KeyPrefix is prepended to every Storage key.
	OpTimeout      time.Duration `env:"REDIS_OP_TIMEOUT" envDefault:"2s"`                         // OpTimeout bounds each Storage call.
}
