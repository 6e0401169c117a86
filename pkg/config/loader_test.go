package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/pkg/config"
)

type sampleConfig struct {
	Limit    int           `env:"CFG_TEST_LIMIT" envDefault:"50"`
	Language string        `env:"CFG_TEST_LANGUAGE" envDefault:"es"`
	Timeout  time.Duration `env:"CFG_TEST_TIMEOUT" envDefault:"5s"`
}

type requiredConfig struct {
	Secret string `env:"CFG_TEST_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config.Reset()

		var cfg sampleConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 50, cfg.Limit)
		assert.Equal(t, "es", cfg.Language)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})

	t.Run("environment overrides", func(t *testing.T) {
		config.Reset()
		t.Setenv("CFG_TEST_LIMIT", "20")
		t.Setenv("CFG_TEST_LANGUAGE", "en")

		var cfg sampleConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 20, cfg.Limit)
		assert.Equal(t, "en", cfg.Language)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Setenv("CFG_TEST_LIMIT", "10")

		var first sampleConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CFG_TEST_LIMIT", "99")
		var second sampleConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, 10, second.Limit)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.Reset()

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *sampleConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("must load panics", func(t *testing.T) {
		config.Reset()
		var cfg requiredConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}
