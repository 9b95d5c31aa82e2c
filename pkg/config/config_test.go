package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODELDASH_API_BASE_URL", "")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendFile, cfg.Session.Backend)
	assert.Equal(t, 3000, cfg.Dashboard.Port)
	assert.Equal(t, "127.0.0.1", cfg.Dashboard.Host)
	assert.ErrorIs(t, cfg.Validate(), ErrBaseURLMissing)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MODELDASH_API_BASE_URL", "https://api.example.com/")
	t.Setenv("MODELDASH_API_TIMEOUT", "3s")
	t.Setenv("MODELDASH_SESSION_BACKEND", "sqlite")
	t.Setenv("MODELDASH_DASHBOARD_PORT", "8088")
	t.Setenv("MODELDASH_DASHBOARD_HOST", "0.0.0.0")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendSQLite, cfg.Session.Backend)
	assert.Equal(t, 8088, cfg.Dashboard.Port)
	assert.Equal(t, "0.0.0.0", cfg.Dashboard.Host)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.API.BaseURL = "http://localhost:8000"
		cfg.API.Timeout = time.Second
		cfg.Session.Backend = BackendMemory
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("relative base url", func(t *testing.T) {
		cfg := valid()
		cfg.API.BaseURL = "/api"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		cfg := valid()
		cfg.API.BaseURL = "ftp://host"
		assert.ErrorContains(t, cfg.Validate(), "http or https")
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := valid()
		cfg.API.Timeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := valid()
		cfg.Session.Backend = "redis"
		assert.ErrorIs(t, cfg.Validate(), ErrUnknownBackend)
	})
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{}
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
