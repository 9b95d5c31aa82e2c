package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session backends understood by session.Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var (
	// ErrBaseURLMissing is returned when no API base URL has been configured
	ErrBaseURLMissing = errors.New("api base url is not configured (set MODELDASH_API_BASE_URL)")
	// ErrUnknownBackend is returned for an unsupported session.backend value
	ErrUnknownBackend = errors.New("unknown session backend")
)

type Config struct {
	API struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`

	Session struct {
		Backend string `mapstructure:"backend"`
		File    string `mapstructure:"file"`
	} `mapstructure:"session"`

	Database struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		Username        string        `mapstructure:"username"`
		Password        string        `mapstructure:"password"`
		Database        string        `mapstructure:"database"`
		SSLMode         string        `mapstructure:"sslmode"`
		SQLitePath      string        `mapstructure:"sqlite_path"`
		MaxConnections  int           `mapstructure:"max_connections"`
		MaxIdleConns    int           `mapstructure:"max_idle_connections"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		Retry           struct {
			MaxAttempts     int           `mapstructure:"max_attempts"`
			InitialDelay    time.Duration `mapstructure:"initial_delay"`
			MaxDelay        time.Duration `mapstructure:"max_delay"`
			BackoffMultiple float64       `mapstructure:"backoff_multiple"`
		} `mapstructure:"retry"`
	} `mapstructure:"database"`

	Dashboard struct {
		Host           string   `mapstructure:"host"`
		Port           int      `mapstructure:"port"`
		TLSCert        string   `mapstructure:"tls_cert"`
		TLSKey         string   `mapstructure:"tls_key"`
		MetricsWorkers int      `mapstructure:"metrics_workers"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"dashboard"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// DefaultDir returns the per-user directory holding persisted client state.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".modeldash"
	}
	return filepath.Join(dir, "modeldash")
}

func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads configuration into v. Tests pass a fresh viper instance.
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.file", filepath.Join(DefaultDir(), "session.yaml"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "modeldash")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", filepath.Join(DefaultDir(), "session.db"))
	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.max_idle_connections", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.retry.max_attempts", 5)
	v.SetDefault("database.retry.initial_delay", "1s")
	v.SetDefault("database.retry.max_delay", "10s")
	v.SetDefault("database.retry.backoff_multiple", 1.5)
	v.SetDefault("dashboard.host", "127.0.0.1")
	v.SetDefault("dashboard.port", 3000)
	v.SetDefault("dashboard.metrics_workers", 4)
	v.SetDefault("dashboard.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("MODELDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(DefaultDir())
	v.AddConfigPath("/etc/modeldash/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return ErrBaseURLMissing
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid api base url %q: want an absolute http or https url", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendFile, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Session.Backend)
	}
	return nil
}
