package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage and archive backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

var validate = validator.New()

// Config holds server configuration read from the environment
type Config struct {
	HTTPHost string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080" validate:"gt=0,lte=65535"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	StorageType string `env:"STORAGE_TYPE" envDefault:"memory" validate:"oneof=memory redis"`
	RedisURL    string `env:"REDIS_URL" validate:"required_if=StorageType redis"`

	ArchiveEnabled    bool   `env:"ARCHIVE_ENABLED" envDefault:"true"`
	ArchiveType       string `env:"ARCHIVE_TYPE" envDefault:"memory" validate:"oneof=memory redis sqlite"`
	ArchiveSQLitePath string `env:"ARCHIVE_SQLITE_PATH" envDefault:"data/archive.db"`
	ArchiveQueue      int    `env:"ARCHIVE_QUEUE" envDefault:"256" validate:"gt=0"`

	SuspenseSeconds         int           `env:"SUSPENSE_SECONDS" envDefault:"3" validate:"gte=0"`
	SessionFreshnessSeconds int           `env:"SESSION_FRESHNESS_SECONDS" envDefault:"86400" validate:"gt=0"`
	BypassMarker            string        `env:"BYPASS_MARKER"`
	PlatformSecret          string        `env:"PLATFORM_SECRET"`
	SessionSigningKey       string        `env:"SESSION_SIGNING_KEY" validate:"required,min=16"`
	SessionTTL              time.Duration `env:"SESSION_TTL" envDefault:"24h" validate:"gt=0"`
	StartingBalance         int64         `env:"STARTING_BALANCE" envDefault:"0" validate:"gte=0"`

	EventBuffer    int           `env:"EVENT_BUFFER" envDefault:"64" validate:"gt=0"`
	ReserveTimeout time.Duration `env:"RESERVE_TIMEOUT" envDefault:"2s" validate:"gt=0"`

	TiersFile string `env:"TIERS_FILE"`
}

// Load reads configuration from the environment. When envFile is set and
// exists, its variables are loaded first without overriding ones already set.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.ArchiveEnabled && c.ArchiveType == BackendSQLite && c.ArchiveSQLitePath == "" {
		return errors.New("invalid config: ARCHIVE_SQLITE_PATH required when ARCHIVE_TYPE=sqlite")
	}
	return nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// Suspense returns the delay between a room arming and its draw
func (c *Config) Suspense() time.Duration {
	return time.Duration(c.SuspenseSeconds) * time.Second
}

// SessionFreshness returns the maximum accepted identity envelope age
func (c *Config) SessionFreshness() time.Duration {
	return time.Duration(c.SessionFreshnessSeconds) * time.Second
}

// SlogLevel maps LOG_LEVEL onto a slog level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
