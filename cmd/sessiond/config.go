package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/sessionkv/pkg/cookie"
	"github.com/dmitrymomot/sessionkv/pkg/db"
	"github.com/dmitrymomot/sessionkv/pkg/logger"
	"github.com/dmitrymomot/sessionkv/pkg/redis"
	"github.com/dmitrymomot/sessionkv/pkg/session"
)

// Supported KV_BACKEND values.
const (
	backendMemory   = "memory"
	backendRedis    = "redis"
	backendPostgres = "postgres"
)

// Config is read from the environment.
type Config struct {
	Addr    string `env:"HTTP_ADDR" envDefault:":8080"`
	Backend string `env:"KV_BACKEND" envDefault:"memory"`

	KeyPrefix        string        `env:"SESSION_KEY_PREFIX" envDefault:"sessionstorage:"`
	// Zero disables rolling writes: Touch becomes a no-op.
	RefreshThreshold time.Duration `env:"SESSION_REFRESH_THRESHOLD" envDefault:"10s"`
	MaxAge           time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	CookieName       string        `env:"SESSION_COOKIE_NAME" envDefault:"__sid"`
	Rolling          bool          `env:"SESSION_ROLLING" envDefault:"true"`
	CookieSecure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	// Comma-separated; the first signs, all verify. Empty leaves ids unsigned.
	Secrets          []string      `env:"SESSION_SECRETS" envSeparator:","`

	SweepEnabled     bool          `env:"SESSION_SWEEP_ENABLED" envDefault:"true"`
	SweepSchedule    string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@every 15m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Redis redis.Config
	DB    db.Config
	Log   logger.Config
}

func loadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.Backend {
	case backendMemory, backendRedis, backendPostgres:
	default:
		return cfg, fmt.Errorf("parse config: unknown KV_BACKEND %q", cfg.Backend)
	}
	if cfg.Backend == backendPostgres && cfg.DB.ConnectionString == "" {
		return cfg, fmt.Errorf("parse config: DATABASE_CONN_URL is required for the postgres backend")
	}

	return cfg, nil
}

func (c Config) storeOptions() []session.Option {
	return []session.Option{
		session.WithRefreshThreshold(c.RefreshThreshold),
		session.WithKeyPrefix(c.KeyPrefix),
	}
}

func (c Config) managerOptions() ([]session.ManagerOption, error) {
	opts := []session.ManagerOption{
		session.WithCookieName(c.CookieName),
		session.WithMaxAge(c.MaxAge),
		session.WithRolling(c.Rolling),
		session.WithSecure(c.CookieSecure),
	}
	if len(c.Secrets) > 0 {
		signer, err := cookie.NewSigner(c.Secrets...)
		if err != nil {
			return nil, fmt.Errorf("SESSION_SECRETS: %w", err)
		}
		opts = append(opts, session.WithSigner(signer))
	}
	return opts, nil
}
