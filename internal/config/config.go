package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTP struct {
		Port          string        `envconfig:"PORT" default:"8080"`
		AllowedOrigin string        `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
		ReadTimeout   time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
		WriteTimeout  time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	}

	DB struct {
		Driver          string        `envconfig:"DB_DRIVER" default:"sqlite"`
		DSN             string        `envconfig:"DATABASE_URL" default:"tokobuku.db"`
		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"30"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"8"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
		MigrateOnStart  bool          `envconfig:"DB_MIGRATE_ON_START" default:"true"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Reports struct {
		CacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"60s"`
	}

	Auth struct {
		Secret         string        `envconfig:"AUTH_SECRET"`
		AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`
		AdminUsername  string        `envconfig:"BOOTSTRAP_ADMIN_USERNAME" default:"admin"`
		AdminPassword  string        `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"json"`
		Output string `envconfig:"LOG_OUTPUT" default:"stdout"`
	}
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	cfg.Auth.AdminUsername = strings.ToLower(strings.TrimSpace(cfg.Auth.AdminUsername))
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	return &cfg, nil
}

func (c *Config) Address() string {
	return fmt.Sprintf(":%s", c.HTTP.Port)
}
