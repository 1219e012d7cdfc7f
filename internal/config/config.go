// Package config loads server settings from the environment.
//
// An optional .env file in the working directory is read first; variables
// already set in the process environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port int `env:"PORT" envDefault:"5000"`

	StoreDriver    string        `env:"STORE_DRIVER"     envDefault:"mongo"`
	MongoURL       string        `env:"MONGODB_URL"      envDefault:"mongodb://127.0.0.1:27017"`
	MongoDatabase  string        `env:"MONGODB_DATABASE" envDefault:"event-app"`
	SQLitePath     string        `env:"SQLITE_PATH"      envDefault:"data/events.db"`
	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL"      envDefault:"168h"`
	CookieSecure   bool          `env:"COOKIE_SECURE"    envDefault:"false"`
	CookieSameSite string        `env:"COOKIE_SAMESITE"  envDefault:"lax"`

	StaticDir   string   `env:"STATIC_DIR"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	OIDCDiscoveryURL string `env:"OIDC_DISCOVERY_URL" envDefault:"https://accounts.google.com/.well-known/openid-configuration"`
	EventsTimezone   string `env:"EVENTS_TIMEZONE"    envDefault:"Local"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel     string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env (if present) and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURL == "" {
			return errors.New("config: MONGODB_URL is required for the mongo store")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverMongo, DriverSQLite)
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("config: unknown COOKIE_SAMESITE %q", c.CookieSameSite)
	}
	if strings.EqualFold(c.CookieSameSite, "none") && !c.CookieSecure {
		return errors.New("config: COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Location is the zone event dates and filter bounds are interpreted in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.EventsTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: EVENTS_TIMEZONE: %w", err)
	}
	return loc, nil
}

// SlogLevel parses LOG_LEVEL.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *slog.Logger {
	lvl, err := c.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
