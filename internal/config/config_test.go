package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:           5000,
		StoreDriver:    DriverSQLite,
		SQLitePath:     ":memory:",
		SessionSecret:  "0123456789abcdef",
		SessionTTL:     time.Hour,
		CookieSameSite: "lax",
		EventsTimezone: "UTC",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

func TestParse_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SESSION_SECRET", "a-long-enough-secret")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "event-app", cfg.MongoDatabase)
	assert.Equal(t, "lax", cfg.CookieSameSite)
}

func TestParse_BadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	_, err := Parse()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.SessionSecret = "short" }},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }},
		{"mongo without url", func(c *Config) { c.StoreDriver = DriverMongo; c.MongoURL = "" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"bad samesite", func(c *Config) { c.CookieSameSite = "sometimes" }},
		{"samesite none needs secure", func(c *Config) { c.CookieSameSite = "none" }},
		{"bad timezone", func(c *Config) { c.EventsTimezone = "Mars/Olympus" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "debug"

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}
