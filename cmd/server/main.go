// Package main is the entry point for the event board API server.
//
// main only reads configuration, builds the long-lived dependencies and
// hands them to internal/server. Everything else lives in internal/.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/config"
	"github.com/sakif/event-board/internal/server"
	"github.com/sakif/event-board/internal/store"
	"github.com/sakif/event-board/internal/telemetry"
)

func main() {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// === 3. TRACING ===
	// Off unless OTEL_EXPORTER_OTLP_ENDPOINT is set.
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// === 4. STORE ===
	// Closed by server.Start on shutdown.
	db, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// === 5. AUTH ===
	codec, err := auth.NewSessionCodec(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return err
	}
	sameSite, _ := auth.ParseSameSite(cfg.CookieSameSite)
	verifier := auth.NewGoogleVerifier(cfg.OIDCDiscoveryURL, &http.Client{Timeout: 10 * time.Second})

	loc, err := cfg.Location()
	if err != nil {
		db.Close()
		return err
	}

	// === 6. START ===
	srv := server.New(server.Config{
		Port:        cfg.Port,
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
		Cookies: auth.CookieConfig{
			Secure:   cfg.CookieSecure,
			SameSite: sameSite,
			MaxAge:   codec.TTL(),
		},
		Location: loc,
	}, server.Deps{
		Store:     db,
		Codec:     codec,
		Verifier:  verifier,
		Passwords: auth.NewPasswordService(),
	}, logger)

	// Blocks until SIGINT/SIGTERM.
	return srv.Start()
}
