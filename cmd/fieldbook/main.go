// Command fieldbook runs the Fieldbook CRM API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/fieldbook-crm/fieldbook/internal/auth"
	"github.com/fieldbook-crm/fieldbook/internal/config"
	"github.com/fieldbook-crm/fieldbook/internal/fieldcrypt"
	"github.com/fieldbook-crm/fieldbook/internal/server"
	"github.com/fieldbook-crm/fieldbook/internal/session"
	"github.com/fieldbook-crm/fieldbook/internal/storage"
	"github.com/fieldbook-crm/fieldbook/internal/telemetry"
	"github.com/fieldbook-crm/fieldbook/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("FIELDBOOK_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("fieldbook starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// A malformed key must stop the process here, before any request can
	// observe a half-configured cipher.
	codec, err := fieldcrypt.NewCodec(cfg.EncryptionKey, cfg.HMACSecret)
	if err != nil {
		return fmt.Errorf("fieldcrypt: %w", err)
	}

	db, err := storage.New(ctx, cfg.DatabaseURL, codec, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	jwtMgr, err := auth.NewJWTManager([]byte(cfg.JWTSecret), cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// Session allow-list is optional; without Redis, sign-out only takes
	// effect at token expiry.
	var sessions *session.Store
	if cfg.RedisURL != "" {
		sessions, err = session.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("session: %w", err)
		}
		defer func() { _ = sessions.Close() }()
	} else {
		slog.Warn("REDIS_URL not set, session revocation disabled")
	}

	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		Sessions:            sessions,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
