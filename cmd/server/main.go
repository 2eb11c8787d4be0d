package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/rezkam/focusflow/internal/application/auth"
	"github.com/rezkam/focusflow/internal/application/reset"
	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/config"
	httpserver "github.com/rezkam/focusflow/internal/infrastructure/http"
	"github.com/rezkam/focusflow/internal/infrastructure/generator"
	"github.com/rezkam/focusflow/internal/infrastructure/http/handler"
	"github.com/rezkam/focusflow/internal/infrastructure/observability"
	"github.com/rezkam/focusflow/internal/infrastructure/persistence/memory"
	"github.com/rezkam/focusflow/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/focusflow/internal/ptr"
	"github.com/rezkam/focusflow/internal/timeutil"
)

const defaultShutdownTimeout = 10 * time.Second

// repository is everything the services need from a store.
type repository interface {
	auth.Repository
	timer.Repository
	schedule.Repository
}

func main() {
	if err := run(); err != nil {
		// slog may not be configured yet if config failed
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Reset.Validate(); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	// Root context for normal operation, cancelled on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	telemetry, err := observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
		Level:       cfg.Observability.Level(),
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	slog.SetDefault(telemetry.Logger)

	slog.InfoContext(ctx, "starting focusflow server", "otel", cfg.Observability.OTelEnabled)

	store, closer, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}

	timers := timer.NewService(store, nil, timer.Config{
		Meter: otel.Meter("github.com/rezkam/focusflow/timer"),
	})

	// A nil interface, not a nil *Gemini, so generation reports 502.
	var gen schedule.Generator
	if cfg.Generator.APIKey != "" {
		gen = generator.New(generator.Config{
			APIKey:  cfg.Generator.APIKey,
			Model:   cfg.Generator.Model,
			BaseURL: cfg.Generator.BaseURL,
			Timeout: cfg.Generator.Timeout,
		})
		slog.InfoContext(ctx, "schedule generator enabled")
	}
	schedules := schedule.NewService(store, timers, gen, schedule.Config{})

	authenticator := auth.NewAuthenticator(ctx, store, auth.Config{
		OperationTimeout: cfg.Auth.OperationTimeout,
		UsageQueueSize:   cfg.Auth.UsageQueueSize,
	})

	h := handler.NewHandler(schedules, timers, handler.Config{Heartbeat: cfg.HTTP.SSEHeartbeat})
	server := httpserver.NewAPIServer(handler.NewRouter(h), authenticator, httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		Tracing:           cfg.Observability.OTelEnabled,
	})

	workerCtx, stopWorkers := context.WithCancel(ctx)
	workersDone := make(chan struct{})
	if cfg.Reset.Disabled {
		close(workersDone)
	} else {
		worker := reset.NewWorker(schedules, reset.Config{At: ptr.To(resetTime(cfg.Reset))})
		go func() {
			defer close(workersDone)
			_ = worker.Run(workerCtx)
		}()
	}

	cleanup := newCleanup(authenticator, closer, telemetry)

	errResult := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "HTTP server listening", "address", server.Addr())
		if err := server.Start(); err != nil {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")
	case runErr = <-errResult:
	}

	// The root context is already cancelled; shutdown gets a fresh window.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "failed to shutdown HTTP server", "error", err)
	}
	stopWorkers()
	<-workersDone
	cleanup(shutdownCtx)

	return runErr
}

// openStore selects PostgreSQL when a DSN is configured and the in-memory
// store otherwise. The returned closer is nil for the in-memory store.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository, io.Closer, error) {
	if cfg.InMemory() {
		slog.WarnContext(ctx, "FOCUS_DB_DSN not set, using in-memory store; data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	store, err := postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	slog.InfoContext(ctx, "storage initialized", "url", maskPassword(cfg.DSN))
	return store, store, nil
}

func resetTime(cfg config.ResetConfig) timeutil.TimeOfDay {
	if cfg.At == "" {
		return *reset.DefaultConfig().At
	}
	// Validated at startup.
	return timeutil.MustParseTime(cfg.At)
}

// maskPassword masks the password in a connection string for logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		// If parsing fails, fall back to full redaction to be safe
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
