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

	"trashtalk/internal/app"
	"trashtalk/internal/config"
	"trashtalk/internal/content"
	"trashtalk/internal/ratelimit"
	"trashtalk/internal/snapshot"
	"trashtalk/internal/token"
	httpTransport "trashtalk/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting trashtalk server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"snapshots", cfg.Snapshot.Backend,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	catalog, err := content.LoadCatalog(cfg.Content.PacksFile)
	if err != nil {
		return err
	}
	schedule, err := content.LoadSchedule(cfg.Content.RoundsFile)
	if err != nil {
		return err
	}
	logger.Info("content loaded", "packs", len(catalog.Order), "rounds", schedule.TotalRounds)

	tokens, err := token.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	if cfg.Auth.TokenSecret == "" && cfg.Snapshot.Backend != "none" {
		logger.Warn("SESSION_SECRET not set, restored seats are matched by token alone after a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, err := openSnapshots(ctx, cfg.Snapshot)
	if err != nil {
		return err
	}

	store := app.NewStore(app.StoreConfig{
		Expiration:       cfg.Store.Expiration,
		SweepInterval:    cfg.Store.SweepInterval,
		GracePeriod:      cfg.Game.ReconnectGracePeriod,
		SnapshotInterval: cfg.Snapshot.Interval,
	}, snapshots, logger)

	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max)
	go limiter.Run(ctx, cfg.RateLimit.CleanupInterval)

	gateway := app.NewGateway(store, limiter, tokens, app.NewCodeGenerator(cfg.Game.RoomCodeLength, cfg.Game.RoomCodeWords), app.GatewayConfig{
		Rules:    cfg.Game.Rules(),
		Schedule: schedule,
		Catalog:  catalog,
	}, logger)

	// A broken snapshot should not keep the server down
	if _, err := store.Restore(ctx); err != nil {
		logger.Error("snapshot restore failed", "error", err)
	}
	store.Start()

	server := httpTransport.NewServer(cfg, store, gateway, catalog, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Error("server forced to shutdown", "error", serr)
	}
	if cerr := store.Close(shutdownCtx); cerr != nil {
		logger.Error("final snapshot failed", "error", cerr)
	}
	return err
}

// openSnapshots returns nil when persistence is disabled
func openSnapshots(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case "file":
		return snapshot.NewFileStore(cfg.Path), nil
	case "redis":
		return snapshot.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
	case "postgres":
		return snapshot.NewPostgresStore(ctx, cfg.PostgresURL)
	default:
		return nil, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
