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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/decoaromas/decoaromas-admin/internal/app"
	"github.com/decoaromas/decoaromas-admin/internal/backend"
	"github.com/decoaromas/decoaromas-admin/internal/live"
	"github.com/decoaromas/decoaromas-admin/internal/observability"
	"github.com/decoaromas/decoaromas-admin/internal/platform/cache"
	"github.com/decoaromas/decoaromas-admin/internal/reports"
	"github.com/decoaromas/decoaromas-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "warmup" {
		if err := enqueueWarmup(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("enqueue report warmup", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	metrics := observability.NewMetrics()
	client := backend.NewClient(backend.Config{
		BaseURL:    cfg.BackendURL,
		Token:      cfg.BackendToken,
		Timeout:    cfg.BackendTimeout,
		RetryCount: cfg.BackendRetryCount,
	}, logger)

	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("report cache disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)

	liveHandler := live.NewHandler(logger, client, reportCache, metrics, live.Config{
		AllowedOrigins:    cfg.LiveAllowedOrigins,
		Debounce:          cfg.ValidationDebounce,
		ReportConcurrency: cfg.ReportConcurrency,
	})
	if err := reportCache.ListenForInvalidation(ctx, func(version int64) {
		logger.Debug("report cache bumped", slog.Int64("version", version))
		liveHandler.RefreshReports()
	}); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		LiveHandler: liveHandler,
		JobHandler:  jobHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:        cfg.AppAddr,
		Handler:     router,
		ReadTimeout: cfg.AppReadTimeout,
		// Websocket sessions outlive any write timeout; plain requests are bounded by app.RequestTimeout.
		IdleTimeout: 2 * time.Minute,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func enqueueWarmup(ctx context.Context, cfg *app.Config, views []string) error {
	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = client.Close() }()
	info, err := client.EnqueueReportWarmup(ctx, jobs.ReportWarmupPayload{Views: views})
	if err != nil {
		return err
	}
	fmt.Printf("enqueued %s (%s)\n", info.ID, info.Queue)
	return nil
}
