package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/loandesk/backoffice/internal/app"
	jobmetrics "github.com/loandesk/backoffice/internal/jobs"
	"github.com/loandesk/backoffice/internal/leads"
	"github.com/loandesk/backoffice/internal/observability"
	"github.com/loandesk/backoffice/internal/platform/cache"
	"github.com/loandesk/backoffice/internal/platform/httpx"
	"github.com/loandesk/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	scopes, err := jobs.ParseScopes(cfg.WarmupScopes)
	if err != nil {
		logger.Error("parse warmup scopes", slog.Any("error", err))
		os.Exit(1)
	}

	listing := leads.NewClient(cfg.ListingURL, cfg.ListingTimeout, logger)
	cachedListing := leads.NewCachedFetcher(listing, redisClient, cfg.LeadsCacheTTL, logger)
	metrics := observability.NewMetrics()
	warmupJob := jobs.NewLeadsWarmupJob(cachedListing, scopes, cfg.LeadsDefaultPageSize, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	warmupTask, err := jobs.NewLeadsWarmupTask(jobs.LeadsWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.WarmupCron != "" && len(scopes) > 0 {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Unique(5 * time.Minute)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cache.AsynqOpt(cfg.Redis()),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLeadsFirstPageWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	opsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           newOpsRouter(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting worker metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("worker metrics shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("starting worker", slog.Int("warmup_scopes", len(scopes)))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// newOpsRouter serves the worker's health check and its Prometheus registry.
func newOpsRouter(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}
