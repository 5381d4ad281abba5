package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/loandesk/backoffice/internal/app"
	"github.com/loandesk/backoffice/internal/leads"
	"github.com/loandesk/backoffice/internal/observability"
	"github.com/loandesk/backoffice/internal/platform/cache"
	"github.com/loandesk/backoffice/internal/shared"
	"github.com/loandesk/backoffice/internal/view"
	"github.com/loandesk/backoffice/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	listing := leads.NewClient(cfg.ListingURL, cfg.ListingTimeout, logger)
	cachedListing := leads.NewCachedFetcher(listing, redisClient, cfg.LeadsCacheTTL, logger)
	workspaces := leads.NewWorkspaces(cfg.LeadsWorkspaceTTL, newViewBuilder(cfg, cachedListing, logger, metrics))
	leadsHandler := leads.NewHandler(logger, workspaces, cachedListing, templates, csrfManager, leads.HandlerConfig{
		PageSizes:        cfg.LeadsPageSizes,
		AmountLocale:     cfg.AmountLocale,
		StatusPathPrefix: cfg.StatusPathPrefix,
	})

	redisOpts := cache.AsynqOpt(cfg.Redis())
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := asynq.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		LeadsHandler:   leadsHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func newViewBuilder(cfg *app.Config, fetcher leads.Fetcher, logger *slog.Logger, metrics *observability.Metrics) func(leads.Scope) *leads.ResultView {
	baseline := leads.DefaultBaseline
	if len(cfg.LeadsBaselineSegments) > 0 {
		baseline.Segments = cfg.LeadsBaselineSegments
	}
	if len(cfg.LeadsBaselineCategories) > 0 {
		baseline.Categories = cfg.LeadsBaselineCategories
	}
	return func(scope leads.Scope) *leads.ResultView {
		return leads.NewResultView(fetcher, scope, leads.ViewConfig{
			PageSize: cfg.LeadsDefaultPageSize,
			Baseline: baseline,
			Logger:   logger,
			Observer: metrics,
		})
	}
}

