package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/loandesk/backoffice/internal/jobs"
	"github.com/loandesk/backoffice/internal/leads"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LeadsWarmupJob loads page 1 with empty criteria for each scope through
// the caching fetcher, so the first browser visit after expiry is a hit.
type LeadsWarmupJob struct {
	Fetcher  leads.Fetcher
	Scopes   []leads.Scope
	PageSize int
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewLeadsWarmupJob wires dependencies for the warmup handler.
func NewLeadsWarmupJob(fetcher leads.Fetcher, scopes []leads.Scope, pageSize int, logger *slog.Logger, metrics *jobmetrics.Metrics) *LeadsWarmupJob {
	return &LeadsWarmupJob{
		Fetcher:  fetcher,
		Scopes:   scopes,
		PageSize: pageSize,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// Handle processes warmup tasks.
func (j *LeadsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Fetcher == nil {
		return errors.New("leads warmup: handler not configured")
	}
	var payload LeadsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	scopes := j.Scopes
	if len(payload.Scopes) > 0 {
		if scopes, err = ParseScopes(payload.Scopes); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}
	pageSize := payload.PageSize
	if pageSize <= 0 {
		pageSize = j.PageSize
	}

	tracker := j.metrics().Track(TaskLeadsFirstPageWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger()
	if len(scopes) == 0 {
		logger.Info("no scopes configured for warmup")
		return nil
	}

	start := time.Now()
	failed := 0
	for _, scope := range scopes {
		if werr := j.warm(ctx, scope, pageSize); werr != nil {
			failed++
			logger.Warn("warm scope", slog.String("org_id", scope.OrgID), slog.Any("error", werr))
			continue
		}
		j.metrics().AddWarmed(scope.OrgID, 1)
	}
	logger.Info("completed leads warmup", slog.Int("scopes", len(scopes)), slog.Int("failed", failed), slog.Duration("duration", time.Since(start)))
	if failed == len(scopes) {
		return fmt.Errorf("leads warmup: all %d scopes failed", failed)
	}
	return nil
}

func (j *LeadsWarmupJob) warm(ctx context.Context, scope leads.Scope, pageSize int) error {
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	_, err := j.Fetcher.Fetch(scopeCtx, leads.Request{
		Scope:  scope,
		Cursor: leads.PageCursor{Page: 1, PageSize: pageSize},
	})
	return err
}

func (j *LeadsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLeadsFirstPageWarmup))
	}
	return slog.Default().With(slog.String("job", TaskLeadsFirstPageWarmup))
}

func (j *LeadsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
