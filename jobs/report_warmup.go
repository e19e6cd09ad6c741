package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/decoaromas/decoaromas-admin/internal/jobs"
	"github.com/decoaromas/decoaromas-admin/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportWarmupJob loads every report slice of the selected views with default filters,
// so the first screen of the day is served from the cache.
type ReportWarmupJob struct {
	Source  reports.Source
	Cache   *reports.Cache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(src reports.Source, cache *reports.Cache, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Source:  src,
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 30 * time.Second,
		clock:   time.Now,
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("report warmup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	views, err := selectViews(payload.Views)
	if err != nil {
		return fmt.Errorf("report warmup: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	logger.Info("starting report warmup", slog.Int("views", len(views)))

	total, failed := 0, 0
	for _, view := range views {
		ok, bad, err := j.warmView(ctx, view)
		if err != nil {
			resultErr = err
			logger.Error("warm report view", slog.String("view", string(view)), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddWarmed(string(view), ok, bad)
		total += ok + bad
		failed += bad
	}
	if failed > 0 {
		resultErr = fmt.Errorf("report warmup: %d of %d slices failed", failed, total)
		logger.Warn("report warmup incomplete", slog.Int("slices", total), slog.Int("failed", failed))
		return resultErr
	}
	logger.Info("completed report warmup", slog.Int("slices", total), slog.Duration("duration", time.Since(start)))
	return resultErr
}

// warmView runs the catalog of one view through the cache, the way an open screen would.
func (j *ReportWarmupJob) warmView(ctx context.Context, view reports.View) (ok, failed int, err error) {
	viewCtx, cancel := context.WithTimeout(ctx, j.timeout())
	defer cancel()

	o := reports.New(reports.CachedAll(j.Cache, reports.Catalog(j.Source)),
		reports.WithLogger(j.logger()),
		reports.WithClock(j.now),
		reports.WithMaxConcurrency(4),
	)
	defer o.Close()
	if err := o.SetView(view); err != nil {
		return 0, 0, err
	}

	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()
	select {
	case <-viewCtx.Done():
		return 0, 0, viewCtx.Err()
	case <-done:
	}
	for _, s := range o.Snapshot() {
		if s.Error != "" {
			failed++
			continue
		}
		ok++
	}
	return ok, failed, nil
}

func selectViews(names []string) ([]reports.View, error) {
	if len(names) == 0 {
		return reports.Views, nil
	}
	out := make([]reports.View, 0, len(names))
	for _, name := range names {
		v := reports.View(name)
		known := false
		for _, candidate := range reports.Views {
			if candidate == v {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown view %q", name)
		}
		out = append(out, v)
	}
	return out, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return 30 * time.Second
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
