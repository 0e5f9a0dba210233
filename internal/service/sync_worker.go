package service

import (
	"context"
	"errors"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
)

// DefaultSyncRetryIntervals is the backoff between outbound sync attempts.
var DefaultSyncRetryIntervals = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// SyncWorkerConfig tunes the outbox worker.
type SyncWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	Lease          time.Duration
	RetryIntervals []time.Duration
}

type syncWorker struct {
	jobs    ports.SyncJobRepository
	engine  ports.ReconciliationEngine
	metrics ports.MetricsRecorder
	cfg     SyncWorkerConfig
	now     func() time.Time
	log     zerolog.Logger
}

// NewSyncWorker creates the worker that drains the sync outbox.
func NewSyncWorker(
	jobs ports.SyncJobRepository,
	engine ports.ReconciliationEngine,
	metrics ports.MetricsRecorder,
	cfg SyncWorkerConfig,
	log zerolog.Logger,
) ports.SyncWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if len(cfg.RetryIntervals) == 0 {
		cfg.RetryIntervals = DefaultSyncRetryIntervals
	}
	return &syncWorker{
		jobs:    jobs,
		engine:  engine,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		log:     log.With().Str("component", "sync_worker").Logger(),
	}
}

// Run polls until ctx is cancelled.
func (w *syncWorker) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.cfg.PollInterval).Msg("sync worker started")
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessDue(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("sync batch failed")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("sync worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue claims one batch of due jobs and attempts each once.
func (w *syncWorker) ProcessDue(ctx context.Context) (int, error) {
	jobs, err := w.jobs.ClaimDue(ctx, w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, err
	}

	for i := range jobs {
		w.attempt(ctx, &jobs[i])
	}
	return len(jobs), nil
}

func (w *syncWorker) attempt(ctx context.Context, job *domain.SyncJob) {
	attempt := job.Attempt + 1
	log := w.log.With().
		Str("job_id", job.ID.String()).
		Int64("transaction_id", job.TransactionID).
		Int("attempt", attempt).
		Logger()

	err := w.engine.SyncTransaction(ctx, job.TransactionID)
	if err == nil {
		if err := w.jobs.MarkDone(ctx, job.ID, attempt); err != nil {
			log.Error().Err(err).Msg("failed to mark sync job done")
		}
		w.metrics.SyncAttempt("success")
		return
	}

	if attempt > len(w.cfg.RetryIntervals) || permanent(err) {
		if markErr := w.jobs.MarkFailed(ctx, job.ID, attempt, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("failed to mark sync job failed")
		}
		w.metrics.SyncAttempt("failed")
		log.Error().Err(err).Msg("sync job exhausted")
		return
	}

	next := w.now().Add(w.cfg.RetryIntervals[attempt-1])
	if markErr := w.jobs.Reschedule(ctx, job.ID, attempt, next, err.Error()); markErr != nil {
		log.Error().Err(markErr).Msg("failed to reschedule sync job")
	}
	w.metrics.SyncAttempt("retry")
	log.Warn().Err(err).Time("next_run_at", next).Msg("sync job rescheduled")
}

// permanent reports failures that a retry cannot fix.
func permanent(err error) bool {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == "WAL_003"
	}
	var remoteErr *ports.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.ClientSide() && remoteErr.StatusCode != 408 && remoteErr.StatusCode != 429
	}
	return false
}
