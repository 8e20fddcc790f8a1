package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
)

// Watchdog is the crash-recovery sweep: submissions stuck in Judging past the
// grace period (the process died mid-judge) are finalised as Runtime Error,
// and aged Pending submissions that never reached a worker are re-enqueued.
// Judging rows age from when they were claimed, and both the finalise here and
// the claim in the judge workers are guarded transitions, so a sweep can never
// clobber a live judgement and a re-enqueue can never cause double judging.
type Watchdog struct {
	submissions repository.SubmissionRepository
	pool        *Pool
	interval    time.Duration
	grace       time.Duration
	logger      zerolog.Logger
}

// NewWatchdog constructs the reconciliation sweep.
func NewWatchdog(submissions repository.SubmissionRepository, pool *Pool, interval, grace time.Duration, logger zerolog.Logger) *Watchdog {
	if interval <= 0 {
		interval = time.Minute
	}
	if grace <= 0 {
		grace = 5 * time.Minute
	}

	return &Watchdog{
		submissions: submissions,
		pool:        pool,
		interval:    interval,
		grace:       grace,
		logger:      logger.With().Str("component", "judge_watchdog").Logger(),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (w *Watchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep performs one reconciliation pass.
func (w *Watchdog) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.grace)

	stuck, err := w.submissions.ListStuck(ctx, models.SubmissionStatusJudging, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to list stuck judging submissions")
	} else {
		for _, submission := range stuck {
			now := time.Now().UTC()
			failed := submission
			failed.Status = models.SubmissionStatusRuntimeError
			failed.Verdict = "Judge system error: judging interrupted and not recoverable"
			failed.JudgedAt = &now

			finalized, err := w.submissions.FinalizeVerdict(ctx, &failed)
			if err != nil {
				w.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to finalise stuck submission")
				continue
			}
			if !finalized {
				// The judge delivered its verdict between the list and here.
				continue
			}
			w.logger.Warn().Uint("submission_id", submission.ID).Msg("finalised submission stuck in judging")
		}
	}

	pending, err := w.submissions.ListStuck(ctx, models.SubmissionStatusPending, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to list aged pending submissions")
		return
	}

	for _, submission := range pending {
		if err := w.pool.Enqueue(submission.ID); err != nil {
			if errors.Is(err, ErrQueueFull) {
				// Try again next sweep; the record stays Pending meanwhile.
				return
			}
			w.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to re-enqueue pending submission")
			continue
		}
		w.logger.Info().Uint("submission_id", submission.ID).Msg("re-enqueued aged pending submission")
	}
}
