package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/queue"
	"github.com/alumnihub/event-mailer/internal/ratelimiter"
	"github.com/alumnihub/event-mailer/internal/repository"
	"github.com/alumnihub/event-mailer/internal/transport"
)

// Dispatcher is a single goroutine that continuously pulls items from the
// delivery queue, waits for the send rate limiter, delivers via the
// transport, and handles retry scheduling on failure.
//
// One dispatcher processes one job at a time; with the default pool size
// of 1 no two transport sends ever overlap, which is the throttle that
// keeps the provider happy.
type Dispatcher struct {
	id      int
	q       *queue.Queue
	jobs    repository.JobRepository
	mailer  transport.Transport
	limiter *ratelimiter.SendLimiter
	backoff []time.Duration
	logger  *zap.Logger

	// Hooks for metrics — injected by the pool so the dispatcher stays
	// metrics-agnostic.
	onSent   func(latency time.Duration)
	onFailed func()
}

// NewDispatcher constructs a dispatcher. onSent and onFailed are optional (nil = no-op).
func NewDispatcher(
	id int,
	q *queue.Queue,
	jobs repository.JobRepository,
	mailer transport.Transport,
	limiter *ratelimiter.SendLimiter,
	backoff []time.Duration,
	logger *zap.Logger,
	onSent func(time.Duration),
	onFailed func(),
) *Dispatcher {
	if onSent == nil {
		onSent = func(time.Duration) {}
	}
	if onFailed == nil {
		onFailed = func() {}
	}
	return &Dispatcher{
		id: id, q: q, jobs: jobs, mailer: mailer,
		limiter: limiter, backoff: backoff, logger: logger,
		onSent: onSent, onFailed: onFailed,
	}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", zap.Int("id", d.id))
	for {
		item, ok := d.q.Dequeue(ctx)
		if !ok {
			d.logger.Info("dispatcher stopping", zap.Int("id", d.id))
			return
		}
		d.process(ctx, item)
	}
}

func (d *Dispatcher) process(ctx context.Context, item queue.Item) {
	start := time.Now()
	log := d.logger.With(zap.String("job_id", item.JobID))

	j, err := d.jobs.GetByID(ctx, item.JobID)
	if err != nil {
		log.Error("failed to fetch job", zap.Error(err))
		return
	}

	// A cancellation between enqueue and processing time is valid; skip silently.
	if j.Status == domain.StatusCancelled {
		log.Debug("job was cancelled before processing")
		return
	}

	if err := d.jobs.UpdateStatus(ctx, j.ID, domain.StatusProcessing); err != nil {
		log.Error("failed to mark as processing", zap.Error(err))
		return
	}

	// Block here until the rate limiter grants a token.
	if err := d.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting — worker is shutting down. The job
		// stays in processing and the requeue sweep reclaims it.
		return
	}

	resp, err := d.mailer.Send(ctx, &transport.Message{
		To:      j.To,
		ToName:  j.DisplayName,
		Subject: j.Subject,
		HTML:    j.HTML,
	})
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("transport send failed",
			zap.String("recipient", j.To),
			zap.Error(err),
			zap.Int("attempts", j.Attempts),
		)
		d.handleFailure(ctx, j, err)
		d.refreshDispatchCounts(j.DispatchID, log)
		return
	}

	now := time.Now().UTC()
	if err := d.jobs.MarkSent(ctx, j.ID, resp.MessageID, now); err != nil {
		log.Error("failed to mark as sent", zap.Error(err))
		return
	}

	d.refreshDispatchCounts(j.DispatchID, log)
	d.onSent(elapsed)
	log.Info("mail sent",
		zap.String("recipient", j.To),
		zap.String("provider_msg_id", resp.MessageID),
		zap.Duration("latency", elapsed),
	)
}

// handleFailure either schedules a retry (if the error is transient and
// retries remain) or marks the job as permanently failed.
//
// Retry schedule:
//
//	attempt 0 → backoff[0]  (default 5 s)
//	attempt 1 → backoff[1]  (default 30 s)
//	attempt 2 → backoff[2]  (default 120 s)
//	attempt N ≥ len(backoff) → last backoff entry (clamped)
func (d *Dispatcher) handleFailure(ctx context.Context, j *domain.SendJob, sendErr error) {
	if transport.IsPermanent(sendErr) || j.Attempts+1 >= j.MaxAttempts {
		if err := d.jobs.MarkFailed(ctx, j.ID, sendErr.Error()); err != nil {
			d.logger.Error("failed to mark job as failed",
				zap.String("job_id", j.ID), zap.Error(err))
			return
		}
		d.onFailed()
		d.logger.Error("job permanently failed",
			zap.String("job_id", j.ID),
			zap.String("recipient", j.To),
			zap.String("reason", sendErr.Error()),
		)
		return
	}

	idx := j.Attempts
	if idx >= len(d.backoff) {
		idx = len(d.backoff) - 1
	}
	nextRetry := time.Now().UTC().Add(d.backoff[idx])

	if err := d.jobs.ScheduleRetry(ctx, j.ID, j.Attempts+1, nextRetry, sendErr.Error()); err != nil {
		d.logger.Error("failed to schedule retry",
			zap.String("job_id", j.ID), zap.Error(err))
	}
}

// refreshDispatchCounts updates the dispatch aggregate asynchronously.
func (d *Dispatcher) refreshDispatchCounts(dispatchID string, log *zap.Logger) {
	if dispatchID == "" {
		return
	}
	go func() {
		if err := d.jobs.UpdateDispatchCounts(context.Background(), dispatchID); err != nil {
			log.Warn("failed to update dispatch counts", zap.Error(err))
		}
	}()
}
