package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/repository"
)

// RequeueWorker periodically resets jobs stranded in queued/processing by a
// worker crash back to pending. This is what makes delivery at-least-once:
// a job claimed but never acknowledged is eventually offered again.
//
// The staleness threshold is generous (two sweep intervals) so a slow but
// healthy send is never reclaimed while still in flight.
type RequeueWorker struct {
	jobs     repository.JobRepository
	interval time.Duration
	logger   *zap.Logger
}

func NewRequeueWorker(jobs repository.JobRepository, interval time.Duration, logger *zap.Logger) *RequeueWorker {
	return &RequeueWorker{jobs: jobs, interval: interval, logger: logger}
}

// Run ticks every interval. Stops cleanly when ctx is cancelled.
func (qw *RequeueWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(qw.interval)
	defer ticker.Stop()

	qw.logger.Info("requeue worker started", zap.Duration("interval", qw.interval))

	for {
		select {
		case <-ctx.Done():
			qw.logger.Info("requeue worker stopping")
			return
		case <-ticker.C:
			n, err := qw.jobs.RequeueStuck(ctx, 2*qw.interval)
			if err != nil {
				qw.logger.Error("requeue sweep error", zap.Error(err))
				continue
			}
			if n > 0 {
				qw.logger.Warn("requeued stuck jobs", zap.Int("count", n))
			}
		}
	}
}
