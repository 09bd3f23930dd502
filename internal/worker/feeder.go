package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/queue"
	"github.com/alumnihub/event-mailer/internal/repository"
)

// Feeder polls the database for pending jobs whose not_before has passed
// and hands them to the in-process delivery queue.
//
// The stagger delays assigned at enqueue time live entirely in the store:
// a job is invisible to the feeder until its not_before arrives, so the
// dispatchers see the batch one job at a time, in submission order.
type Feeder struct {
	jobs     repository.JobRepository
	q        *queue.Queue
	interval time.Duration
	logger   *zap.Logger
}

func NewFeeder(
	jobs repository.JobRepository,
	q *queue.Queue,
	interval time.Duration,
	logger *zap.Logger,
) *Feeder {
	return &Feeder{jobs: jobs, q: q, interval: interval, logger: logger}
}

// Run ticks every interval and enqueues any jobs that are now visible.
// Stops cleanly when ctx is cancelled.
func (f *Feeder) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("feeder started", zap.Duration("interval", f.interval))

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feeder stopping")
			return
		case <-ticker.C:
			f.poll(ctx)
		}
	}
}

func (f *Feeder) poll(ctx context.Context) {
	jobs, err := f.jobs.FindDue(ctx)
	if err != nil {
		f.logger.Error("feeder poll error", zap.Error(err))
		return
	}

	for _, j := range jobs {
		if err := f.q.Enqueue(queue.Item{JobID: j.ID}); err != nil {
			// Queue saturated: leave the job pending, the next sweep
			// picks it up.
			f.logger.Warn("could not enqueue due job",
				zap.String("job_id", j.ID), zap.Error(err))
			continue
		}

		if err := f.jobs.UpdateStatus(ctx, j.ID, domain.StatusQueued); err != nil {
			f.logger.Error("failed to update status after enqueue",
				zap.String("job_id", j.ID), zap.Error(err))
		}
	}

	if len(jobs) > 0 {
		f.logger.Debug("enqueued due jobs", zap.Int("count", len(jobs)))
	}
}
