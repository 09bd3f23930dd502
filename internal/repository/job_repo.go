package repository

import (
	"context"
	"time"

	"github.com/alumnihub/event-mailer/internal/domain"
)

// JobRepository defines all persistence operations for the durable send-job
// queue. The pgx implementation is in pg_job_repo.go.
// Tests use a hand-written mock (mock_job_repo.go).
//
// Creating a job with a future not_before is the enqueue-with-delay
// operation: the job stays invisible to FindDue until its time arrives.
// Terminal jobs (sent, failed with retries exhausted, cancelled) are never
// selected again; rows are kept for audit rather than deleted.
type JobRepository interface {
	Create(ctx context.Context, j *domain.SendJob) error
	GetByID(ctx context.Context, id string) (*domain.SendJob, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.SendJob, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	MarkSent(ctx context.Context, id string, providerMsgID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	ScheduleRetry(ctx context.Context, id string, attempts int, nextRetry time.Time, errMsg string) error
	Cancel(ctx context.Context, id string) error

	// FindDue returns pending jobs whose not_before has passed.
	FindDue(ctx context.Context) ([]*domain.SendJob, error)
	// FindDueRetries returns failed jobs with retry budget left whose
	// next_retry_at has passed.
	FindDueRetries(ctx context.Context) ([]*domain.SendJob, error)
	// RequeueStuck resets queued/processing jobs untouched for longer than
	// olderThan back to pending. Covers worker crashes between claiming a
	// job and recording its outcome (at-least-once delivery).
	RequeueStuck(ctx context.Context, olderThan time.Duration) (int, error)
	// CountPending reports jobs still in the queue (visible or delayed).
	// Observability only; never used for control flow.
	CountPending(ctx context.Context) (int, error)

	CreateDispatch(ctx context.Context, d *domain.Dispatch) error
	GetDispatch(ctx context.Context, dispatchID string) (*domain.Dispatch, []*domain.SendJob, error)
	UpdateDispatchCounts(ctx context.Context, dispatchID string) error
}
