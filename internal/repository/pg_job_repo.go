package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alumnihub/event-mailer/internal/domain"
)

const jobColumns = `id, dispatch_id, event_id, recipient, display_name, subject, html,
	       status, attempts, max_attempts, not_before, next_retry_at,
	       sent_at, provider_msg_id, error_message, created_at, updated_at`

type pgJobRepository struct {
	pool *pgxpool.Pool
}

// NewPgJobRepository returns a JobRepository backed by PostgreSQL.
func NewPgJobRepository(pool *pgxpool.Pool) JobRepository {
	return &pgJobRepository{pool: pool}
}

func (r *pgJobRepository) Create(ctx context.Context, j *domain.SendJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO send_jobs
			(id, dispatch_id, event_id, recipient, display_name, subject, html,
			 status, attempts, max_attempts, not_before, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		j.ID, j.DispatchID, j.EventID, j.To, j.DisplayName, j.Subject, j.HTML,
		j.Status, j.Attempts, j.MaxAttempts, j.NotBefore, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert send job: %w", err)
	}
	return nil
}

func (r *pgJobRepository) GetByID(ctx context.Context, id string) (*domain.SendJob, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM send_jobs WHERE id = $1`, id)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return j, err
}

func (r *pgJobRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.SendJob, int, error) {
	where, args := buildListWhere(f)
	offset := (f.Page - 1) * f.Limit

	// Count total matching rows for pagination metadata.
	var total int
	countQuery := "SELECT COUNT(*) FROM send_jobs" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count send jobs: %w", err)
	}

	// Append pagination args after the WHERE args.
	args = append(args, f.Limit, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT `+jobColumns+`
		FROM send_jobs%s
		ORDER BY not_before ASC
		LIMIT %s OFFSET %s`, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list send jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *pgJobRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE send_jobs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

func (r *pgJobRepository) MarkSent(ctx context.Context, id, providerMsgID string, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE send_jobs
		SET status = 'sent', provider_msg_id = $1, sent_at = $2,
		    error_message = NULL, updated_at = NOW()
		WHERE id = $3`, providerMsgID, sentAt, id)
	return err
}

func (r *pgJobRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE send_jobs
		SET status = 'failed', error_message = $1, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2`, errMsg, id)
	return err
}

func (r *pgJobRepository) ScheduleRetry(ctx context.Context, id string, attempts int, nextRetry time.Time, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE send_jobs
		SET status = 'failed', attempts = $1, next_retry_at = $2,
		    error_message = $3, updated_at = NOW()
		WHERE id = $4`, attempts, nextRetry, errMsg, id)
	return err
}

func (r *pgJobRepository) Cancel(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE send_jobs SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *pgJobRepository) FindDue(ctx context.Context) ([]*domain.SendJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM send_jobs
		WHERE status = 'pending'
		  AND not_before <= NOW()
		ORDER BY not_before ASC
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("find due jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) FindDueRetries(ctx context.Context) ([]*domain.SendJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM send_jobs
		WHERE status = 'failed'
		  AND attempts < max_attempts
		  AND next_retry_at <= NOW()
		ORDER BY next_retry_at ASC
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("find due retries: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) RequeueStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE send_jobs
		SET status = 'pending', updated_at = NOW()
		WHERE status IN ('queued', 'processing')
		  AND updated_at < NOW() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stuck jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgJobRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM send_jobs
		WHERE status IN ('pending', 'queued', 'processing')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return n, nil
}

func (r *pgJobRepository) CreateDispatch(ctx context.Context, d *domain.Dispatch) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dispatches (id, event_id, subject, total, pending, sent, failed, cancelled, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.EventID, d.Subject, d.Total, d.Pending, d.Sent, d.Failed, d.Cancelled, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

func (r *pgJobRepository) GetDispatch(ctx context.Context, dispatchID string) (*domain.Dispatch, []*domain.SendJob, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, event_id, subject, total, pending, sent, failed, cancelled, created_at, updated_at
		FROM dispatches WHERE id = $1`, dispatchID)

	var d domain.Dispatch
	err := row.Scan(&d.ID, &d.EventID, &d.Subject, &d.Total, &d.Pending, &d.Sent, &d.Failed, &d.Cancelled, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get dispatch: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM send_jobs WHERE dispatch_id = $1 ORDER BY not_before ASC`, dispatchID)
	if err != nil {
		return nil, nil, fmt.Errorf("get dispatch jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	return &d, jobs, err
}

func (r *pgJobRepository) UpdateDispatchCounts(ctx context.Context, dispatchID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE dispatches d
		SET
			pending   = (SELECT COUNT(*) FROM send_jobs WHERE dispatch_id = d.id AND status IN ('pending','queued','processing')),
			sent      = (SELECT COUNT(*) FROM send_jobs WHERE dispatch_id = d.id AND status = 'sent'),
			failed    = (SELECT COUNT(*) FROM send_jobs WHERE dispatch_id = d.id AND status = 'failed'),
			cancelled = (SELECT COUNT(*) FROM send_jobs WHERE dispatch_id = d.id AND status = 'cancelled'),
			updated_at = NOW()
		WHERE id = $1`, dispatchID)
	return err
}

// ---- helpers ----

// scanJob reads a single send-job row from any pgx row type.
func scanJob(row pgx.Row) (*domain.SendJob, error) {
	var j domain.SendJob
	err := row.Scan(
		&j.ID, &j.DispatchID, &j.EventID, &j.To, &j.DisplayName,
		&j.Subject, &j.HTML, &j.Status, &j.Attempts, &j.MaxAttempts,
		&j.NotBefore, &j.NextRetryAt, &j.SentAt, &j.ProviderMsgID,
		&j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*domain.SendJob, error) {
	var result []*domain.SendJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.DispatchID != nil {
		add("dispatch_id = $%d", *f.DispatchID)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
