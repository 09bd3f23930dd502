package service

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/repository"
)

// DispatchService is the enqueue side of the mail pipeline. It turns one
// "notify everyone registered for this event" trigger into a batch of
// staggered, durable send jobs. It never sends mail itself and never waits
// on a job's outcome; the web request returns as soon as the jobs are
// persisted.
type DispatchService struct {
	events repository.EventRepository
	jobs   repository.JobRepository
	logger *zap.Logger

	stagger       time.Duration
	maxRecipients int
	maxAttempts   int
}

func NewDispatchService(
	events repository.EventRepository,
	jobs repository.JobRepository,
	stagger time.Duration,
	maxRecipients int,
	maxAttempts int,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		events:        events,
		jobs:          jobs,
		logger:        logger,
		stagger:       stagger,
		maxRecipients: maxRecipients,
		maxAttempts:   maxAttempts,
	}
}

// DispatchEventMail resolves the event's participants and submits one
// delayed job per recipient. Recipient i becomes visible at
// now + i*stagger, so the worker never sees the whole batch at once.
//
// The participant list is a snapshot: users who register after this call
// do not receive the batch. Re-triggering a dispatch for the same event
// notifies every participant again; there is no deduplication across
// invocations.
//
// Per-recipient store failures are logged and skipped rather than rolled
// back; jobs already submitted stay submitted. Only a total failure (zero
// jobs accepted for a non-empty list) is reported as an error.
func (s *DispatchService) DispatchEventMail(ctx context.Context, eventID string, req domain.DispatchRequest) (*domain.Dispatch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	recipients, err := s.events.ListRecipients(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("resolve participants: %w", err)
	}
	if len(recipients) == 0 {
		return nil, domain.ErrNoParticipants
	}

	if len(recipients) > s.maxRecipients {
		s.logger.Warn("recipient list truncated to batch cap",
			zap.String("event_id", eventID),
			zap.Int("participants", len(recipients)),
			zap.Int("cap", s.maxRecipients),
		)
		recipients = recipients[:s.maxRecipients]
	}

	subject := req.Subject
	if subject == "" {
		subject = "Invitation for Event " + event.Title
	}

	now := time.Now().UTC()
	dispatch := &domain.Dispatch{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Subject:   subject,
		Total:     len(recipients),
		Pending:   len(recipients),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateDispatch(ctx, dispatch); err != nil {
		return nil, fmt.Errorf("persist dispatch: %w", err)
	}

	accepted := 0
	for i, rec := range recipients {
		job := &domain.SendJob{
			ID:          uuid.New().String(),
			DispatchID:  dispatch.ID,
			EventID:     event.ID,
			To:          rec.Email,
			DisplayName: rec.DisplayName,
			Subject:     subject,
			HTML:        renderBody(rec.DisplayName, req.HTML),
			Status:      domain.StatusPending,
			MaxAttempts: s.maxAttempts,
			NotBefore:   now.Add(time.Duration(i) * s.stagger),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := s.jobs.Create(ctx, job); err != nil {
			s.logger.Error("failed to submit send job",
				zap.String("dispatch_id", dispatch.ID),
				zap.String("recipient", rec.Email),
				zap.Error(err),
			)
			continue
		}
		accepted++
	}

	if accepted == 0 {
		return nil, domain.ErrNothingAccepted
	}

	dispatch.Total = accepted
	dispatch.Pending = accepted
	if accepted < len(recipients) {
		if err := s.jobs.UpdateDispatchCounts(ctx, dispatch.ID); err != nil {
			s.logger.Warn("failed to correct dispatch counts",
				zap.String("dispatch_id", dispatch.ID), zap.Error(err))
		}
	}

	s.logger.Info("dispatch queued",
		zap.String("dispatch_id", dispatch.ID),
		zap.String("event_id", event.ID),
		zap.Int("accepted", accepted),
	)
	return dispatch, nil
}

// GetDispatch returns a dispatch aggregate and its jobs.
func (s *DispatchService) GetDispatch(ctx context.Context, dispatchID string) (*domain.Dispatch, []*domain.SendJob, error) {
	return s.jobs.GetDispatch(ctx, dispatchID)
}

func (s *DispatchService) GetJob(ctx context.Context, id string) (*domain.SendJob, error) {
	return s.jobs.GetByID(ctx, id)
}

func (s *DispatchService) ListJobs(ctx context.Context, filter domain.ListFilter) ([]*domain.SendJob, int, error) {
	return s.jobs.List(ctx, filter)
}

// CancelJob withdraws a job that has not started processing yet.
func (s *DispatchService) CancelJob(ctx context.Context, id string) error {
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	switch j.Status {
	case domain.StatusCancelled:
		return domain.ErrAlreadyCancelled
	case domain.StatusProcessing, domain.StatusSent:
		return domain.ErrNotCancellable
	}

	return s.jobs.Cancel(ctx, id)
}

// PendingJobs reports the number of jobs still in the durable queue.
func (s *DispatchService) PendingJobs(ctx context.Context) (int, error) {
	return s.jobs.CountPending(ctx)
}

// renderBody prepends a personal greeting to the composed HTML body.
// The display name is escaped; the body comes from the trusted admin
// editor and is passed through as-is.
func renderBody(displayName, html string) string {
	return fmt.Sprintf("<p>Dear %s,</p>\n%s", template.HTMLEscapeString(displayName), html)
}
