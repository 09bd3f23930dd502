package domain

import "time"

// Status tracks the lifecycle of a send job.
//
// pending    — persisted, waiting for not_before to pass
// queued     — handed to the worker's in-process delivery queue
// processing — a dispatcher is sending it right now
// sent       — delivered to the provider
// failed     — terminal failure, or waiting for next_retry_at
// cancelled  — withdrawn before processing
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// SendJob is one pending email to one recipient. Jobs are immutable once
// created except for their lifecycle bookkeeping fields; the subject and
// HTML are frozen at enqueue time, so later event edits do not affect an
// already-queued batch.
type SendJob struct {
	ID            string     `json:"id"`
	DispatchID    string     `json:"dispatch_id"`
	EventID       string     `json:"event_id"`
	To            string     `json:"to"`
	DisplayName   string     `json:"display_name"`
	Subject       string     `json:"subject"`
	HTML          string     `json:"html"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	NotBefore     time.Time  `json:"not_before"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ProviderMsgID *string    `json:"provider_message_id,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Dispatch groups the jobs created by a single dispatch trigger for an
// event. Counters are refreshed as jobs reach terminal states.
type Dispatch struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Subject   string    `json:"subject"`
	Total     int       `json:"total"`
	Pending   int       `json:"pending"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Cancelled int       `json:"cancelled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is the read-model projection of an alumni event. The full record
// (description, images, feed) lives in the main application; the mail
// service only needs identity and title.
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
}

// Recipient is a participant projected down to what an email needs.
type Recipient struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// MaxBodyBytes caps the rendered HTML body accepted from the editor.
const MaxBodyBytes = 64 * 1024

// DispatchRequest is the inbound payload for triggering a mail dispatch.
// Subject is optional; when empty the service derives one from the event.
type DispatchRequest struct {
	Subject string `json:"subject,omitempty"`
	HTML    string `json:"html"`
}

func (r *DispatchRequest) Validate() error {
	if r.HTML == "" {
		return ErrEmptyBody
	}
	if len(r.HTML) > MaxBodyBytes {
		return ErrBodyTooLarge
	}
	return nil
}

// ListFilter holds query parameters for paginated job listing.
type ListFilter struct {
	Status     *Status
	DispatchID *string
	Page       int
	Limit      int
}
