package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrNoParticipants   = errors.New("event has no participants")
	ErrEmptyBody        = errors.New("message body must not be empty")
	ErrBodyTooLarge     = errors.New("message body exceeds 64 KiB")
	ErrNothingAccepted  = errors.New("no jobs could be submitted to the queue")
	ErrAlreadyCancelled = errors.New("job is already cancelled")
	ErrNotCancellable   = errors.New("job cannot be cancelled in its current status")
	ErrQueueFull        = errors.New("delivery queue is at capacity")
)
