package repository

import (
	"context"

	"github.com/alumnihub/event-mailer/internal/domain"
)

// EventRepository resolves events and their registered participants.
// The events and users tables are owned by the main alumni application;
// this repository only reads the projection the mail service needs.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// ListRecipients resolves the event's participant list to email
	// recipients, in registration order. Participants without an email
	// address are omitted.
	ListRecipients(ctx context.Context, eventID string) ([]domain.Recipient, error)
}
