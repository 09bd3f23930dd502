package repository

import (
	"context"
	"sync"

	"github.com/alumnihub/event-mailer/internal/domain"
)

// MockEventRepository is an in-memory EventRepository for unit tests.
type MockEventRepository struct {
	mu         sync.RWMutex
	events     map[string]*domain.Event
	recipients map[string][]domain.Recipient

	// RecipientsErr, when set, is returned by ListRecipients to simulate a
	// database failure while resolving participants.
	RecipientsErr error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{
		events:     make(map[string]*domain.Event),
		recipients: make(map[string][]domain.Recipient),
	}
}

// AddEvent seeds an event and its participants.
func (m *MockEventRepository) AddEvent(e domain.Event, recipients []domain.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := e
	m.events[e.ID] = &clone
	m.recipients[e.ID] = append([]domain.Recipient(nil), recipients...)
}

func (m *MockEventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *MockEventRepository) ListRecipients(_ context.Context, eventID string) ([]domain.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.RecipientsErr != nil {
		return nil, m.RecipientsErr
	}
	return append([]domain.Recipient(nil), m.recipients[eventID]...), nil
}
