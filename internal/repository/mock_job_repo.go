package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alumnihub/event-mailer/internal/domain"
)

// MockJobRepository is a hand-written, in-memory implementation of
// JobRepository used in unit tests. No mock-generation library needed.
type MockJobRepository struct {
	mu         sync.RWMutex
	jobs       map[string]*domain.SendJob
	dispatches map[string]*domain.Dispatch

	// FailCreateFor makes Create return CreateErr for the listed recipient
	// addresses, simulating a store that rejects some submissions mid-loop.
	FailCreateFor map[string]bool
	CreateErr     error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs:       make(map[string]*domain.SendJob),
		dispatches: make(map[string]*domain.Dispatch),
	}
}

func (m *MockJobRepository) Create(_ context.Context, j *domain.SendJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateFor[j.To] {
		return m.CreateErr
	}
	clone := *j
	m.jobs[j.ID] = &clone
	return nil
}

func (m *MockJobRepository) GetByID(_ context.Context, id string) (*domain.SendJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *j
	return &clone, nil
}

func (m *MockJobRepository) List(_ context.Context, f domain.ListFilter) ([]*domain.SendJob, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SendJob
	for _, j := range m.jobs {
		if f.Status != nil && j.Status != *f.Status {
			continue
		}
		if f.DispatchID != nil && j.DispatchID != *f.DispatchID {
			continue
		}
		clone := *j
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].NotBefore.Before(result[k].NotBefore)
	})
	return result, len(result), nil
}

func (m *MockJobRepository) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockJobRepository) MarkSent(_ context.Context, id, providerMsgID string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusSent
	j.ProviderMsgID = &providerMsgID
	j.SentAt = &sentAt
	j.ErrorMessage = nil
	return nil
}

func (m *MockJobRepository) MarkFailed(_ context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusFailed
	j.ErrorMessage = &errMsg
	j.NextRetryAt = nil
	return nil
}

func (m *MockJobRepository) ScheduleRetry(_ context.Context, id string, attempts int, nextRetry time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusFailed
	j.Attempts = attempts
	j.NextRetryAt = &nextRetry
	j.ErrorMessage = &errMsg
	return nil
}

func (m *MockJobRepository) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusCancelled
	return nil
}

func (m *MockJobRepository) FindDue(_ context.Context) ([]*domain.SendJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now().UTC()
	var due []*domain.SendJob
	for _, j := range m.jobs {
		if j.Status == domain.StatusPending && !j.NotBefore.After(now) {
			clone := *j
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		return due[i].NotBefore.Before(due[k].NotBefore)
	})
	return due, nil
}

func (m *MockJobRepository) FindDueRetries(_ context.Context) ([]*domain.SendJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now().UTC()
	var due []*domain.SendJob
	for _, j := range m.jobs {
		if j.Status == domain.StatusFailed &&
			j.Attempts < j.MaxAttempts &&
			j.NextRetryAt != nil && !j.NextRetryAt.After(now) {
			clone := *j
			due = append(due, &clone)
		}
	}
	return due, nil
}

func (m *MockJobRepository) RequeueStuck(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	count := 0
	for _, j := range m.jobs {
		if (j.Status == domain.StatusQueued || j.Status == domain.StatusProcessing) &&
			j.UpdatedAt.Before(cutoff) {
			j.Status = domain.StatusPending
			j.UpdatedAt = time.Now().UTC()
			count++
		}
	}
	return count, nil
}

func (m *MockJobRepository) CountPending(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, j := range m.jobs {
		switch j.Status {
		case domain.StatusPending, domain.StatusQueued, domain.StatusProcessing:
			count++
		}
	}
	return count, nil
}

func (m *MockJobRepository) CreateDispatch(_ context.Context, d *domain.Dispatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *d
	m.dispatches[d.ID] = &clone
	return nil
}

func (m *MockJobRepository) GetDispatch(_ context.Context, dispatchID string) (*domain.Dispatch, []*domain.SendJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dispatches[dispatchID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	var jobs []*domain.SendJob
	for _, j := range m.jobs {
		if j.DispatchID == dispatchID {
			clone := *j
			jobs = append(jobs, &clone)
		}
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].NotBefore.Before(jobs[k].NotBefore)
	})
	dispatchClone := *d
	return &dispatchClone, jobs, nil
}

func (m *MockJobRepository) UpdateDispatchCounts(_ context.Context, _ string) error {
	return nil
}
