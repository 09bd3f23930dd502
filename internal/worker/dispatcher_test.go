package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/queue"
	"github.com/alumnihub/event-mailer/internal/ratelimiter"
	"github.com/alumnihub/event-mailer/internal/repository"
	"github.com/alumnihub/event-mailer/internal/transport"
)

// fakeTransport records every send and can fail selected recipients.
// It also tracks the maximum number of concurrent in-flight sends.
type fakeTransport struct {
	mu     sync.Mutex
	sends  []transport.Message
	errFor map[string]error
	delay  time.Duration

	inflight    int32
	maxInflight int32
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(_ context.Context, msg *transport.Message) (*transport.SendResult, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInflight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInflight, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.inflight, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.sends = append(f.sends, *msg)
	err := f.errFor[msg.To]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &transport.SendResult{MessageID: "fake-" + msg.To}, nil
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeTransport) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sends {
		out = append(out, m.To)
	}
	return out
}

var testBackoff = []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}

func newTestDispatcher(repo *repository.MockJobRepository, fake *fakeTransport) (*Dispatcher, *queue.Queue) {
	q := queue.New()
	d := NewDispatcher(0, q, repo, fake, ratelimiter.New(1000), testBackoff, zap.NewNop(), nil, nil)
	return d, q
}

func makeJob(t *testing.T, repo *repository.MockJobRepository, to string, attempts, maxAttempts int) *domain.SendJob {
	t.Helper()
	now := time.Now().UTC()
	j := &domain.SendJob{
		ID:          uuid.New().String(),
		DispatchID:  "d1",
		EventID:     "E1",
		To:          to,
		DisplayName: "Tester",
		Subject:     "Invitation for Event E1",
		HTML:        "<p>Dear Tester,</p>\n<p>Hi</p>",
		Status:      domain.StatusQueued,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		NotBefore:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	return j
}

func TestDispatcher_SendsAndMarksSent(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{}
	d, _ := newTestDispatcher(repo, fake)
	ctx := context.Background()

	j := makeJob(t, repo, "alice@x.com", 0, 3)
	d.process(ctx, queue.Item{JobID: j.ID})

	if fake.sendCount() != 1 {
		t.Fatalf("expected 1 send, got %d", fake.sendCount())
	}
	got, _ := repo.GetByID(ctx, j.ID)
	if got.Status != domain.StatusSent {
		t.Fatalf("expected status=sent, got %s", got.Status)
	}
	if got.ProviderMsgID == nil || *got.ProviderMsgID != "fake-alice@x.com" {
		t.Fatal("expected provider message ID to be recorded")
	}
}

func TestDispatcher_SkipsCancelledJob(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{}
	d, _ := newTestDispatcher(repo, fake)
	ctx := context.Background()

	j := makeJob(t, repo, "alice@x.com", 0, 3)
	_ = repo.Cancel(ctx, j.ID)

	d.process(ctx, queue.Item{JobID: j.ID})

	if fake.sendCount() != 0 {
		t.Fatalf("expected 0 sends for a cancelled job, got %d", fake.sendCount())
	}
	got, _ := repo.GetByID(ctx, j.ID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected status to remain cancelled, got %s", got.Status)
	}
}

func TestDispatcher_TransientFailureSchedulesRetry(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{errFor: map[string]error{
		"bob@x.com": &transport.SendError{Provider: "fake", StatusCode: 429, Reason: "rate limited"},
	}}
	d, _ := newTestDispatcher(repo, fake)
	ctx := context.Background()

	j := makeJob(t, repo, "bob@x.com", 0, 3)
	d.process(ctx, queue.Item{JobID: j.ID})

	got, _ := repo.GetByID(ctx, j.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected status=failed, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", got.Attempts)
	}
	if got.NextRetryAt == nil {
		t.Fatal("expected next_retry_at to be scheduled")
	}
}

func TestDispatcher_PermanentFailureFailsImmediately(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{errFor: map[string]error{
		"bob@x.com": &transport.SendError{Provider: "fake", StatusCode: 400, Reason: "invalid recipient", Permanent: true},
	}}

	var failed int32
	q := queue.New()
	d := NewDispatcher(0, q, repo, fake, ratelimiter.New(1000), testBackoff, zap.NewNop(),
		nil, func() { atomic.AddInt32(&failed, 1) })
	ctx := context.Background()

	j := makeJob(t, repo, "bob@x.com", 0, 3)
	d.process(ctx, queue.Item{JobID: j.ID})

	got, _ := repo.GetByID(ctx, j.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected status=failed, got %s", got.Status)
	}
	if got.NextRetryAt != nil {
		t.Fatal("permanent failure must not be scheduled for retry")
	}
	if got.ErrorMessage == nil {
		t.Fatal("expected the error detail to be recorded")
	}
	if atomic.LoadInt32(&failed) != 1 {
		t.Fatal("expected onFailed hook to fire once")
	}
}

func TestDispatcher_RetriesExhausted(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{errFor: map[string]error{
		"bob@x.com": &transport.SendError{Provider: "fake", StatusCode: 500, Reason: "server error"},
	}}
	d, _ := newTestDispatcher(repo, fake)
	ctx := context.Background()

	// Final allowed attempt: attempts is already max-1.
	j := makeJob(t, repo, "bob@x.com", 2, 3)
	d.process(ctx, queue.Item{JobID: j.ID})

	got, _ := repo.GetByID(ctx, j.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected status=failed, got %s", got.Status)
	}
	if got.NextRetryAt != nil {
		t.Fatal("exhausted job must not be scheduled for retry")
	}
}

// TestDispatcher_FailureDoesNotBlockOthers verifies a failure for one
// recipient leaves every other recipient's job unaffected.
func TestDispatcher_FailureDoesNotBlockOthers(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{errFor: map[string]error{
		"bob@x.com": &transport.SendError{Provider: "fake", StatusCode: 400, Reason: "invalid recipient", Permanent: true},
	}}
	d, _ := newTestDispatcher(repo, fake)
	ctx := context.Background()

	var ids []string
	for _, addr := range []string{"alice@x.com", "bob@x.com", "carol@x.com"} {
		ids = append(ids, makeJob(t, repo, addr, 0, 3).ID)
	}
	for _, id := range ids {
		d.process(ctx, queue.Item{JobID: id})
	}

	if fake.sendCount() != 3 {
		t.Fatalf("expected 3 send attempts, got %d", fake.sendCount())
	}

	alice, _ := repo.GetByID(ctx, ids[0])
	carol, _ := repo.GetByID(ctx, ids[2])
	if alice.Status != domain.StatusSent || carol.Status != domain.StatusSent {
		t.Fatalf("expected alice and carol sent, got %s / %s", alice.Status, carol.Status)
	}
	bob, _ := repo.GetByID(ctx, ids[1])
	if bob.Status != domain.StatusFailed {
		t.Fatalf("expected bob failed, got %s", bob.Status)
	}
}

// TestPool_SingleDispatcherNeverOverlapsSends verifies the default pool
// size of 1 means no two transport sends are ever in flight together.
func TestPool_SingleDispatcherNeverOverlapsSends(t *testing.T) {
	repo := repository.NewMockJobRepository()
	fake := &fakeTransport{delay: 5 * time.Millisecond}
	q := queue.New()

	d := NewDispatcher(0, q, repo, fake, ratelimiter.New(1000), testBackoff, zap.NewNop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx)
	}()

	const total = 5
	for i := 0; i < total; i++ {
		j := makeJob(t, repo, "alice@x.com", 0, 3)
		if err := q.Enqueue(queue.Item{JobID: j.ID}); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for fake.sendCount() < total && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	if fake.sendCount() != total {
		t.Fatalf("expected %d sends, got %d", total, fake.sendCount())
	}
	if max := atomic.LoadInt32(&fake.maxInflight); max != 1 {
		t.Fatalf("expected at most 1 in-flight send, observed %d", max)
	}
}
