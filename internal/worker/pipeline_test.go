package worker

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/config"
	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/queue"
	"github.com/alumnihub/event-mailer/internal/ratelimiter"
	"github.com/alumnihub/event-mailer/internal/repository"
	"github.com/alumnihub/event-mailer/internal/service"
)

// pipeline wires the enqueue service, feeder, retry worker, and a
// single-dispatcher pool against in-memory repositories and a fake
// transport — the full path from dispatch trigger to provider call,
// with only the database and the real provider replaced.
type pipeline struct {
	svc    *service.DispatchService
	events *repository.MockEventRepository
	jobs   *repository.MockJobRepository
	fake   *fakeTransport
	cancel context.CancelFunc
	pool   *Pool
}

func startPipeline(t *testing.T, fake *fakeTransport, maxAttempts int) *pipeline {
	t.Helper()
	events := repository.NewMockEventRepository()
	jobs := repository.NewMockJobRepository()

	// Zero stagger so the whole batch is visible immediately; the stagger
	// property itself is covered by the service tests.
	svc := service.NewDispatchService(events, jobs, 0, 500, maxAttempts, zap.NewNop())

	cfg := &config.Config{
		DispatchWorkers: 1,
		RetryBackoff:    []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
	}

	q := queue.New()
	pool := NewPool(cfg, q, jobs, fake, ratelimiter.New(1000), zap.NewNop(), MetricHooks{})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	go NewFeeder(jobs, q, 5*time.Millisecond, zap.NewNop()).Run(ctx)
	go NewRetryWorker(jobs, q, 5*time.Millisecond, zap.NewNop()).Run(ctx)

	p := &pipeline{svc: svc, events: events, jobs: jobs, fake: fake, cancel: cancel, pool: pool}
	t.Cleanup(func() {
		p.cancel()
		p.pool.Wait()
	})
	return p
}

func (p *pipeline) waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for pipeline condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPipeline_DeliversToEveryParticipant(t *testing.T) {
	fake := &fakeTransport{}
	p := startPipeline(t, fake, 3)

	p.events.AddEvent(domain.Event{ID: "E1", Title: "E1"}, []domain.Recipient{
		{Email: "alice@x.com", DisplayName: "alice"},
		{Email: "bob@x.com", DisplayName: "bob"},
		{Email: "carol@x.com", DisplayName: "carol"},
	})

	d, err := p.svc.DispatchEventMail(context.Background(), "E1", domain.DispatchRequest{HTML: "<p>Hi</p>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Total != 3 {
		t.Fatalf("expected count=3, got %d", d.Total)
	}

	p.waitFor(t, func() bool { return fake.sendCount() == 3 })

	got := fake.recipients()
	sort.Strings(got)
	want := []string{"alice@x.com", "bob@x.com", "carol@x.com"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected recipients %v, got %v", want, got)
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, m := range fake.sends {
		if m.Subject != "Invitation for Event E1" {
			t.Fatalf("unexpected subject %q", m.Subject)
		}
		name := strings.SplitN(m.To, "@", 2)[0]
		if !strings.Contains(m.HTML, name) || !strings.Contains(m.HTML, "<p>Hi</p>") {
			t.Fatalf("expected personalised HTML for %s, got %q", m.To, m.HTML)
		}
	}
}

func TestPipeline_MissingEventSendsNothing(t *testing.T) {
	fake := &fakeTransport{}
	p := startPipeline(t, fake, 3)

	_, err := p.svc.DispatchEventMail(context.Background(), "E2", domain.DispatchRequest{HTML: "<p>Hi</p>"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Give the feeder a few sweeps to prove nothing shows up.
	time.Sleep(50 * time.Millisecond)
	if fake.sendCount() != 0 {
		t.Fatalf("expected 0 sends, got %d", fake.sendCount())
	}
}

// TestPipeline_OneRecipientFailing verifies bob's failure exhausts its
// retries and ends terminal while alice and carol are still delivered.
func TestPipeline_OneRecipientFailing(t *testing.T) {
	// bob fails with a transient error; maxAttempts=2 means one retry and
	// then a terminal failure.
	fake := &fakeTransport{errFor: map[string]error{
		"bob@x.com": errors.New("connection reset by peer"),
	}}
	p := startPipeline(t, fake, 2)

	p.events.AddEvent(domain.Event{ID: "E1", Title: "E1"}, []domain.Recipient{
		{Email: "alice@x.com", DisplayName: "alice"},
		{Email: "bob@x.com", DisplayName: "bob"},
		{Email: "carol@x.com", DisplayName: "carol"},
	})

	d, err := p.svc.DispatchEventMail(context.Background(), "E1", domain.DispatchRequest{HTML: "<p>Hi</p>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	p.waitFor(t, func() bool {
		jobs, _, _ := p.jobs.List(ctx, domain.ListFilter{DispatchID: &d.ID})
		sent, terminalFailed := 0, 0
		for _, j := range jobs {
			switch {
			case j.Status == domain.StatusSent:
				sent++
			case j.Status == domain.StatusFailed && j.NextRetryAt == nil:
				terminalFailed++
			}
		}
		return sent == 2 && terminalFailed == 1
	})

	jobs, _, _ := p.jobs.List(ctx, domain.ListFilter{DispatchID: &d.ID})
	for _, j := range jobs {
		switch j.To {
		case "bob@x.com":
			if j.Status != domain.StatusFailed {
				t.Fatalf("expected bob failed, got %s", j.Status)
			}
			if j.Attempts != 1 {
				t.Fatalf("expected bob to have burned his retry budget, attempts=%d", j.Attempts)
			}
			if j.ErrorMessage == nil || !strings.Contains(*j.ErrorMessage, "connection reset") {
				t.Fatal("expected the failure reason to be recorded")
			}
		default:
			if j.Status != domain.StatusSent {
				t.Fatalf("expected %s sent, got %s", j.To, j.Status)
			}
		}
	}

	// alice + carol, plus two attempts for bob.
	if fake.sendCount() != 4 {
		t.Fatalf("expected 4 transport calls, got %d", fake.sendCount())
	}
}
