package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alumnihub/event-mailer/internal/queue"
)

func TestQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	if err := q.Enqueue(queue.Item{JobID: "1"}); err != nil {
		t.Fatal(err)
	}

	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected item, got nothing")
	}
	if got.JobID != "1" {
		t.Fatalf("expected id=1, got %s", got.JobID)
	}
}

// TestQueue_FIFOOrder verifies items come out in the order the feeder
// put them in; the stagger ordering computed in the store must survive
// the hand-off.
func TestQueue_FIFOOrder(t *testing.T) {
	q := queue.New()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(queue.Item{JobID: fmt.Sprintf("job-%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 10; i++ {
		got, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatal("queue drained early")
		}
		if want := fmt.Sprintf("job-%d", i); got.JobID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, got.JobID)
		}
	}
}

// TestQueue_ContextCancellation verifies Dequeue returns (_, false)
// when the context is cancelled while blocking.
func TestQueue_ContextCancellation(t *testing.T) {
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestQueue_Depth(t *testing.T) {
	q := queue.New()

	if q.Depth() != 0 {
		t.Fatalf("expected empty queue, depth=%d", q.Depth())
	}

	_ = q.Enqueue(queue.Item{JobID: "a"})
	_ = q.Enqueue(queue.Item{JobID: "b"})

	if q.Depth() != 2 {
		t.Fatalf("expected depth=2, got %d", q.Depth())
	}
}
