package queue

import (
	"context"

	"github.com/alumnihub/event-mailer/internal/domain"
)

// Item is the minimal data placed on the queue.
// Dispatchers fetch the full SendJob from the DB using the ID,
// keeping the queue lightweight and the stored job authoritative.
type Item struct {
	JobID string
}

// Queue is the in-process hand-off between the feeder (which selects due
// jobs from the durable store) and the dispatchers. Ordering is inherited
// from the feeder, which selects by not_before ascending; the queue itself
// is a plain FIFO.
//
// The buffer is sized for one full dispatch batch so a feeder sweep never
// blocks behind a slow provider.
type Queue struct {
	items chan Item
}

func New() *Queue {
	return &Queue{items: make(chan Item, 1000)}
}

// Enqueue places an item on the queue.
// It is non-blocking: if the buffer is full, ErrQueueFull is returned
// immediately and the job stays claimable in the store for the next sweep.
func (q *Queue) Enqueue(item Item) error {
	select {
	case q.items <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
// Returns (Item{}, false) when ctx is cancelled (graceful shutdown signal).
// This is the dispatcher's blocking wait; no polling loop sits between a
// job becoming available and a dispatcher picking it up.
func (q *Queue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depth returns the current number of items waiting in the queue.
// Used by the worker's queue-depth gauge.
func (q *Queue) Depth() int {
	return len(q.items)
}
