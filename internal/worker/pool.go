package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/config"
	"github.com/alumnihub/event-mailer/internal/queue"
	"github.com/alumnihub/event-mailer/internal/ratelimiter"
	"github.com/alumnihub/event-mailer/internal/repository"
	"github.com/alumnihub/event-mailer/internal/transport"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnSent   func(latency time.Duration)
	OnFailed func()
}

// Pool manages the lifecycle of all dispatchers.
// DISPATCH_WORKERS defaults to 1: a single in-flight send at a time is the
// admission control that protects the mail provider from bursts. Raising
// it is an explicit operator decision.
type Pool struct {
	dispatchers []*Dispatcher
	wg          sync.WaitGroup
}

// NewPool creates cfg.DispatchWorkers identical dispatchers sharing one
// queue and one rate limiter.
func NewPool(
	cfg *config.Config,
	q *queue.Queue,
	jobs repository.JobRepository,
	mailer transport.Transport,
	limiter *ratelimiter.SendLimiter,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	n := cfg.DispatchWorkers
	if n < 1 {
		n = 1
	}
	dispatchers := make([]*Dispatcher, n)

	for i := range dispatchers {
		dispatchers[i] = NewDispatcher(
			i, q, jobs, mailer, limiter,
			cfg.RetryBackoff,
			logger.With(zap.Int("dispatcher_id", i)),
			hooks.OnSent,
			hooks.OnFailed,
		)
	}

	return &Pool{dispatchers: dispatchers}
}

// Start launches all dispatchers as goroutines.
// The provided ctx is forwarded to every dispatcher; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, d := range p.dispatchers {
		p.wg.Add(1)
		go func(d *Dispatcher) {
			defer p.wg.Done()
			d.Run(ctx)
		}(d)
	}
}

// Wait blocks until every dispatcher has returned after ctx is cancelled.
// Call this after cancelling the context to ensure in-flight sends finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
