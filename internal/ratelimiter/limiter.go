package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a single token bucket shared by all dispatchers in a
// worker process. It enforces the steady-state send rate the mail provider
// tolerates. Burst is set equal to the rate so no extra burst capacity is
// allowed beyond the configured per-second maximum.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter granting ratePerSec sends per second.
func New(ratePerSec int) *SendLimiter {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	return &SendLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Wait blocks until the limiter grants a token.
// Called by each dispatcher immediately before invoking the transport.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *SendLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
