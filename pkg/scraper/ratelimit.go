package scraper

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// limiter spaces out network calls by a randomly sampled delay.
//
// Before each call it samples a delay uniformly from [min, max] and, if
// less than that much time has passed since the previous call, sleeps
// for the remainder. The randomness makes the request cadence look less
// mechanical to the remote side.
//
// The mutex only protects the timestamp against accidental concurrent
// use; the guarantee assumes a single sequential caller.
type limiter struct {
	mu       sync.Mutex
	min, max time.Duration
	last     time.Time
}

func newLimiter(min, max time.Duration) *limiter {
	return &limiter{min: min, max: max}
}

// sample picks the delay for the next call.
func (l *limiter) sample() time.Duration {
	if l.max <= l.min {
		return l.min
	}
	return l.min + time.Duration(rand.Int64N(int64(l.max-l.min)+1))
}

// wait blocks until the sampled delay since the previous call has
// elapsed, then records the current time. It returns early with
// ctx.Err() if the context is cancelled during the sleep.
func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	delay := l.sample()
	remaining := delay - time.Since(l.last)
	l.mu.Unlock()

	if remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}

	l.mu.Lock()
	l.last = time.Now()
	l.mu.Unlock()
	return nil
}
