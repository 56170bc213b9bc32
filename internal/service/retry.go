package service

import (
	"context"
	"time"
)

// RetryPolicy bounds retries of a transient failure with exponential backoff.
type RetryPolicy struct {
	// Attempts is the total number of tries, the first included.
	Attempts int
	// Initial is the pause after the first failure. It doubles after each retry.
	Initial time.Duration
	// Max caps a single pause.
	Max time.Duration
}

// Backoff returns the pause after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.Initial <= 0 || attempt < 1 {
		return 0
	}
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Do calls fn until it succeeds, returns an error retryable rejects, the
// attempts run out, or ctx ends while waiting. It returns the last error.
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(attempt)
		if err == nil || !retryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
