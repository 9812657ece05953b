// Package retry holds the backoff policies shared by query reads and the
// realtime reconnect loop.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Retryer decides how long to wait before the next attempt. attempt is
// 0-based; the boolean is false once the policy gives up.
type Retryer interface {
	NextDelay(attempt int, lastErr error) (time.Duration, bool)
	Reset()
}

// Backoff grows the delay geometrically from Initial up to Max.
// Limit bounds the number of retries; a negative Limit never gives up.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Limit      int
	// Jitter is the maximum +/- fraction applied to each delay.
	Jitter float64
}

// NewBackoff returns the policy used for read queries: 1s, 2s, 4s... capped
// at 30s with 30% jitter.
func NewBackoff(limit int) *Backoff {
	return &Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Limit:      limit,
		Jitter:     0.3,
	}
}

func (b *Backoff) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if b.Limit >= 0 && attempt >= b.Limit {
		return 0, false
	}

	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(b.Initial) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter > 0 {
		//nolint:gosec // jitter is not security sensitive
		delay += delay * b.Jitter * (2*rand.Float64() - 1)
		if delay < 0 {
			delay = float64(b.Initial)
		}
	}
	return time.Duration(delay), true
}

func (b *Backoff) Reset() {}

// Fixed waits the same Delay between attempts, at most Limit times.
type Fixed struct {
	Delay time.Duration
	Limit int
}

func NewFixed(delay time.Duration, limit int) *Fixed {
	return &Fixed{Delay: delay, Limit: limit}
}

func (f *Fixed) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if f.Limit >= 0 && attempt >= f.Limit {
		return 0, false
	}
	return f.Delay, true
}

func (f *Fixed) Reset() {}

// Never is a policy that does not retry.
var Never Retryer = &Fixed{Limit: 0}

// Do runs fn until it succeeds, shouldRetry rejects the error, the policy
// gives up, or ctx is done. The last error is returned.
func Do(ctx context.Context, r Retryer, shouldRetry func(error) bool, fn func(context.Context) error) error {
	if r == nil {
		r = Never
	}
	defer r.Reset()

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		delay, ok := r.NextDelay(attempt, err)
		if !ok {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
