package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds the attempts Retry makes and the waits between them.
type Policy struct {
	// Attempts counts the first call. Zero means 3.
	Attempts int
	// Backoff is the wait before the second attempt; later waits grow by Factor.
	Backoff time.Duration
	// MaxWait caps a single wait. Zero means 30s.
	MaxWait time.Duration
	// Factor defaults to 2.
	Factor float64
	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64
	// Retryable reports whether an error earns another attempt. Nil means
	// IsTransient.
	Retryable func(error) bool
	// Name labels retry log lines. Retries are not logged when empty.
	Name string
}

// APIPolicy is the policy for remote API calls: three attempts starting
// at one second.
func APIPolicy(name string) Policy {
	return Policy{
		Attempts: 3,
		Backoff:  time.Second,
		MaxWait:  30 * time.Second,
		Factor:   2,
		Jitter:   0.25,
		Name:     name,
	}
}

// RetryOnce makes exactly one more attempt, after a fixed wait, when
// retryable reports true.
func RetryOnce(wait time.Duration, retryable func(error) bool) Policy {
	return Policy{
		Attempts:  2,
		Backoff:   max(wait, 0),
		MaxWait:   max(wait, time.Millisecond),
		Factor:    1,
		Retryable: retryable,
	}
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx ends. The last error is returned on failure.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var err error
	for attempt := 1; ; attempt++ {
		var val T
		if val, err = fn(ctx); err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Attempts {
			return zero, err
		}

		if p.Name != "" {
			zap.L().Warn("resilience: retrying",
				zap.String("operation", p.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		t := time.NewTimer(p.wait(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	p.Backoff = max(p.Backoff, 0)
	if p.MaxWait <= 0 {
		p.MaxWait = 30 * time.Second
	}
	if p.Factor <= 0 {
		p.Factor = 2
	}
	p.Jitter = max(p.Jitter, 0)
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// wait returns the pause after the given failed attempt (1-based).
func (p Policy) wait(attempt int) time.Duration {
	d := math.Min(float64(p.Backoff)*math.Pow(p.Factor, float64(attempt-1)), float64(p.MaxWait))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(max(d, 0))
}
