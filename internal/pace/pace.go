// Package pace spaces out calls to rate-limited external services.
package pace

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/metrics"
)

// Pacer enforces a minimum interval between successive calls. The first
// call proceeds immediately.
type Pacer struct {
	name    string
	limiter *rate.Limiter
}

// New creates a Pacer allowing one call per interval. A non-positive
// interval disables pacing.
func New(name string, interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{name: name, limiter: rate.NewLimiter(limit, 1)}
}

// None returns a Pacer that never waits.
func None() *Pacer {
	return New("none", 0)
}

// FromMillis is a convenience for config values expressed in milliseconds.
func FromMillis(name string, ms int) *Pacer {
	return New(name, time.Duration(ms)*time.Millisecond)
}

// Wait blocks until the next call is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "pace: %s", p.name)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObservePacingDelay(p.name, d)
	}
	return nil
}

// Interval reports the configured spacing; zero means unpaced.
func (p *Pacer) Interval() time.Duration {
	if p == nil || p.limiter.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}
