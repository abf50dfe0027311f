package async

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle paces queue drains with a token bucket. Pacing only delays
// execution; enqueue order is preserved.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle allowing perSecond sustained executions
// with the given burst. Burst defaults to 1 when non-positive.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Allow reports whether an execution may proceed right now, consuming a
// token if so.
func (t *Throttle) Allow() bool {
	return t.limiter.Allow()
}
