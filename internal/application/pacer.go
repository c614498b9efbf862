package application

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// newPacer returns a limiter that spaces successive Wait calls at least
// interval apart. The first call proceeds immediately. A non-positive
// interval disables pacing.
func newPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// pace blocks until the limiter admits the next outbound call or ctx ends.
func pace(ctx context.Context, l *rate.Limiter) error {
	return l.Wait(ctx)
}
