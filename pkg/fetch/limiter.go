package fetch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Limiter is a process-wide token bucket bounding outbound request rate.
// Every network operation (page fetch, media stream) draws one token before
// issuing its request; all workers share the same bucket.
type Limiter struct {
	bucket *rate.Limiter
	log    *logrus.Entry
}

// NewLimiter creates a Limiter allowing perMinute requests per minute with
// the given burst size.
func NewLimiter(perMinute, burst int, log *logrus.Entry) *Limiter {
	if perMinute <= 0 {
		perMinute = 14
		log.Warnf("requests_per_minute invalid, defaulting to %d", perMinute)
	}
	if burst <= 0 {
		burst = perMinute
	}
	interval := time.Minute / time.Duration(perMinute)
	return &Limiter{
		bucket: rate.NewLimiter(rate.Every(interval), burst),
		log:    log,
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		l.log.Debugf("rate limiter wait aborted: %v", err)
		return err
	}
	return nil
}

// Allow reports whether a token is immediately available, consuming it if so.
// Used by tests and opportunistic probes; the pipeline itself always Waits.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}
