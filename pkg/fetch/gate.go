package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"playstv-recovery/pkg/utils"
)

// Gate is a process-wide counting permit capping simultaneous in-flight
// network operations. A single gate is shared across all workers; each
// network operation holds one permit for its full duration.
type Gate struct {
	sem            *semaphore.Weighted
	acquireTimeout time.Duration // 0 disables the timeout
	log            *logrus.Entry
}

// NewGate creates a Gate with the given permit count. acquireTimeout of 0
// means Acquire waits indefinitely (until ctx is cancelled).
func NewGate(maxConcurrent int, acquireTimeout time.Duration, log *logrus.Entry) *Gate {
	limit := int64(maxConcurrent)
	if limit <= 0 {
		limit = 10
		log.Warnf("max_concurrent invalid or zero, defaulting to %d", limit)
	}
	return &Gate{
		sem:            semaphore.NewWeighted(limit),
		acquireTimeout: acquireTimeout,
		log:            log,
	}
}

// Acquire takes one permit, blocking until one is available, the optional
// acquire timeout elapses, or ctx is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	acquireCtx := ctx
	if g.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, g.acquireTimeout)
		defer cancel()
	}

	if err := g.sem.Acquire(acquireCtx, 1); err != nil {
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w after %v", utils.ErrGateTimeout, g.acquireTimeout)
		}
		return err
	}
	return nil
}

// Release returns one permit.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// TryAcquire takes a permit only if one is immediately available.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}
