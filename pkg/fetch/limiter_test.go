package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testEntry() *logrus.Entry {
	return logrus.NewEntry(testLogger())
}

func TestLimiter_BurstThenThrottle(t *testing.T) {
	l := NewLimiter(60, 2, testEntry()) // one token per second, burst of 2

	if !l.Allow() {
		t.Error("first request within burst should be allowed")
	}
	if !l.Allow() {
		t.Error("second request within burst should be allowed")
	}
	if l.Allow() {
		t.Error("third request should be throttled")
	}
}

func TestLimiter_WaitBlocksUntilToken(t *testing.T) {
	l := NewLimiter(6000, 1, testEntry()) // one token per 10ms

	ctx := context.Background()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first wait should succeed immediately: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("second wait should eventually succeed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("second wait returned too fast (%v), bucket not enforced", elapsed)
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := NewLimiter(1, 1, testEntry()) // one token per minute

	ctx := context.Background()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("burst token should be immediate: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(cancelled); err == nil {
		t.Error("wait should fail once the context deadline passes")
	}
}

func TestLimiter_InvalidRateDefaults(t *testing.T) {
	l := NewLimiter(0, 0, testEntry())
	if !l.Allow() {
		t.Error("limiter with defaulted rate should allow an initial request")
	}
}
