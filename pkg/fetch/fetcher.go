package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"playstv-recovery/pkg/config"
	"playstv-recovery/pkg/utils"
)

// Fetcher performs HTTP requests with retry, exponential backoff and jitter.
// Transient failures (network errors, 5xx, 429) are retried; other 4xx fail
// immediately.
type Fetcher struct {
	client *http.Client
	cfg    *config.AppConfig
	log    *logrus.Logger
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// FetchWithRetry issues req, retrying per the configured policy. On a 2xx
// response it returns the response with an open body the caller must close.
// On a non-retryable 4xx the response is also returned (body open) alongside
// the wrapped error.
func (f *Fetcher) FetchWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	var resp *http.Response

	reqLog := f.log.WithField("url", req.URL.String())

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoffDelay(attempt)
			reqLog.WithFields(logrus.Fields{
				"attempt": attempt, "max_retries": f.cfg.MaxRetries, "delay": delay,
			}).Warn("Retrying request...")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				if lastErr != nil {
					return nil, fmt.Errorf("context cancelled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
				}
				return nil, fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
			}
		}

		resp, lastErr = f.client.Do(req.WithContext(ctx))

		// Network-level errors (DNS, TCP, TLS, timeouts)
		if lastErr != nil {
			if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
				drainAndClose(resp)
				return nil, lastErr
			}
			reqLog.WithField("attempt", attempt).Warnf("Network error: %v", lastErr)
			drainAndClose(resp)
			continue
		}

		statusCode := resp.StatusCode
		resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "attempt": attempt})

		switch {
		case statusCode >= 200 && statusCode < 300:
			resLog.Debug("Fetched successfully")
			return resp, nil

		case statusCode >= 500:
			resLog.Warn("Server error, retrying...")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, resp.Status)
			drainAndClose(resp)
			continue

		case statusCode == http.StatusTooManyRequests:
			resLog.Warn("Received 429 Too Many Requests, retrying...")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)
			drainAndClose(resp)
			continue

		case statusCode >= 400 && statusCode < 500:
			resLog.Warn("Client error (4xx), not retrying")
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)

		default:
			resLog.Warnf("Non-retryable/unexpected status: %d", statusCode)
			return resp, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, resp.Status)
		}
	}

	reqLog.Errorf("All %d fetch attempts failed. Last error: %v", f.cfg.MaxRetries+1, lastErr)
	drainAndClose(resp)

	if lastErr != nil {
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
	}
	return nil, utils.ErrRetryFailed
}

// backoffDelay returns the delay before the given retry attempt:
// initial * 2^(attempt-1), capped at max, with +/-10% jitter.
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	backoff := float64(f.cfg.InitialRetryDelay) * math.Pow(2, float64(attempt-1))
	delay := time.Duration(backoff)
	if delay <= 0 || delay > f.cfg.MaxRetryDelay {
		delay = f.cfg.MaxRetryDelay
	}

	var jitter time.Duration
	if delay > 0 {
		jitter = time.Duration(rand.Int63n(int64(delay)/5)) - (delay / 10)
	}
	final := delay + jitter
	if final < 0 {
		final = 0
	}
	return final
}

// drainAndClose discards any remaining body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
