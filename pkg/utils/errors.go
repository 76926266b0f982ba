package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrDiscoveryFatal  = errors.New("discovery session unusable")         // Profile/count unreachable; aborts the run
	ErrExtraction      = errors.New("video source not found in page")     // Page fetched, no matching <source> element
	ErrRetryFailed     = errors.New("request failed after all retries")   // Wraps the last underlying error
	ErrClientHTTPError = errors.New("client HTTP error (4xx)")            // Wraps original error/status
	ErrServerHTTPError = errors.New("server HTTP error (5xx)")            // Wraps original error/status
	ErrOtherHTTPError  = errors.New("other HTTP error (non-2xx)")         // Wraps original error/status
	ErrCacheIO         = errors.New("cache file I/O error")               // Backing file unreadable/unwritable; fatal
	ErrGateTimeout     = errors.New("timeout acquiring concurrency gate")
	ErrRequestCreation = errors.New("failed to create HTTP request")
)

// IsRequestError reports whether err belongs to the network/HTTP failure
// family (any transport or status failure on a page fetch or media stream).
func IsRequestError(err error) bool {
	return errors.Is(err, ErrRetryFailed) ||
		errors.Is(err, ErrClientHTTPError) ||
		errors.Is(err, ErrServerHTTPError) ||
		errors.Is(err, ErrOtherHTTPError) ||
		errors.Is(err, ErrGateTimeout) ||
		errors.Is(err, ErrRequestCreation)
}

// CategorizeError maps an error to a predefined category string for logging and the final report.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrDiscoveryFatal):
		return "Discovery_Fatal"
	case errors.Is(err, ErrExtraction):
		return "Extraction_SourceNotFound"
	case errors.Is(err, ErrRetryFailed):
		if errors.Is(err, ErrServerHTTPError) {
			return "RetryFailed_HTTPServer"
		}
		if errors.Is(err, ErrClientHTTPError) {
			return "RetryFailed_HTTPClient"
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "RetryFailed_NetworkTimeout"
		}
		if err == ErrRetryFailed {
			return "RetryFailed_Unknown"
		}
		return "RetryFailed_NetworkOther"
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrCacheIO):
		if errors.Is(err, os.ErrPermission) {
			return "CacheIO_Permission"
		}
		return "CacheIO_Other"
	case errors.Is(err, ErrGateTimeout):
		return "Resource_GateTimeout"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}

	return "Unknown"
}
