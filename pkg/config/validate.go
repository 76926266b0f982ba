package config

import (
	"fmt"
	"time"
)

// Defaults matching the plays.tv snapshot on the Wayback Machine.
const (
	DefaultProfileBaseURL = "https://web.archive.org/web/20191210043532/https://plays.tv/u/"
	DefaultWaybackPrefix  = "https://web.archive.org/web/"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultCountSelector = ".nav-tab-label span"
	DefaultLinkSelector  = ".bd .video-list-container a.title"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.ProfileBaseURL == "" {
		c.ProfileBaseURL = DefaultProfileBaseURL
	}
	if c.WaybackPrefix == "" {
		c.WaybackPrefix = DefaultWaybackPrefix
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.CountSelector == "" {
		c.CountSelector = DefaultCountSelector
	}
	if c.LinkSelector == "" {
		c.LinkSelector = DefaultLinkSelector
	}

	// ScrollSettle
	if c.ScrollSettle <= 0 {
		c.ScrollSettle = 4 * time.Second
	}

	// MaxScrollAttempts
	if c.MaxScrollAttempts <= 0 {
		warnings = append(warnings, "max_scroll_attempts should be > 0, defaulting to 50")
		c.MaxScrollAttempts = 50
	}

	// MaxFailAttempts
	if c.MaxFailAttempts <= 0 {
		warnings = append(warnings, "max_fail_attempts should be > 0, defaulting to 10")
		c.MaxFailAttempts = 10
	}

	// NumWorkers
	if c.NumWorkers <= 0 {
		warnings = append(warnings, "num_workers should be > 0, defaulting to 20")
		c.NumWorkers = 20
	}

	// RequestsPerMinute: the Wayback Machine throttles aggressively, keep the
	// default well under its observed tolerance.
	if c.RequestsPerMinute <= 0 {
		warnings = append(warnings, "requests_per_minute should be > 0, defaulting to 14")
		c.RequestsPerMinute = 14
	}
	if c.RateBurst <= 0 {
		c.RateBurst = c.RequestsPerMinute
	}

	// MaxConcurrent
	if c.MaxConcurrent <= 0 {
		warnings = append(warnings, "max_concurrent should be > 0, defaulting to 10")
		c.MaxConcurrent = 10
	}

	// GateAcquireTimeout: 0 means wait indefinitely (workers legitimately
	// queue behind the rate budget for long stretches)
	if c.GateAcquireTimeout < 0 {
		warnings = append(warnings, "gate_acquire_timeout cannot be negative, disabling timeout")
		c.GateAcquireTimeout = 0
	}

	if c.Resolution == "" {
		c.Resolution = "720"
	}

	if c.SaveDir == "" {
		warnings = append(warnings, "save_dir is empty, defaulting to './plays-tv-videos'")
		c.SaveDir = "./plays-tv-videos"
	}
	if c.CacheFilename == "" {
		c.CacheFilename = "cache"
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}

	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		// Media streams from the archive are slow; allow a generous total budget
		h.Timeout = 300 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 10
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 30 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
