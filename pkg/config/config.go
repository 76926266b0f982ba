package config

import "time"

// AppConfig holds the global application configuration
type AppConfig struct {
	// Archive / profile addressing
	ProfileBaseURL string `yaml:"profile_base_url,omitempty"` // Archived profile listing base; profile name is appended
	WaybackPrefix  string `yaml:"wayback_prefix,omitempty"`   // Prefix applied to discovered video page URLs
	UserAgent      string `yaml:"user_agent,omitempty"`       // Sent by both the browser session and HTTP requests

	// Discovery
	CountSelector     string        `yaml:"count_selector,omitempty"`      // Element holding the advisory video count
	LinkSelector      string        `yaml:"link_selector,omitempty"`       // Anchor elements naming video pages
	ScrollSettle      time.Duration `yaml:"scroll_settle,omitempty"`       // Wait after each scroll for lazy rendering
	MaxScrollAttempts int           `yaml:"max_scroll_attempts,omitempty"` // Hard bound on scroll iterations
	MaxFailAttempts   int           `yaml:"max_fail_attempts,omitempty"`   // Consecutive zero-yield scrolls before stopping

	// Download pipeline
	NumWorkers         int           `yaml:"num_workers,omitempty"`
	RequestsPerMinute  int           `yaml:"requests_per_minute,omitempty"` // Shared token-bucket budget across all workers
	RateBurst          int           `yaml:"rate_burst,omitempty"`
	MaxConcurrent      int           `yaml:"max_concurrent,omitempty"` // Simultaneous in-flight network operations
	GateAcquireTimeout time.Duration `yaml:"gate_acquire_timeout,omitempty"`
	Resolution         string        `yaml:"resolution,omitempty"` // Desired res attribute on the video source element

	// Storage
	SaveDir       string `yaml:"save_dir,omitempty"`       // Base directory; per-profile subdirectory created under it
	CacheFilename string `yaml:"cache_filename,omitempty"` // Dedup cache file, relative to save_dir unless absolute

	// HTTP retry policy
	MaxRetries        int           `yaml:"max_retries,omitempty"`
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay,omitempty"`

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"` // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}
