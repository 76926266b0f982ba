package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	cfg := &AppConfig{}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings, "empty config should produce default warnings")

	assert.Equal(t, DefaultProfileBaseURL, cfg.ProfileBaseURL)
	assert.Equal(t, DefaultWaybackPrefix, cfg.WaybackPrefix)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultCountSelector, cfg.CountSelector)
	assert.Equal(t, DefaultLinkSelector, cfg.LinkSelector)
	assert.Equal(t, 50, cfg.MaxScrollAttempts)
	assert.Equal(t, 10, cfg.MaxFailAttempts)
	assert.Equal(t, 20, cfg.NumWorkers)
	assert.Equal(t, 14, cfg.RequestsPerMinute)
	assert.Equal(t, 14, cfg.RateBurst)
	assert.Equal(t, 10, cfg.MaxConcurrent)
	assert.Equal(t, "720", cfg.Resolution)
	assert.Equal(t, "./plays-tv-videos", cfg.SaveDir)
	assert.Equal(t, "cache", cfg.CacheFilename)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 4*time.Second, cfg.ScrollSettle)
}

func TestValidate_PreservesExplicitValues(t *testing.T) {
	cfg := &AppConfig{
		NumWorkers:        4,
		RequestsPerMinute: 30,
		MaxConcurrent:     2,
		Resolution:        "480",
		SaveDir:           "/tmp/videos",
		MaxScrollAttempts: 5,
		MaxFailAttempts:   2,
	}
	_, err := cfg.Validate()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.NumWorkers)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
	assert.Equal(t, 30, cfg.RateBurst, "burst defaults to the per-minute rate")
	assert.Equal(t, 2, cfg.MaxConcurrent)
	assert.Equal(t, "480", cfg.Resolution)
	assert.Equal(t, "/tmp/videos", cfg.SaveDir)
	assert.Equal(t, 5, cfg.MaxScrollAttempts)
	assert.Equal(t, 2, cfg.MaxFailAttempts)
}

func TestValidate_RetryDelays(t *testing.T) {
	t.Run("defaults applied when retries enabled", func(t *testing.T) {
		cfg := &AppConfig{MaxRetries: 2}
		_, err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, 1*time.Second, cfg.InitialRetryDelay)
		assert.Equal(t, 30*time.Second, cfg.MaxRetryDelay)
	})

	t.Run("initial capped at max", func(t *testing.T) {
		cfg := &AppConfig{
			MaxRetries:        2,
			InitialRetryDelay: time.Minute,
			MaxRetryDelay:     10 * time.Second,
		}
		warnings, err := cfg.Validate()
		require.NoError(t, err)
		assert.NotEmpty(t, warnings)
		assert.Equal(t, 10*time.Second, cfg.InitialRetryDelay)
	})

	t.Run("negative retries reset", func(t *testing.T) {
		cfg := &AppConfig{MaxRetries: -1}
		warnings, err := cfg.Validate()
		require.NoError(t, err)
		assert.NotEmpty(t, warnings)
		assert.GreaterOrEqual(t, cfg.MaxRetries, 0)
	})
}

func TestValidate_HTTPClientDefaults(t *testing.T) {
	cfg := &AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)

	h := cfg.HTTPClientSettings
	assert.Equal(t, 300*time.Second, h.Timeout)
	assert.Equal(t, 100, h.MaxIdleConns)
	assert.Equal(t, 10, h.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, h.IdleConnTimeout)
	assert.Equal(t, 30*time.Second, h.DialerTimeout)
}
