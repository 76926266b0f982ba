package cache

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache")
	c, err := New(path, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, path
}

func TestNew(t *testing.T) {
	t.Run("creates file with header", func(t *testing.T) {
		_, path := newTestCache(t)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "#"), "new cache file should start with a comment header")
	})

	t.Run("creates missing parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "cache")
		c, err := New(path, testLogger())
		require.NoError(t, err)
		defer c.Close()

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("loads prior entries skipping comments and blanks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache")
		content := "# header line\n\nhttps://example.com/v/abc\n  \nhttps://example.com/v/def\n# trailing comment\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		c, err := New(path, testLogger())
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, 2, c.Len())
		assert.True(t, c.Contains("https://example.com/v/abc"))
		assert.True(t, c.Contains("https://example.com/v/def"))
		assert.False(t, c.Contains("https://example.com/v/ghi"))
	})

	t.Run("duplicate lines deduplicated on load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache")
		content := "https://example.com/v/abc\nhttps://example.com/v/abc\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		c, err := New(path, testLogger())
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, 1, c.Len())
	})
}

func TestAdd(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		c, path := newTestCache(t)

		added, err := c.Add("https://example.com/v/abc")
		require.NoError(t, err)
		assert.True(t, added, "first add should report newly added")

		added, err = c.Add("https://example.com/v/abc")
		require.NoError(t, err)
		assert.False(t, added, "second add should be a no-op")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "https://example.com/v/abc"),
			"exactly one line should be written")
	})

	t.Run("durable before in-memory commit", func(t *testing.T) {
		c, path := newTestCache(t)

		_, err := c.Add("https://example.com/v/abc")
		require.NoError(t, err)

		// The entry must already be on disk, not just in memory.
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "https://example.com/v/abc\n")
	})

	t.Run("entries survive reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache")
		c1, err := New(path, testLogger())
		require.NoError(t, err)
		_, err = c1.Add("https://example.com/v/abc")
		require.NoError(t, err)
		require.NoError(t, c1.Close())

		c2, err := New(path, testLogger())
		require.NoError(t, err)
		defer c2.Close()
		assert.True(t, c2.Contains("https://example.com/v/abc"))
	})

	t.Run("concurrent adds record each entry once", func(t *testing.T) {
		c, path := newTestCache(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.Add("https://example.com/v/shared")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "https://example.com/v/shared"))
	})
}
