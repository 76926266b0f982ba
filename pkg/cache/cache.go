package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"playstv-recovery/pkg/utils"
)

// header is written when the cache file is first created. Comment lines and
// blank lines are ignored on load, so users can annotate or prune the file by
// hand to force re-downloads.
const header = `# playstv-recovery cache file. Video URLs on this list will not be re-downloaded.
# Freely delete this file or remove entries to re-download videos.
`

// Cache is a durable set of already-downloaded video page URLs backed by a
// line-oriented text file. Lookups hit only the in-memory set; Add appends to
// the file and flushes before the in-memory set is updated, so a crash can
// never record a download that was not persisted.
type Cache struct {
	path string
	file *os.File // Append handle held for the lifetime of the cache
	mu   sync.RWMutex
	urls map[string]struct{}
	log  *logrus.Entry
}

// New opens or creates the cache file at path and loads prior entries.
func New(path string, log *logrus.Entry) (*Cache, error) {
	c := &Cache{
		path: path,
		urls: make(map[string]struct{}),
		log:  log,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating cache directory: %w", utils.ErrCacheIO, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(header), 0644); err != nil {
			return nil, fmt.Errorf("%w: creating cache file: %w", utils.ErrCacheIO, err)
		}
		log.Infof("Created new cache file: %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("%w: statting cache file: %w", utils.ErrCacheIO, err)
	} else if err := c.load(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening cache file for append: %w", utils.ErrCacheIO, err)
	}
	c.file = file

	log.Debugf("Cache initialized with %d prior entries", len(c.urls))
	return c, nil
}

// load reads prior entries from the backing file. Comment lines, blank lines
// and duplicate entries are tolerated.
func (c *Cache) load() error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("%w: reading cache file: %w", utils.ErrCacheIO, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c.urls[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: scanning cache file: %w", utils.ErrCacheIO, err)
	}
	return nil
}

// Contains reports whether url is already recorded as downloaded.
func (c *Cache) Contains(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.urls[url]
	return ok
}

// Add records url as downloaded. Returns true if the entry is new, false if
// it was already present (no-op). The file append is flushed to disk before
// the in-memory set is updated.
func (c *Cache) Add(url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.urls[url]; ok {
		return false, nil
	}

	if _, err := fmt.Fprintf(c.file, "%s\n", url); err != nil {
		return false, fmt.Errorf("%w: appending cache entry: %w", utils.ErrCacheIO, err)
	}
	if err := c.file.Sync(); err != nil {
		return false, fmt.Errorf("%w: flushing cache entry: %w", utils.ErrCacheIO, err)
	}

	c.urls[url] = struct{}{}
	return true, nil
}

// Len returns the number of recorded entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.urls)
}

// Close releases the append handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
