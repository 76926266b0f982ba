// Package pipeline bridges discovery output into a pool of download workers
// and accounts for every discovered item exactly once.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"playstv-recovery/pkg/cache"
	"playstv-recovery/pkg/scrape"
	"playstv-recovery/pkg/stats"
	"playstv-recovery/pkg/utils"
)

// itemQueueSize buffers discovered URLs between the producer and the workers.
const itemQueueSize = 100

// Discoverer produces discovery events for a profile. Implemented by
// scrape.Scraper; tests substitute fakes.
type Discoverer interface {
	Scrape(ctx context.Context, profile string, events chan<- scrape.Event) error
}

// Downloader fetches one item to local storage. Implemented by
// download.Client.
type Downloader interface {
	Download(ctx context.Context, pageURL string) (string, error)
}

// Coordinator wires discovery, the dedup cache, the download client and the
// stats tracker into one run.
type Coordinator struct {
	discoverer Discoverer
	downloader Downloader
	cache      *cache.Cache
	stats      *stats.Tracker
	numWorkers int
	log        *logrus.Entry

	fatalOnce sync.Once
	fatalErr  error
	cancelRun context.CancelFunc
}

// NewCoordinator creates a Coordinator with a fixed worker count.
func NewCoordinator(d Discoverer, dl Downloader, c *cache.Cache, t *stats.Tracker, numWorkers int, log *logrus.Entry) *Coordinator {
	if numWorkers <= 0 {
		numWorkers = 20
	}
	return &Coordinator{
		discoverer: d,
		downloader: dl,
		cache:      c,
		stats:      t,
		numWorkers: numWorkers,
		log:        log,
	}
}

// Run executes the full discovery-to-download pipeline for profile and blocks
// until it drains. Per-item failures are absorbed into the stats; the
// returned error is non-nil only for fatal conditions (unusable discovery
// session, cache I/O failure, cancellation).
//
// Discovery runs on its own goroutine since it blocks on the browser; each
// event crosses to the producer loop through a channel, preserving emission
// order. Workers observe end-of-input through the closed items channel, which
// every worker sees exactly once.
func (p *Coordinator) Run(ctx context.Context, profile string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.cancelRun = cancel

	events := make(chan scrape.Event, 64)
	discoveryErr := make(chan error, 1)
	go func() {
		discoveryErr <- p.discoverer.Scrape(runCtx, profile, events)
		close(events)
	}()

	items := make(chan string, itemQueueSize)
	var wg sync.WaitGroup
	p.log.Infof("Starting %d download workers", p.numWorkers)
	for i := 1; i <= p.numWorkers; i++ {
		wg.Add(1)
		workerLog := p.log.WithField("worker_id", i)
		go func() {
			defer wg.Done()
			p.worker(runCtx, items, workerLog)
		}()
	}

	// Producer: drain discovery events into the queue. Every ItemFound is
	// counted before it is enqueued so found >= completed+skipped+failed
	// holds at every instant.
	for ev := range events {
		switch e := ev.(type) {
		case scrape.TotalFound:
			p.stats.SetTotal(e.Count)
		case scrape.VideoFound:
			p.stats.IncFound()
			select {
			case items <- e.URL:
			case <-runCtx.Done():
				// Workers are winding down; account for the item as failed
				// rather than letting it vanish.
				p.stats.IncFailed()
			}
		}
	}
	close(items)
	wg.Wait()

	if err := <-discoveryErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if p.fatalErr != nil {
		return p.fatalErr
	}
	return ctx.Err()
}

// worker consumes items until the queue closes, mapping each to exactly one
// terminal state: skipped, completed or failed.
func (p *Coordinator) worker(ctx context.Context, items <-chan string, log *logrus.Entry) {
	log.Debug("Worker starting")
	defer log.Debug("Worker finished")

	for url := range items {
		p.processItem(ctx, url, log)
	}
}

// processItem runs one item through cache check, download and cache record.
func (p *Coordinator) processItem(ctx context.Context, url string, log *logrus.Entry) {
	itemLog := log.WithField("url", url)

	if p.cache.Contains(url) {
		itemLog.Debug("Already downloaded, skipping")
		p.stats.IncSkipped()
		return
	}

	path, err := p.downloader.Download(ctx, url)
	if err != nil {
		itemLog.WithField("category", utils.CategorizeError(err)).Warnf("Download failed: %v", err)
		p.stats.IncFailed()
		return
	}

	// Record before reporting completion: an identifier in the cache must
	// mean its download finished.
	if _, err := p.cache.Add(url); err != nil {
		// Dedup correctness is gone without the cache file; abort the run.
		itemLog.Errorf("Cache write failed, aborting run: %v", err)
		p.setFatal(err)
		p.stats.IncFailed()
		return
	}

	p.stats.IncCompleted(filepath.Base(path))
	itemLog.WithField("path", path).Info("Download complete")
}

// setFatal records the first fatal error and cancels the run.
func (p *Coordinator) setFatal(err error) {
	p.fatalOnce.Do(func() {
		p.fatalErr = err
		if p.cancelRun != nil {
			p.cancelRun()
		}
	})
}
