package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playstv-recovery/pkg/config"
	"playstv-recovery/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// fakeSession simulates a lazily rendered listing: each FindLinks call
// returns the next render state, repeating the last one forever.
type fakeSession struct {
	openErr   error
	countText string
	countErr  error
	renders   [][]string

	opened    []string
	scrolls   int
	linkCalls int
}

func (f *fakeSession) Open(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return f.openErr
}

func (f *fakeSession) ScrollToBottom(context.Context) error {
	f.scrolls++
	return nil
}

func (f *fakeSession) ReadText(context.Context, string) (string, error) {
	return f.countText, f.countErr
}

func (f *fakeSession) FindLinks(context.Context, string) ([]string, error) {
	idx := f.linkCalls
	f.linkCalls++
	if idx >= len(f.renders) {
		idx = len(f.renders) - 1
	}
	if idx < 0 {
		return nil, nil
	}
	return f.renders[idx], nil
}

func (f *fakeSession) Close() error { return nil }

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		ProfileBaseURL:    "https://archive.test/u/",
		WaybackPrefix:     "https://archive.test/web/",
		CountSelector:     ".count",
		LinkSelector:      "a.title",
		ScrollSettle:      time.Millisecond,
		MaxScrollAttempts: 50,
		MaxFailAttempts:   10,
	}
}

// collect runs Scrape to completion and returns the emitted events.
func collect(t *testing.T, session *fakeSession, cfg *config.AppConfig) ([]Event, error) {
	t.Helper()
	s := NewScraper(session, cfg, testLogger())
	events := make(chan Event, 256)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Scrape(context.Background(), "alice", events)
		close(events)
	}()

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	return got, <-errCh
}

func links(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://plays.test/video/vid%02d/title", i)
	}
	return out
}

func urlsOf(events []Event) []string {
	var urls []string
	for _, ev := range events {
		if v, ok := ev.(VideoFound); ok {
			urls = append(urls, v.URL)
		}
	}
	return urls
}

func TestScrape_TargetReached(t *testing.T) {
	session := &fakeSession{countText: "5", renders: [][]string{links(5)}}

	events, err := collect(t, session, testConfig())
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, TotalFound{Count: 5}, events[0], "advisory total emitted first")
	assert.Len(t, urlsOf(events), 5)
	assert.Equal(t, 1, session.scrolls, "should stop as soon as the target is reached")
}

func TestScrape_Stagnation(t *testing.T) {
	cfg := testConfig()
	// 12 unique videos render and then the listing never changes; advisory
	// total claims 20.
	session := &fakeSession{countText: "20", renders: [][]string{links(12)}}

	events, err := collect(t, session, cfg)
	require.NoError(t, err)

	assert.Equal(t, TotalFound{Count: 20}, events[0])
	assert.Len(t, urlsOf(events), 12)
	// One productive scroll plus max_fail_attempts zero-yield scrolls.
	assert.Equal(t, 1+cfg.MaxFailAttempts, session.scrolls)
	assert.Less(t, session.scrolls, cfg.MaxScrollAttempts)
}

func TestScrape_IncrementalRenders(t *testing.T) {
	session := &fakeSession{
		countText: "6",
		renders: [][]string{
			links(2),
			links(4), // supersets: previously rendered links remain in the DOM
			links(6),
		},
	}

	events, err := collect(t, session, testConfig())
	require.NoError(t, err)

	urls := urlsOf(events)
	require.Len(t, urls, 6, "each video reported exactly once")
	// Emission preserves rendered order.
	for i, u := range urls {
		assert.Contains(t, u, fmt.Sprintf("vid%02d", i))
	}
}

func TestScrape_NormalizesIdentifiers(t *testing.T) {
	session := &fakeSession{
		countText: "1",
		renders:   [][]string{{"https://plays.test/video/abc/title?utm=1"}},
	}

	events, err := collect(t, session, testConfig())
	require.NoError(t, err)

	urls := urlsOf(events)
	require.Len(t, urls, 1)
	assert.Equal(t, "https://archive.test/web/https://plays.test/video/abc/title", urls[0],
		"query stripped and wayback prefix applied")
}

func TestScrape_UnparsableCountIsNotFatal(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFailAttempts = 2
	session := &fakeSession{countText: "videos", renders: [][]string{links(3)}}

	events, err := collect(t, session, cfg)
	require.NoError(t, err)

	assert.Equal(t, TotalFound{Count: 0}, events[0])
	assert.Len(t, urlsOf(events), 3)
	// With an unknown total only stagnation can stop the loop.
	assert.Equal(t, 1+cfg.MaxFailAttempts, session.scrolls)
}

func TestScrape_FatalErrors(t *testing.T) {
	t.Run("profile page unreachable", func(t *testing.T) {
		session := &fakeSession{openErr: errors.New("net::ERR_CONNECTION_REFUSED")}

		_, err := collect(t, session, testConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrDiscoveryFatal)
	})

	t.Run("count element unreadable", func(t *testing.T) {
		session := &fakeSession{countErr: errors.New("node not found")}

		_, err := collect(t, session, testConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrDiscoveryFatal)
	})
}

func TestScrape_OpensProfileURL(t *testing.T) {
	session := &fakeSession{countText: "0", renders: nil}
	cfg := testConfig()
	cfg.MaxFailAttempts = 1

	_, err := collect(t, session, cfg)
	require.NoError(t, err)
	require.Len(t, session.opened, 1)
	assert.Equal(t, "https://archive.test/u/alice", session.opened[0])
}
