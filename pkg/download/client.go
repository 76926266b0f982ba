// Package download resolves a video page URL to its media source and streams
// the bytes to local storage under the shared rate budget.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"playstv-recovery/pkg/fetch"
	"playstv-recovery/pkg/utils"
)

// chunkSize is the copy buffer used when streaming media bytes to disk.
const chunkSize = 8192

// Client downloads one video per call. Each of the two network operations it
// performs (page fetch, media stream) independently acquires a gate permit
// and a rate limiter token.
type Client struct {
	fetcher    *fetch.Fetcher
	limiter    *fetch.Limiter
	gate       *fetch.Gate
	saveDir    string
	resolution string
	userAgent  string
	log        *logrus.Entry
}

// NewClient creates a download client writing into saveDir.
func NewClient(fetcher *fetch.Fetcher, limiter *fetch.Limiter, gate *fetch.Gate, saveDir, resolution, userAgent string, log *logrus.Entry) *Client {
	return &Client{
		fetcher:    fetcher,
		limiter:    limiter,
		gate:       gate,
		saveDir:    saveDir,
		resolution: resolution,
		userAgent:  userAgent,
		log:        log,
	}
}

// Download fetches the video page at pageURL, locates the media source at the
// configured resolution, streams it to disk and returns the stored path. The
// filename is derived deterministically from pageURL, so a repeat download of
// the same video always targets the same file.
func (c *Client) Download(ctx context.Context, pageURL string) (string, error) {
	path := filepath.Join(c.saveDir, Filename(pageURL))

	pageBody, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	mediaURL, err := extractSource(pageBody, c.resolution)
	if err != nil {
		return "", fmt.Errorf("%s: %w", pageURL, err)
	}

	if err := c.streamToFile(ctx, mediaURL, path); err != nil {
		return "", fmt.Errorf("%s: %w", pageURL, err)
	}
	return path, nil
}

// fetchPage retrieves the full video page HTML.
func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading page body for %s: %w", pageURL, err)
	}
	return body, nil
}

// streamToFile downloads mediaURL into path in fixed-size chunks. A partial
// file left by a failed stream is removed so a future run retries cleanly.
func (c *Client) streamToFile(ctx context.Context, mediaURL, path string) error {
	resp, err := c.get(ctx, mediaURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := io.CopyBuffer(f, resp.Body, make([]byte, chunkSize)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("streaming media to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing %s: %w", path, err)
	}

	c.log.WithField("path", path).Debug("Media stream saved")
	return nil
}

// get performs one rate-limited, gated GET. The gate permit is held for the
// duration of the caller's use of the response body, so it is released by a
// callback attached to the body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		c.gate.Release()
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		c.gate.Release()
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.fetcher.FetchWithRetry(ctx, req)
	if err != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		c.gate.Release()
		return nil, err
	}

	resp.Body = &gatedBody{ReadCloser: resp.Body, gate: c.gate}
	return resp, nil
}

// gatedBody releases the gate permit when the response body is closed.
type gatedBody struct {
	io.ReadCloser
	gate     *fetch.Gate
	released bool
}

func (b *gatedBody) Close() error {
	err := b.ReadCloser.Close()
	if !b.released {
		b.released = true
		b.gate.Release()
	}
	return err
}

// extractSource finds the media URL in the page HTML: the <source> element
// tagged with the desired res attribute. Protocol-relative sources are
// resolved to https.
func extractSource(pageHTML []byte, resolution string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(pageHTML)))
	if err != nil {
		return "", fmt.Errorf("parsing video page: %w", err)
	}

	src, ok := doc.Find(fmt.Sprintf(`source[res=%q]`, resolution)).First().Attr("src")
	if !ok || src == "" {
		return "", fmt.Errorf("%w (res=%s)", utils.ErrExtraction, resolution)
	}

	if strings.HasPrefix(src, "//") {
		return "https:" + src, nil
	}
	return src, nil
}

// Filename derives the stored filename from the video page URL's two trailing
// path segments. Deterministic so re-downloads always target the same file.
func Filename(pageURL string) string {
	trimmed := strings.TrimRight(pageURL, "/")
	parts := strings.Split(trimmed, "/")

	last := parts[len(parts)-1]
	second := ""
	if len(parts) >= 2 {
		second = parts[len(parts)-2]
	}

	name := utils.SanitizeFilename(fmt.Sprintf("%s_%s", last, second))
	return name + ".mp4"
}
