package browse

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeSession implements Session on a headless (or visible) Chrome
// instance driven over the DevTools protocol.
type ChromeSession struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *logrus.Entry
}

// NewChromeSession launches a browser. The parent context bounds the whole
// session lifetime; cancelling it kills the browser.
func NewChromeSession(parent context.Context, userAgent string, headless bool, log *logrus.Entry) *ChromeSession {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.UserAgent(userAgent),
		chromedp.DisableGPU,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	log.WithField("headless", headless).Debug("Browser session allocated")
	return &ChromeSession{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		log:         log,
	}
}

// Open navigates to url and waits until the body is ready.
func (s *ChromeSession) Open(ctx context.Context, url string) error {
	s.log.WithField("url", url).Debug("Navigating")
	if err := s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// ScrollToBottom scrolls the window to the document's full height.
func (s *ChromeSession) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

// ReadText returns the text of the first element matching selector.
func (s *ChromeSession) ReadText(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading text of %q: %w", selector, err)
	}
	return text, nil
}

// FindLinks collects hrefs of all elements matching selector, in DOM order.
func (s *ChromeSession) FindLinks(ctx context.Context, selector string) ([]string, error) {
	var hrefs []string
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(a => a.href).filter(h => h)`, selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &hrefs)); err != nil {
		return nil, fmt.Errorf("collecting links for %q: %w", selector, err)
	}
	return hrefs, nil
}

// Close shuts the browser down.
func (s *ChromeSession) Close() error {
	s.cancelCtx()
	s.cancelAlloc()
	return nil
}

// run executes actions against the browser, honoring the caller's context as
// well as the session's own.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
