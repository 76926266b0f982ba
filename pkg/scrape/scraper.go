// Package scrape drives the archived profile listing and incrementally
// discovers video page URLs. Infinite-scroll listings give no reliable end
// signal, so the loop stops either when the advisory total is reached or
// after a sustained run of scrolls that surface nothing new.
package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"playstv-recovery/pkg/browse"
	"playstv-recovery/pkg/config"
	"playstv-recovery/pkg/utils"
)

// Event is one discovery observation, either a TotalFound or a VideoFound.
type Event interface {
	event()
}

// TotalFound reports the advisory item count read from the profile header.
// Emitted at most once, before any VideoFound. The count is a best-effort
// estimate, not an upper bound.
type TotalFound struct {
	Count int
}

// VideoFound reports one newly discovered video page URL, in rendered order.
type VideoFound struct {
	URL string
}

func (TotalFound) event() {}
func (VideoFound) event() {}

// Scraper walks an archived profile's video listing through a browse.Session.
type Scraper struct {
	session        browse.Session
	profileBaseURL string
	waybackPrefix  string
	countSelector  string
	linkSelector   string
	settle         time.Duration
	maxScroll      int
	maxFail        int
	log            *logrus.Entry
}

// NewScraper creates a Scraper bound to a browsing session.
func NewScraper(session browse.Session, cfg *config.AppConfig, log *logrus.Entry) *Scraper {
	return &Scraper{
		session:        session,
		profileBaseURL: cfg.ProfileBaseURL,
		waybackPrefix:  cfg.WaybackPrefix,
		countSelector:  cfg.CountSelector,
		linkSelector:   cfg.LinkSelector,
		settle:         cfg.ScrollSettle,
		maxScroll:      cfg.MaxScrollAttempts,
		maxFail:        cfg.MaxFailAttempts,
		log:            log,
	}
}

// Scrape discovers video page URLs for profile, sending events on the
// provided channel in emission order. It returns once discovery is complete
// or a fatal session error occurs; the caller owns closing the channel.
//
// Stopping rules: the advisory total has been reached (when > 0), the
// consecutive zero-yield scroll count reaches the configured limit, or the
// hard scroll cap is exhausted.
func (s *Scraper) Scrape(ctx context.Context, profile string, events chan<- Event) error {
	profileURL := s.profileBaseURL + profile
	scrapeLog := s.log.WithField("profile", profile)

	if err := s.session.Open(ctx, profileURL); err != nil {
		return fmt.Errorf("%w: opening profile page: %w", utils.ErrDiscoveryFatal, err)
	}

	total, err := s.readAdvisoryTotal(ctx, scrapeLog)
	if err != nil {
		return err
	}
	if !send(ctx, events, TotalFound{Count: total}) {
		return ctx.Err()
	}

	seen := make(map[string]struct{})
	consecutiveFails := 0

	for attempt := 1; attempt <= s.maxScroll; attempt++ {
		if err := s.session.ScrollToBottom(ctx); err != nil {
			return fmt.Errorf("%w: scrolling listing: %w", utils.ErrDiscoveryFatal, err)
		}

		// The webdriver already waited for the initial page load; only later
		// scrolls need a settle interval for lazy rendering.
		if attempt > 1 {
			select {
			case <-time.After(s.settle):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		hrefs, err := s.session.FindLinks(ctx, s.linkSelector)
		if err != nil {
			return fmt.Errorf("%w: reading rendered links: %w", utils.ErrDiscoveryFatal, err)
		}

		newCount := 0
		for _, href := range hrefs {
			id := s.normalize(href)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			newCount++
			if !send(ctx, events, VideoFound{URL: id}) {
				return ctx.Err()
			}
		}

		if newCount > 0 {
			consecutiveFails = 0
		} else {
			consecutiveFails++
		}

		scrapeLog.WithFields(logrus.Fields{
			"attempt": attempt, "new": newCount, "seen": len(seen), "stagnant": consecutiveFails,
		}).Debug("Scroll iteration complete")

		if total > 0 && len(seen) >= total {
			scrapeLog.Infof("Discovery reached advisory total (%d)", total)
			break
		}
		if consecutiveFails >= s.maxFail {
			scrapeLog.Warnf("Discovery stopping after %d scrolls with no new videos (%d found)",
				consecutiveFails, len(seen))
			break
		}
	}

	scrapeLog.Infof("Discovery finished: %d videos found (advisory total %d)", len(seen), total)
	return nil
}

// readAdvisoryTotal reads the profile's claimed video count. A missing count
// element means the page did not render and is fatal; unparseable text is
// treated as an unknown total, leaving stagnation as the only stopping rule.
func (s *Scraper) readAdvisoryTotal(ctx context.Context, log *logrus.Entry) (int, error) {
	text, err := s.session.ReadText(ctx, s.countSelector)
	if err != nil {
		return 0, fmt.Errorf("%w: reading video count: %w", utils.ErrDiscoveryFatal, err)
	}

	total, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		log.Warnf("Could not parse advisory video count %q, treating as unknown", text)
		return 0, nil
	}
	return total, nil
}

// normalize strips query parameters from a rendered href and pins it under
// the wayback prefix, yielding the stable item identifier for the video.
func (s *Scraper) normalize(href string) string {
	trimmed, _, _ := strings.Cut(href, "?")
	if trimmed == "" {
		return ""
	}
	return s.waybackPrefix + trimmed
}

// send delivers ev unless ctx is cancelled first.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
