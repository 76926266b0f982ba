// Package report renders stats snapshots to the terminal: a live progress
// panel during the run and a final summary distinguishing under-discovery
// from download failures.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"playstv-recovery/pkg/stats"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Width(22)
	totalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	foundStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// Banner prints the startup banner.
func Banner(out io.Writer, version string) {
	banner := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14")).
		Bold(true).
		Render("PlaysTV Recovery") +
		dimStyle.Render(" v"+version+" - Wayback Machine video recovery")
	fmt.Fprintln(out, banner)
}

// Reporter writes snapshot renderings to out. Update is safe to call from
// any goroutine and never blocks on anything but the write itself.
type Reporter struct {
	out       io.Writer
	live      bool // Rewrite the panel in place on each update
	mu        sync.Mutex
	lastLines int
}

// NewReporter creates a Reporter. live enables in-place panel redraws and
// should be off when out is not a terminal.
func NewReporter(out io.Writer, live bool) *Reporter {
	return &Reporter{out: out, live: live}
}

// Update renders the current progress panel. Registered as the stats
// tracker's notify hook.
func (r *Reporter) Update(s stats.Snapshot) {
	if !r.live {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	panel := r.renderPanel(s)
	if r.lastLines > 0 {
		// Move the cursor back over the previous panel and clear it.
		fmt.Fprintf(r.out, "\x1b[%dA\x1b[J", r.lastLines)
	}
	fmt.Fprintln(r.out, panel)
	r.lastLines = strings.Count(panel, "\n") + 2
}

// renderPanel builds the progress panel for one snapshot.
func (r *Reporter) renderPanel(s stats.Snapshot) string {
	totalLabel := "~"
	if s.Total > 0 {
		totalLabel = fmt.Sprintf("%d", s.Total)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Download Progress") + "\n")
	b.WriteString(row("Listed video count:", totalStyle.Render(totalLabel)))
	b.WriteString(row("Videos found:", foundStyle.Render(fmt.Sprintf("%d", s.Found))))
	b.WriteString(row("Downloads completed:", okStyle.Render(fmt.Sprintf("%d", s.Completed))))
	b.WriteString(row("Downloads skipped:", dimStyle.Render(fmt.Sprintf("%d", s.Skipped))))
	b.WriteString(row("Downloads failed:", failStyle.Render(fmt.Sprintf("%d", s.Failed))))
	b.WriteString(row("Downloads remaining:", pendingStyle.Render(fmt.Sprintf("%d", s.Remaining()))))

	if len(s.Recent) > 0 {
		b.WriteString(titleStyle.Render("Recent downloads:") + "\n")
		for _, ev := range s.Recent {
			b.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render(ev.At.Format("15:04:05")), ev.Message))
		}
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Final prints the end-of-run summary. The three outcomes need different
// remediation, so they are called out separately: under-discovery (re-run or
// investigate the listing), download failures (investigate network), and a
// clean drain.
func (r *Reporter) Final(s stats.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Download Summary") + "\n")
	b.WriteString(row("Total videos listed:", fmt.Sprintf("%d", s.Total)))
	b.WriteString(row("Videos found:", fmt.Sprintf("%d", s.Found)))
	b.WriteString(row("Downloaded:", okStyle.Render(fmt.Sprintf("%d", s.Completed))))
	b.WriteString(row("Skipped (cached):", dimStyle.Render(fmt.Sprintf("%d", s.Skipped))))
	b.WriteString(row("Failed:", failStyle.Render(fmt.Sprintf("%d", s.Failed))))
	b.WriteString("\n")

	if s.Total > 0 && s.Found < s.Total {
		missing := s.Total - s.Found
		b.WriteString(warnStyle.Render(fmt.Sprintf(
			"⚠ Warning: only %d/%d listed videos were discovered (%d missing).",
			s.Found, s.Total, missing)) + "\n")
		b.WriteString(dimStyle.Render("  Some videos may not have been rendered by the archived listing.") + "\n")
	}

	switch {
	case s.Failed == 0 && s.Processed() == s.Found && s.Completed == s.Found:
		b.WriteString(okStyle.Render(fmt.Sprintf("✓ Complete: all %d videos downloaded successfully.", s.Found)) + "\n")
	case s.Failed == 0 && s.Processed() == s.Found:
		b.WriteString(okStyle.Render(fmt.Sprintf(
			"✓ Complete: all %d videos processed (%d downloaded, %d already cached).",
			s.Found, s.Completed, s.Skipped)) + "\n")
	case s.Failed > 0:
		rate := 0.0
		if s.Found > 0 {
			rate = float64(s.Completed) / float64(s.Found) * 100
		}
		b.WriteString(failStyle.Render(fmt.Sprintf(
			"✗ Incomplete: %d download(s) failed. Success rate: %.1f%%. Re-run to retry failed videos.",
			s.Failed, rate)) + "\n")
	}

	fmt.Fprintln(r.out, panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}
