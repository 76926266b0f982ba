package stats

import (
	"sync"
	"time"
)

// recentCapacity bounds the recent-completion feed; oldest entries drop off.
const recentCapacity = 5

// Event is one entry in the recent-activity feed.
type Event struct {
	Message string
	At      time.Time
}

// Snapshot is an immutable view of pipeline counters, safe to hand to any
// goroutine. `found >= completed+skipped+failed` holds for every snapshot;
// equality holds once the pipeline has drained.
type Snapshot struct {
	Total     int // Advisory count from the profile page; may differ from Found
	Found     int
	Completed int
	Skipped   int
	Failed    int
	Recent    []Event // Newest first
}

// Remaining returns the number of found items not yet accounted for.
func (s Snapshot) Remaining() int {
	r := s.Found - s.Completed - s.Skipped - s.Failed
	if r < 0 {
		return 0
	}
	return r
}

// Processed returns the number of items in a terminal state.
func (s Snapshot) Processed() int {
	return s.Completed + s.Skipped + s.Failed
}

// Tracker owns the pipeline counters. All mutation goes through the
// increment/set methods; concurrent readers take snapshots. An optional
// notify hook receives a snapshot after every mutation; it is invoked after
// the internal lock is released and must not block.
type Tracker struct {
	mu        sync.Mutex
	total     int
	found     int
	completed int
	skipped   int
	failed    int
	recent    []Event
	notify    func(Snapshot)
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetNotify registers the hook invoked after every counter mutation. Pass nil
// to unregister. Safe to call before the pipeline starts; not synchronized
// against concurrent mutation.
func (t *Tracker) SetNotify(fn func(Snapshot)) {
	t.notify = fn
}

// SetTotal records the advisory total reported by discovery.
func (t *Tracker) SetTotal(n int) {
	t.mutate(func() { t.total = n }, "")
}

// IncFound records one discovered item.
func (t *Tracker) IncFound() {
	t.mutate(func() { t.found++ }, "")
}

// IncCompleted records one successful download; name appears in the
// recent-activity feed.
func (t *Tracker) IncCompleted(name string) {
	t.mutate(func() { t.completed++ }, name)
}

// IncSkipped records one item skipped via the dedup cache.
func (t *Tracker) IncSkipped() {
	t.mutate(func() { t.skipped++ }, "")
}

// IncFailed records one failed item.
func (t *Tracker) IncFailed() {
	t.mutate(func() { t.failed++ }, "")
}

// Snapshot returns a consistent copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// mutate applies fn under the lock, optionally records a feed entry, then
// invokes the notify hook outside the critical section.
func (t *Tracker) mutate(fn func(), feedMsg string) {
	t.mu.Lock()
	fn()
	if feedMsg != "" {
		t.recent = append([]Event{{Message: feedMsg, At: time.Now()}}, t.recent...)
		if len(t.recent) > recentCapacity {
			t.recent = t.recent[:recentCapacity]
		}
	}
	snap := t.snapshotLocked()
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

func (t *Tracker) snapshotLocked() Snapshot {
	recent := make([]Event, len(t.recent))
	copy(recent, t.recent)
	return Snapshot{
		Total:     t.total,
		Found:     t.found,
		Completed: t.completed,
		Skipped:   t.skipped,
		Failed:    t.failed,
		Recent:    recent,
	}
}
