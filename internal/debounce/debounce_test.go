package debounce

import (
	"testing"
	"time"

	"quill/internal/queue"
)

func newTestManager(t *testing.T) (*Manager, *queue.JobQueue, *queue.InFlightSet, *time.Time) {
	t.Helper()
	jobs := queue.NewJobQueue()
	inFlight := queue.NewInFlightSet(0)
	m := NewManager(15*time.Second, time.Second, jobs, inFlight, nil)
	now := time.Date(2025, 3, 14, 7, 45, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, jobs, inFlight, &now
}

func TestScheduleCoalescesEdits(t *testing.T) {
	m, jobs, _, now := newTestManager(t)

	m.Schedule("/knowledge/a.md", queue.KindSyncUpdate)
	*now = now.Add(10 * time.Second)
	m.Schedule("/knowledge/a.md", queue.KindSyncUpdate)

	// The first deadline has passed, but the second edit pushed it forward.
	*now = now.Add(6 * time.Second)
	m.fireDue()
	if jobs.Len() != 0 {
		t.Fatalf("entry fired before refreshed deadline, %d jobs", jobs.Len())
	}

	*now = now.Add(10 * time.Second)
	m.fireDue()
	if jobs.Len() != 1 {
		t.Fatalf("expected one coalesced job, got %d", jobs.Len())
	}
	if m.Pending() != 0 {
		t.Fatalf("entry should be removed after firing")
	}
}

func TestFireSkipsFutureEntries(t *testing.T) {
	m, jobs, _, now := newTestManager(t)

	m.Schedule("/knowledge/a.md", queue.KindSyncUpdate)
	*now = now.Add(5 * time.Second)
	m.fireDue()
	if jobs.Len() != 0 || m.Pending() != 1 {
		t.Fatalf("entry fired early: jobs=%d pending=%d", jobs.Len(), m.Pending())
	}
}

func TestCancelRemovesEntry(t *testing.T) {
	m, jobs, _, now := newTestManager(t)

	m.Schedule("/knowledge/a.md", queue.KindSyncUpdate)
	m.Cancel("/knowledge/a.md")
	m.Cancel("/knowledge/a.md") // cancelling twice is harmless

	*now = now.Add(time.Minute)
	m.fireDue()
	if jobs.Len() != 0 {
		t.Fatalf("cancelled entry still fired, %d jobs", jobs.Len())
	}
}

func TestFireDropsInFlightPaths(t *testing.T) {
	m, jobs, inFlight, now := newTestManager(t)

	m.Schedule("/knowledge/a.md", queue.KindSyncUpdate)
	m.Schedule("/knowledge/b.md", queue.KindSyncUpdate)
	inFlight.TryAcquire("/knowledge/a.md")

	*now = now.Add(time.Minute)
	m.fireDue()

	if jobs.Len() != 1 {
		t.Fatalf("expected one job, got %d", jobs.Len())
	}
	if m.Pending() != 0 {
		t.Fatal("in-flight entry should be dropped, not kept")
	}
}
