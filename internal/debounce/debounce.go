// Package debounce coalesces bursts of edit events into a single delayed
// sync job per path. External editors emit several modification events per
// save; syncing on each one would race the writer and waste uploads.
package debounce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quill/internal/logging"
	"quill/internal/queue"
)

type entry struct {
	fireAt time.Time
	kind   queue.Kind
}

// Manager holds one pending entry per path. Scheduling an already-pending
// path pushes its fire time forward instead of stacking a second job.
type Manager struct {
	delay time.Duration
	tick  time.Duration

	jobs     *queue.JobQueue
	inFlight *queue.InFlightSet
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]entry

	now func() time.Time
}

// NewManager returns a manager that fires entries delay after their last
// schedule call, checking on every tick.
func NewManager(delay, tick time.Duration, jobs *queue.JobQueue, inFlight *queue.InFlightSet, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		delay:    delay,
		tick:     tick,
		jobs:     jobs,
		inFlight: inFlight,
		logger:   logging.NewComponentLogger(logger, "debounce"),
		pending:  make(map[string]entry),
		now:      time.Now,
	}
}

// Schedule registers or refreshes the entry for path. Last write wins.
func (m *Manager) Schedule(path string, kind queue.Kind) {
	m.mu.Lock()
	_, refreshed := m.pending[path]
	m.pending[path] = entry{fireAt: m.now().Add(m.delay), kind: kind}
	m.mu.Unlock()

	if refreshed {
		m.logger.Debug("debounce refreshed", logging.String(logging.FieldNotePath, path))
	} else {
		m.logger.Debug("debounce scheduled", logging.String(logging.FieldNotePath, path))
	}
}

// Cancel drops any pending entry for path. Called when a job for the path
// completes through another route, so a stale duplicate sync never fires.
func (m *Manager) Cancel(path string) {
	m.mu.Lock()
	_, existed := m.pending[path]
	delete(m.pending, path)
	m.mu.Unlock()

	if existed {
		m.logger.Debug("debounce cancelled", logging.String(logging.FieldNotePath, path))
	}
}

// Pending reports the number of scheduled entries.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Run fires due entries every tick until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fireDue()
		}
	}
}

// fireDue removes every elapsed entry and enqueues a job for it unless the
// path is already in flight. An in-flight job's own completion is the
// authoritative freshness signal, so those entries are simply dropped.
func (m *Manager) fireDue() {
	now := m.now()

	m.mu.Lock()
	var due []queue.Job
	for path, e := range m.pending {
		if e.fireAt.After(now) {
			continue
		}
		delete(m.pending, path)
		if m.inFlight.Contains(path) {
			m.logger.Debug("debounce dropped for in-flight path", logging.String(logging.FieldNotePath, path))
			continue
		}
		due = append(due, queue.Job{Kind: e.kind, Path: path})
	}
	m.mu.Unlock()

	for _, job := range due {
		m.logger.Info("sync job enqueued", logging.String(logging.FieldNotePath, job.Path))
		m.jobs.Put(job)
	}
}
