// Package scanner periodically re-discovers stranded work in the text/retry
// directory. It is the sole recovery path after a crash or a partial
// failure; no queue state survives a restart, only files do.
package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/watcher"
)

// Scanner lists the retry directory on a fixed interval and enqueues a text
// job for every eligible file.
type Scanner struct {
	dir       string
	interval  time.Duration
	stability time.Duration

	jobs     *queue.JobQueue
	inFlight *queue.InFlightSet
	logger   *slog.Logger

	now func() time.Time
}

// New returns a scanner over dir. Files younger than stability are skipped
// so a file still being written is never requeued mid-write.
func New(dir string, interval, stability time.Duration, jobs *queue.JobQueue, inFlight *queue.InFlightSet, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		dir:       dir,
		interval:  interval,
		stability: stability,
		jobs:      jobs,
		inFlight:  inFlight,
		logger:    logging.NewComponentLogger(logger, "scanner"),
		now:       time.Now,
	}
}

// Run scans on every interval until ctx ends. The first scan happens after
// one full interval, not at startup; the daemon's initial sweep covers that.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scan()
		}
	}
}

// Scan performs one pass and returns the number of jobs enqueued.
func (s *Scanner) Scan() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("retry scan failed", logging.Error(err))
		}
		return 0
	}

	enqueued := 0
	for _, entry := range entries {
		if entry.IsDir() || !watcher.IsTextArtifact(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if s.inFlight.Contains(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if s.now().Sub(info.ModTime()) < s.stability {
			continue
		}
		s.logger.Info("retry job enqueued", logging.String(logging.FieldNotePath, path))
		s.jobs.Put(queue.Job{Kind: queue.KindText, Path: path})
		enqueued++
	}
	return enqueued
}
