package workflow

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"

	"quill/internal/logging"
	"quill/internal/pipeline"
	"quill/internal/queue"
	"quill/internal/services"
)

// runWorker drains the queue until ctx ends. A single job's failure is
// logged and absorbed; the loop itself must never die on a bad item.
func (m *Manager) runWorker(ctx context.Context) {
	for {
		job, err := m.jobs.Get(ctx)
		if err != nil {
			return
		}
		m.process(ctx, job)
	}
}

func (m *Manager) process(ctx context.Context, job queue.Job) {
	if !m.inFlight.TryAcquire(job.Path) {
		m.logger.Debug("duplicate job dropped",
			logging.String(logging.FieldNotePath, job.Path))
		return
	}
	defer m.inFlight.Release(job.Path)

	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithNotePath(ctx, job.Path)
	logger := logging.WithContext(ctx, m.logger)

	// A job can outlive its file: a previous pass may have consumed it.
	if _, err := os.Stat(job.Path); err != nil {
		logger.Debug("job skipped, file gone", logging.Error(err))
		return
	}

	// Give the producer of the file a moment to finish writing.
	m.sleep(m.cfg.SettleDelay())

	var (
		res pipeline.Result
		err error
	)
	switch job.Kind {
	case queue.KindAudio:
		res, err = m.processor.ProcessAudio(ctx, job.Path)
	case queue.KindText:
		res, err = m.processor.ProcessText(ctx, job.Path)
	case queue.KindSyncUpdate:
		res, err = m.processor.SyncExisting(ctx, job.Path)
	default:
		logger.Warn("unknown job kind", logging.String("kind", job.Kind.String()))
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("job failed",
			logging.String("kind", job.Kind.String()), logging.Error(err))
		if nerr := m.notifier.NotifyError(ctx, err, job.Kind.String()); nerr != nil {
			logger.Debug("error notification failed", logging.Error(nerr))
		}
		return
	}

	if res.OutputPath != "" {
		// The job already produced or refreshed this document; a pending
		// debounce entry for it would only trigger a redundant sync.
		m.canceller.Cancel(res.OutputPath)
	}
}
