// Package workflow runs the worker loop that drains the job queue and owns
// the lifecycle of the event producers feeding it.
package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/notifications"
	"quill/internal/pipeline"
	"quill/internal/queue"
	"quill/internal/watcher"
)

// Processor is the pipeline surface the worker dispatches into.
type Processor interface {
	ProcessAudio(ctx context.Context, path string) (pipeline.Result, error)
	ProcessText(ctx context.Context, path string) (pipeline.Result, error)
	SyncExisting(ctx context.Context, path string) (pipeline.Result, error)
}

// Canceller suppresses a pending debounce entry once a job has handled the
// path through another route.
type Canceller interface {
	Cancel(path string)
}

// Runner is a long-running producer (watcher, scanner, debounce loop).
type Runner interface {
	Run(ctx context.Context)
}

// Manager owns the worker loop and the producers.
type Manager struct {
	cfg       *config.Config
	jobs      *queue.JobQueue
	inFlight  *queue.InFlightSet
	canceller Canceller
	processor Processor
	notifier  notifications.Service
	logger    *slog.Logger
	runners   []Runner

	// sleep implements the pre-dispatch settle delay; tests stub it out.
	sleep func(time.Duration)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a manager. Runners are started alongside the worker
// when Start is called.
func NewManager(cfg *config.Config, processor Processor, jobs *queue.JobQueue, inFlight *queue.InFlightSet, canceller Canceller, notifier notifications.Service, logger *slog.Logger, runners ...Runner) *Manager {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		jobs:      jobs,
		inFlight:  inFlight,
		canceller: canceller,
		processor: processor,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		runners:   runners,
		sleep:     time.Sleep,
	}
}

// Start launches the worker and all registered runners. It returns
// immediately; Stop shuts everything down.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	for _, r := range m.runners {
		m.wg.Add(1)
		go func(r Runner) {
			defer m.wg.Done()
			r.Run(ctx)
		}(r)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runWorker(ctx)
	}()
	m.logger.Info("workflow started")
}

// Stop cancels the worker and producers and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped")
}

// InitialScan enqueues every artifact already present in the inboxes.
// Queue state is not persisted, so this is how work survives a restart.
func (m *Manager) InitialScan() {
	audio := m.enqueueExisting(m.cfg.Paths.AudioInboxDir, watcher.IsAudioArtifact, queue.KindAudio)
	text := m.enqueueExisting(m.cfg.RetryDir(), watcher.IsTextArtifact, queue.KindText)
	if audio+text > 0 {
		m.logger.Info("startup scan queued pending work",
			logging.Int("audio", audio), logging.Int("text", text))
	}
}

func (m *Manager) enqueueExisting(dir string, match func(string) bool, kind queue.Kind) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("startup scan failed", logging.Error(err))
		}
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		m.jobs.Put(queue.Job{Kind: kind, Path: filepath.Join(dir, entry.Name())})
		count++
	}
	return count
}
