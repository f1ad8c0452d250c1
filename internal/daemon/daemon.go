// Package daemon assembles the watcher, scanner, queue, and pipeline into a
// single-instance background process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"quill/internal/config"
	"quill/internal/debounce"
	"quill/internal/logging"
	"quill/internal/notifications"
	"quill/internal/pipeline"
	"quill/internal/queue"
	"quill/internal/scanner"
	"quill/internal/services/openwebui"
	"quill/internal/services/whisper"
	"quill/internal/watcher"
	"quill/internal/workflow"
)

// Daemon owns every long-lived component and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	watches  *watcher.Watcher
	client   *openwebui.Client

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New wires the full component graph from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	client := openwebui.NewClient(openwebui.Config{
		URL:            cfg.OpenWebUI.URL,
		APIKey:         cfg.OpenWebUI.APIKey,
		Model:          cfg.OpenWebUI.Model,
		TimeoutSeconds: cfg.OpenWebUI.TimeoutSeconds,
	}, openwebui.WithLogger(logging.NewComponentLogger(logger, "openwebui")))
	transcriber := whisper.NewService(whisper.Config{
		Binary:         cfg.Whisper.Binary,
		Model:          cfg.Whisper.Model,
		Language:       cfg.Whisper.Language,
		TimeoutSeconds: cfg.Whisper.TimeoutSeconds,
	})
	notifier := notifications.NewService(cfg)

	jobs := queue.NewJobQueue()
	inFlight := queue.NewInFlightSet(cfg.InFlightCooldown())
	debouncer := debounce.NewManager(cfg.DebounceDelay(), cfg.DebounceTick(), jobs, inFlight, logger)
	retryScanner := scanner.New(cfg.RetryDir(), cfg.ScanInterval(), cfg.StabilityThreshold(), jobs, inFlight, logger)
	router := watcher.NewRouter(jobs, inFlight, debouncer, logger)

	watches, err := watcher.New(cfg.Paths.AudioInboxDir, cfg.Paths.TextInboxDir, cfg.Paths.KnowledgeDir, router, logger)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(cfg, client, transcriber, notifier, logger)
	manager := workflow.NewManager(cfg, pipe, jobs, inFlight, debouncer, notifier, logger,
		debouncer, retryScanner, watches)

	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: manager,
		watches:  watches,
		client:   client,
		lockPath: cfg.Paths.LockFile,
		lock:     flock.New(cfg.Paths.LockFile),
	}, nil
}

// Start acquires the instance lock, queues pending work from the inboxes,
// and launches the workflow.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another quill daemon instance is already running")
	}

	ctx, d.cancel = context.WithCancel(ctx)

	if err := d.client.HealthCheck(ctx); err != nil {
		// The store may come up later; jobs retry and documents queue on disk.
		d.logger.Warn("knowledge store unreachable at startup", logging.Error(err))
	}

	d.workflow.InitialScan()
	d.workflow.Start(ctx)
	d.running.Store(true)
	d.logger.Info("quill daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the workflow down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.watches.Close(); err != nil {
		d.logger.Warn("close watches failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("quill daemon stopped")
}
