package watcher

import (
	"log/slog"
	"path/filepath"

	"quill/internal/debounce"
	"quill/internal/logging"
	"quill/internal/queue"
)

// Router decides what, if anything, an event becomes. It only enqueues and
// registers; it never blocks and never touches the filesystem.
type Router struct {
	jobs      *queue.JobQueue
	inFlight  *queue.InFlightSet
	debouncer *debounce.Manager
	logger    *slog.Logger
}

// NewRouter wires a router to the queue, the in-flight guard, and the
// debounce manager.
func NewRouter(jobs *queue.JobQueue, inFlight *queue.InFlightSet, debouncer *debounce.Manager, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		jobs:      jobs,
		inFlight:  inFlight,
		debouncer: debouncer,
		logger:    logging.NewComponentLogger(logger, "watcher"),
	}
}

// Handle routes one event. New audio or text artifacts become jobs
// immediately; edits to knowledge documents are debounced instead, unless
// the path is already being worked on.
func (r *Router) Handle(ev Event) {
	switch ev.Root {
	case RootAudio:
		if ev.Op != OpCreated || !IsAudioArtifact(ev.Path) {
			return
		}
		r.logger.Info("audio artifact detected",
			logging.String(logging.FieldNotePath, ev.Path),
			logging.String(logging.FieldSource, filepath.Base(ev.Path)))
		r.jobs.Put(queue.Job{Kind: queue.KindAudio, Path: ev.Path})

	case RootText:
		if ev.Op != OpCreated || !IsTextArtifact(ev.Path) {
			return
		}
		r.logger.Info("text artifact detected",
			logging.String(logging.FieldNotePath, ev.Path),
			logging.String(logging.FieldSource, filepath.Base(ev.Path)))
		r.jobs.Put(queue.Job{Kind: queue.KindText, Path: ev.Path})

	case RootKnowledge:
		if ev.Op != OpModified || !IsKnowledgeDocument(ev.Path) {
			return
		}
		if r.inFlight.Contains(ev.Path) {
			return
		}
		r.debouncer.Schedule(ev.Path, queue.KindSyncUpdate)
	}
}
