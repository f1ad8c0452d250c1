package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"quill/internal/logging"
)

// Watcher owns the fsnotify watches over the three roots and feeds the
// router. The audio and text inboxes are watched flat; the knowledge tree
// is watched recursively, picking up subfolders as they appear.
type Watcher struct {
	fsw    *fsnotify.Watcher
	router *Router
	logger *slog.Logger

	audioDir     string
	textDir      string
	knowledgeDir string
}

// New creates the watches. Close must be called when done.
func New(audioDir, textDir, knowledgeDir string, router *Router, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	w := &Watcher{
		fsw:          fsw,
		router:       router,
		logger:       logging.NewComponentLogger(logger, "watcher"),
		audioDir:     filepath.Clean(audioDir),
		textDir:      filepath.Clean(textDir),
		knowledgeDir: filepath.Clean(knowledgeDir),
	}

	for _, dir := range []string{w.audioDir, w.textDir} {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watcher: watch %s: %w", dir, err)
		}
	}
	if err := w.watchTree(w.knowledgeDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying watches.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run pumps events into the router until ctx ends.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		}
	}
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	// New directories under the knowledge tree need their own watch.
	if ev.Has(fsnotify.Create) && w.under(path, w.knowledgeDir) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watchTree(path); err != nil {
				w.logger.Warn("watch new directory failed", logging.Error(err))
			}
			return
		}
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreated
	case ev.Has(fsnotify.Write):
		op = OpModified
	default:
		return
	}

	switch {
	case filepath.Dir(path) == w.audioDir:
		w.router.Handle(Event{Root: RootAudio, Op: op, Path: path})
	case filepath.Dir(path) == w.textDir:
		w.router.Handle(Event{Root: RootText, Op: op, Path: path})
	case w.under(path, w.knowledgeDir):
		w.router.Handle(Event{Root: RootKnowledge, Op: op, Path: path})
	}
}

func (w *Watcher) under(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watcher: walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watcher: watch %s: %w", path, err)
		}
		return nil
	})
}
