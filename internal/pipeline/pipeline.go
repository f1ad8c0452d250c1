package pipeline

import (
	"context"
	"log/slog"
	"os"

	"quill/internal/config"
	"quill/internal/document"
	"quill/internal/extract"
	"quill/internal/logging"
	"quill/internal/notifications"
	"quill/internal/services"
)

// ModelClient is the slice of the knowledge-store client the pipeline needs.
type ModelClient interface {
	HealthCheck(ctx context.Context) error
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	UploadFile(ctx context.Context, path, filename string) (string, error)
	LinkToCollection(ctx context.Context, fileID, collectionID string) error
}

// Transcriber converts an audio file into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, source, workDir string) (string, error)
}

// Result reports what a pipeline run produced. OutputPath is the knowledge
// document the run created or promoted, empty when nothing was written.
type Result struct {
	OutputPath string
	Complete   bool
}

// Pipeline executes the ingestion, repair, and sync state machines. It holds
// no per-document state; every run starts from the file it is handed.
type Pipeline struct {
	cfg         *config.Config
	client      ModelClient
	transcriber Transcriber
	extractor   *extract.Extractor
	notifier    notifications.Service
	logger      *slog.Logger
}

// New wires a pipeline. A nil notifier or logger degrades to no-ops.
func New(cfg *config.Config, client ModelClient, transcriber Transcriber, notifier notifications.Service, logger *slog.Logger) *Pipeline {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:         cfg,
		client:      client,
		transcriber: transcriber,
		extractor: extract.New(extract.Options{
			TagTriggers:     cfg.Extraction.TagTriggers,
			TagSearchWindow: cfg.Extraction.TagSearchWindow,
		}),
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// ProcessText ingests a raw text note, or repairs a previously persisted
// document when the file already opens with front matter.
func (p *Pipeline) ProcessText(ctx context.Context, path string) (Result, error) {
	ctx = services.WithNotePath(ctx, path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "text", "read", path, err)
	}
	content := string(raw)

	if document.HasFrontMatter(content) {
		return p.repair(ctx, path, content)
	}

	res, err := p.ingest(ctx, content, path, true)
	if err != nil {
		return res, err
	}
	if res.Complete {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("remove consumed text input failed",
				logging.String(logging.FieldNotePath, path), logging.Error(err))
		}
	}
	return res, nil
}
