package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"quill/internal/document"
	"quill/internal/extract"
	"quill/internal/fileutil"
	"quill/internal/logging"
	"quill/internal/services"
)

// ingest runs the full ingestion state machine over raw text: extract,
// classify, enrich, optionally analyze, persist, then sync. Enrichment and
// analysis failures never abort the run; they downgrade it to a partial
// result that lands in the retry root.
func (p *Pipeline) ingest(ctx context.Context, text, sourcePath string, isText bool) (Result, error) {
	originalFilename := filepath.Base(sourcePath)
	meta := p.extractor.Metadata(text, sourcePath)
	contentType, ok := extract.Classify(meta.CleanText, p.cfg.ContentTypes)
	if !ok {
		return Result{}, services.Wrap(services.ErrConfiguration, "classify", "", "no content types configured", nil)
	}
	ctx = services.WithStage(ctx, "ingest")
	tags := extract.Tags(meta.SpokenTags)

	p.logger.Info("classified",
		logging.String(logging.FieldSource, originalFilename),
		logging.String(logging.FieldContentType, contentType.Key),
		logging.Any("tags", tags))

	enriched := p.enrich(ctx, meta.CleanText)

	analysis := ""
	if contentType.EnableAnalysis {
		analysis = p.analyze(ctx, contentType, meta.CleanText)
	}

	targetDir := filepath.Join(p.cfg.Paths.KnowledgeDir, contentType.TargetSubfolder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return Result{}, services.Wrap(nil, "persist", "mkdir", targetDir, err)
	}
	id, outputPath, err := document.AllocateID(targetDir, meta.Date, contentType.Key)
	if err != nil {
		return Result{}, services.Wrap(nil, "persist", "allocate", "", err)
	}

	doc := &document.Document{
		Meta: document.FrontMatter{
			ID:         id,
			Language:   enriched.Language,
			Title:      enriched.Title,
			Aliases:    []string{originalFilename},
			Date:       meta.Date,
			Time:       meta.Time,
			Type:       contentType.Name,
			Tags:       tags,
			Emotions:   enriched.Emotions,
			Characters: enriched.Characters,
			Summary:    enriched.Summary,
		},
		Transcript: meta.CleanText,
		Analysis:   analysis,
	}
	if err := doc.WriteFile(outputPath); err != nil {
		return Result{}, services.Wrap(nil, "persist", "write", "", err)
	}
	p.logger.Info("knowledge document saved",
		logging.String(logging.FieldNotePath, outputPath),
		logging.String(logging.FieldContentType, contentType.Key))

	missingTitle := doc.NeedsTitle()
	missingAnalysis := contentType.EnableAnalysis && analysis == ""
	if missingTitle || missingAnalysis {
		var reasons []string
		if missingTitle {
			reasons = append(reasons, "Missing Title")
		}
		if missingAnalysis {
			reasons = append(reasons, "Missing Analysis")
		}
		reason := strings.Join(reasons, ", ")
		p.logger.Warn("partial failure, queuing for retry",
			logging.String(logging.FieldNotePath, outputPath),
			logging.String("reason", reason))

		// Text input already sits in the retry root; only other sources
		// need a copy there for the scanner to find.
		if !isText {
			retryCopy := filepath.Join(p.cfg.RetryDir(), filepath.Base(outputPath))
			if err := fileutil.CopyFile(outputPath, retryCopy); err != nil {
				p.logger.Warn("queue retry copy failed", logging.Error(err))
			}
		}
		if err := p.notifier.NotifyRetryQueued(ctx, filepath.Base(outputPath), reason); err != nil {
			p.logger.Debug("retry notification failed", logging.Error(err))
		}
		return Result{OutputPath: outputPath, Complete: false}, nil
	}

	// Sync failures are non-fatal here; the document is durable on disk, and
	// a copy in the retry root keeps the scanner re-attempting the upload.
	if !p.sync(ctx, outputPath, contentType, tags, doc.Meta.Focus) {
		p.logger.Warn("sync failed, offloading for retry",
			logging.String(logging.FieldNotePath, outputPath))
		retryCopy := filepath.Join(p.cfg.RetryDir(), filepath.Base(outputPath))
		if err := fileutil.CopyFile(outputPath, retryCopy); err != nil {
			p.logger.Warn("offload copy failed", logging.Error(err))
		}
		if err := p.notifier.NotifySyncFailure(ctx, filepath.Base(outputPath)); err != nil {
			p.logger.Debug("sync failure notification failed", logging.Error(err))
		}
	}

	p.logger.Info("ingestion complete", logging.String(logging.FieldSource, originalFilename))
	if err := p.notifier.NotifyIngested(ctx, doc.Meta.Title, contentType.Key); err != nil {
		p.logger.Debug("ingest notification failed", logging.Error(err))
	}
	return Result{OutputPath: outputPath, Complete: true}, nil
}

func hasFocusTag(tags []string) bool {
	return slices.Contains(tags, "FOCUS")
}
