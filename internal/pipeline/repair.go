package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"quill/internal/document"
	"quill/internal/fileutil"
	"quill/internal/logging"
	"quill/internal/services"
)

// repair completes a previously persisted document left in the retry root.
// It fills in the missing title and analysis, rewrites the file in place,
// and promotes it to the knowledge tree once both repair and sync succeed.
func (p *Pipeline) repair(ctx context.Context, path, content string) (Result, error) {
	ctx = services.WithStage(ctx, "repair")
	filename := filepath.Base(path)
	p.logger.Info("repairing document", logging.String(logging.FieldSource, filename))

	doc, err := document.Parse(content)
	if err != nil {
		// Malformed front matter is left for a human; rewriting it could
		// destroy whatever the file still holds.
		return Result{}, services.Wrap(services.ErrValidation, "repair", "parse", filename, err)
	}

	contentType, ok := p.cfg.ContentTypeByLabel(doc.Meta.Type)
	if !ok {
		contentType, ok = p.cfg.DefaultContentType()
		if !ok {
			return Result{}, services.Wrap(services.ErrConfiguration, "repair", "", "no content types configured", nil)
		}
	}

	changed := false
	if doc.NeedsTitle() {
		enriched := p.enrich(ctx, doc.Transcript)
		if enriched.Title != document.UntitledTitle {
			doc.Meta.Title = enriched.Title
			doc.Meta.Summary = enriched.Summary
			doc.Meta.Emotions = enriched.Emotions
			doc.Meta.Characters = enriched.Characters
			changed = true
		} else if err := p.client.HealthCheck(ctx); err != nil {
			// Transient outage, not bad content. Leave the file for the
			// next scanner pass instead of burning the fallback title.
			p.logger.Warn("server unreachable, skipping repair",
				logging.String(logging.FieldSource, filename), logging.Error(err))
			return Result{OutputPath: path, Complete: false}, nil
		} else {
			p.logger.Warn("title generation failed, using fallback",
				logging.String(logging.FieldSource, filename))
			doc.Meta.Title = document.FallbackTitle(doc.Meta.Date)
			changed = true
		}
	}

	if contentType.EnableAnalysis && doc.Analysis == "" {
		if analysis := p.analyze(ctx, contentType, doc.Transcript); analysis != "" {
			doc.Analysis = analysis
			changed = true
		}
	}

	if changed {
		if err := doc.WriteFile(path); err != nil {
			return Result{}, services.Wrap(nil, "repair", "write", "", err)
		}
		p.logger.Info("document repaired", logging.String(logging.FieldSource, filename))
	}

	synced := p.sync(ctx, path, contentType, doc.Meta.Tags, doc.Meta.Focus)

	if doc.Complete(contentType.EnableAnalysis) && synced {
		targetDir := filepath.Join(p.cfg.Paths.KnowledgeDir, contentType.TargetSubfolder)
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return Result{}, services.Wrap(nil, "repair", "mkdir", targetDir, err)
		}
		official := filepath.Join(targetDir, filename)
		if filepath.Clean(official) != filepath.Clean(path) {
			if err := fileutil.CopyFile(path, official); err != nil {
				return Result{}, services.Wrap(nil, "repair", "promote", "", err)
			}
			if err := os.Remove(path); err != nil {
				p.logger.Warn("remove retry copy failed", logging.Error(err))
			}
		}
		p.logger.Info("repaired and moved to knowledge",
			logging.String(logging.FieldNotePath, official))
		if err := p.notifier.NotifyRepaired(ctx, doc.Meta.Title); err != nil {
			p.logger.Debug("repair notification failed", logging.Error(err))
		}
		return Result{OutputPath: official, Complete: true}, nil
	}

	// Still incomplete or unsynced; the retry copy stays for the next pass.
	return Result{OutputPath: path, Complete: false}, nil
}
