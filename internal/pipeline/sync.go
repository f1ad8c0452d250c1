package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"quill/internal/config"
	"quill/internal/document"
	"quill/internal/fileutil"
	"quill/internal/logging"
	"quill/internal/services"
)

// sync uploads a knowledge document and links it to its collections.
// Success means the upload went through; link problems are logged but do not
// fail the sync, matching the store's tolerance for duplicate links.
func (p *Pipeline) sync(ctx context.Context, path string, contentType config.ContentType, tags []string, focus bool) bool {
	filename := filepath.Base(path)
	fileID, err := p.client.UploadFile(ctx, path, filename)
	if err != nil {
		p.logger.Warn("upload failed",
			logging.String(logging.FieldNotePath, path), logging.Error(err))
		return false
	}

	if contentType.CollectionID != "" {
		if err := p.client.LinkToCollection(ctx, fileID, contentType.CollectionID); err != nil {
			p.logger.Warn("collection link failed",
				logging.String(logging.FieldContentType, contentType.Key), logging.Error(err))
		}
	}

	if (focus || hasFocusTag(tags)) && p.cfg.Collections.FocusID != "" {
		if err := p.client.LinkToCollection(ctx, fileID, p.cfg.Collections.FocusID); err != nil {
			p.logger.Warn("focus link failed", logging.Error(err))
		} else {
			p.logger.Info("added to focus collection", logging.String(logging.FieldSource, filename))
		}
	}
	return true
}

// SyncExisting re-uploads a knowledge document after an external edit.
// On upload failure the document is copied into the retry root so the
// periodic scanner keeps retrying it.
func (p *Pipeline) SyncExisting(ctx context.Context, path string) (Result, error) {
	ctx = services.WithNotePath(ctx, path)
	ctx = services.WithStage(ctx, "sync")
	filename := filepath.Base(path)
	p.logger.Info("syncing update", logging.String(logging.FieldSource, filename))

	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "sync", "read", path, err)
	}
	doc, err := document.Parse(string(raw))
	if err != nil {
		// Not a managed document; nothing to sync.
		p.logger.Warn("edited file is not a knowledge document",
			logging.String(logging.FieldNotePath, path), logging.Error(err))
		return Result{}, nil
	}

	contentType, ok := p.cfg.ContentTypeByLabel(doc.Meta.Type)
	if !ok {
		contentType, _ = p.cfg.DefaultContentType()
	}

	if !p.sync(ctx, path, contentType, doc.Meta.Tags, doc.Meta.Focus) {
		p.logger.Warn("sync failed, offloading for retry", logging.String(logging.FieldSource, filename))
		retryCopy := filepath.Join(p.cfg.RetryDir(), filename)
		if filepath.Clean(retryCopy) != filepath.Clean(path) {
			if err := fileutil.CopyFile(path, retryCopy); err != nil {
				p.logger.Warn("offload copy failed", logging.Error(err))
			}
		}
		if err := p.notifier.NotifySyncFailure(ctx, filename); err != nil {
			p.logger.Debug("sync failure notification failed", logging.Error(err))
		}
		return Result{OutputPath: path, Complete: false}, nil
	}
	return Result{OutputPath: path, Complete: true}, nil
}
