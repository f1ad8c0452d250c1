package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/fileutil"
	"quill/internal/logging"
	"quill/internal/services"
)

// ProcessAudio transcribes a recording and runs the transcript through
// ingestion. The source file is archived on any terminal outcome, full or
// partial; a failed or empty transcription leaves it untouched for manual
// inspection.
func (p *Pipeline) ProcessAudio(ctx context.Context, path string) (Result, error) {
	ctx = services.WithNotePath(ctx, path)
	filename := filepath.Base(path)
	p.logger.Info("audio pipeline started", logging.String(logging.FieldSource, filename))

	workDir, err := os.MkdirTemp("", "quill-transcribe-")
	if err != nil {
		return Result{}, services.Wrap(nil, "transcribe", "workdir", "", err)
	}
	defer os.RemoveAll(workDir)

	transcript, err := p.transcriber.Transcribe(ctx, path, workDir)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "run", filename, err)
	}
	if strings.TrimSpace(transcript) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "run", "empty transcript for "+filename, nil)
	}

	res, err := p.ingest(ctx, transcript, path, false)
	if err != nil {
		return res, err
	}
	if res.OutputPath != "" {
		archived := filepath.Join(p.cfg.Paths.AudioArchiveDir, filename)
		if err := fileutil.MoveFile(path, archived); err != nil {
			p.logger.Warn("archive audio failed",
				logging.String(logging.FieldSource, filename), logging.Error(err))
		}
	}
	return res, nil
}
