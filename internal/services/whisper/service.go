// Package whisper shells out to the whisper CLI for speech-to-text. The
// binary, model, and language are configuration-supplied; transcription
// internals stay outside the daemon.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const defaultModel = "base"

// Config captures the external command settings.
type Config struct {
	Binary         string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Service provides transcription via the external whisper command.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe runs the whisper command against source and returns the plain
// text transcript. workDir receives the command's output files. An empty
// transcript is not an error; silence is a valid recording.
func (s *Service) Transcribe(ctx context.Context, source, workDir string) (string, error) {
	if source == "" {
		return "", errors.New("transcribe: source path required")
	}
	if workDir == "" {
		workDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: ensure work dir: %w", err)
	}

	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	args := s.buildArgs(source, workDir)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	transcriptPath := filepath.Join(workDir, baseName+".txt")
	text, err := os.ReadFile(transcriptPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("whisper: no transcript produced at %s", transcriptPath)
		}
		return "", fmt.Errorf("whisper: read transcript: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

func (s *Service) buildArgs(source, workDir string) []string {
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--output_format", "txt",
		"--output_dir", workDir,
		"--beam_size", "5",
		"--fp16", "False",
	}
	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
