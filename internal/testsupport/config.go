// Package testsupport builds configurations and fixtures for tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"quill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults the required credentials, applies any provided options, and
// creates every directory the config names.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.OpenWebUI.URL = "http://127.0.0.1:0"
	cfgVal.OpenWebUI.APIKey = "test-key"
	cfgVal.Paths.AudioInboxDir = filepath.Join(base, "inbox", "audio")
	cfgVal.Paths.AudioArchiveDir = filepath.Join(base, "archive")
	cfgVal.Paths.TextInboxDir = filepath.Join(base, "inbox", "text")
	cfgVal.Paths.KnowledgeDir = filepath.Join(base, "knowledge")
	cfgVal.Paths.LockFile = filepath.Join(base, "run", "quilld.lock")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithContentTypes replaces the configured content types.
func WithContentTypes(types ...config.ContentType) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ContentTypes = types
	}
}

// WithFocusCollection sets the focus collection identifier.
func WithFocusCollection(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collections.FocusID = id
	}
}
