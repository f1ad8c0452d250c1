package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the watched and derived directory configuration.
type Paths struct {
	AudioInboxDir   string `toml:"audio_inbox_dir"`
	AudioArchiveDir string `toml:"audio_archive_dir"`
	TextInboxDir    string `toml:"text_inbox_dir"`
	KnowledgeDir    string `toml:"knowledge_dir"`
	LockFile        string `toml:"lock_file"`
}

// OpenWebUI contains connection settings for the knowledge store and its
// chat completion endpoint.
type OpenWebUI struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Whisper contains configuration for the external transcription command.
type Whisper struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains daemon timing configuration. All values are seconds
// unless the field name says otherwise.
type Workflow struct {
	DebounceDelay      int `toml:"debounce_delay"`
	DebounceTick       int `toml:"debounce_tick"`
	ScanInterval       int `toml:"scan_interval"`
	StabilityThreshold int `toml:"stability_threshold"`
	InFlightCooldown   int `toml:"inflight_cooldown"`
	SettleDelayMS      int `toml:"settle_delay_ms"`
}

// Extraction contains knobs for deterministic text metadata extraction.
type Extraction struct {
	TagTriggers     []string `toml:"tag_triggers"`
	TagSearchWindow int      `toml:"tag_search_window"`
}

// ContentType describes one classifiable document category. Types are
// declared as an ordered TOML array; classification walks them in declared
// order and the first keyword match wins.
type ContentType struct {
	Key               string   `toml:"key"`
	Name              string   `toml:"name"`
	TargetSubfolder   string   `toml:"target_subfolder"`
	CollectionID      string   `toml:"collection_id"`
	DetectionKeywords []string `toml:"detection_keywords"`
	EnableAnalysis    bool     `toml:"enable_analysis"`
	IsDefault         bool     `toml:"is_default"`
	SystemPrompt      string   `toml:"system_prompt"`
	UserPrompt        string   `toml:"user_prompt"`
}

// Metadata contains the prompts used for LLM metadata enrichment.
type Metadata struct {
	SystemPrompt string `toml:"system_prompt"`
	UserPrompt   string `toml:"user_prompt"`
}

// Collections contains identifiers of special knowledge-store collections.
type Collections struct {
	FocusID string `toml:"focus_id"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Ingest         bool   `toml:"ingest"`
	Retry          bool   `toml:"retry"`
	Repair         bool   `toml:"repair"`
	SyncFailures   bool   `toml:"sync_failures"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for Quill.
//
// Configuration sections by subsystem:
//   - Paths: watched inbox/archive/knowledge directories and the daemon lock
//   - OpenWebUI: knowledge store URL, API key, and chat model
//   - Whisper: external transcription command
//   - Workflow: debounce, scanner, and worker timing
//   - Extraction: spoken-tag trigger words and search window
//   - ContentTypes: ordered document categories with keywords and prompts
//   - Metadata: enrichment prompts
//   - Collections: special collection identifiers
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and directory
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenWebUI     OpenWebUI     `toml:"open_webui"`
	Whisper       Whisper       `toml:"whisper"`
	Workflow      Workflow      `toml:"workflow"`
	Extraction    Extraction    `toml:"extraction"`
	ContentTypes  []ContentType `toml:"content_types"`
	Metadata      Metadata      `toml:"metadata"`
	Collections   Collections   `toml:"collections"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("quill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation,
// including the per-type knowledge subfolders.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.AudioInboxDir,
		c.Paths.AudioArchiveDir,
		c.Paths.TextInboxDir,
		c.Paths.KnowledgeDir,
		c.Logging.Dir,
	}
	for _, ct := range c.ContentTypes {
		dirs = append(dirs, filepath.Join(c.Paths.KnowledgeDir, ct.TargetSubfolder))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.LockFile); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryDir returns the directory scanned for partially processed documents.
// It is the same directory as the text inbox.
func (c *Config) RetryDir() string {
	return c.Paths.TextInboxDir
}

// ContentTypeByKey returns the content type with the given key.
func (c *Config) ContentTypeByKey(key string) (ContentType, bool) {
	for _, ct := range c.ContentTypes {
		if ct.Key == key {
			return ct, true
		}
	}
	return ContentType{}, false
}

// ContentTypeByLabel resolves a type by key or display name, ignoring case.
// Persisted documents record the display name, so both forms must resolve.
func (c *Config) ContentTypeByLabel(label string) (ContentType, bool) {
	for _, ct := range c.ContentTypes {
		if strings.EqualFold(ct.Key, label) || strings.EqualFold(ct.Name, label) {
			return ct, true
		}
	}
	return ContentType{}, false
}

// DefaultContentType returns the type marked is_default, or the first
// declared type when none is marked.
func (c *Config) DefaultContentType() (ContentType, bool) {
	if len(c.ContentTypes) == 0 {
		return ContentType{}, false
	}
	for _, ct := range c.ContentTypes {
		if ct.IsDefault {
			return ct, true
		}
	}
	return c.ContentTypes[0], true
}

// DebounceDelay returns the debounce coalescing delay.
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Workflow.DebounceDelay) * time.Second
}

// DebounceTick returns the debounce timer loop wake interval.
func (c *Config) DebounceTick() time.Duration {
	return time.Duration(c.Workflow.DebounceTick) * time.Second
}

// ScanInterval returns the periodic scanner sweep interval.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Workflow.ScanInterval) * time.Second
}

// StabilityThreshold returns the minimum file age before the scanner
// considers a file safe to enqueue.
func (c *Config) StabilityThreshold() time.Duration {
	return time.Duration(c.Workflow.StabilityThreshold) * time.Second
}

// InFlightCooldown returns how long a path stays guarded after its job ends.
func (c *Config) InFlightCooldown() time.Duration {
	return time.Duration(c.Workflow.InFlightCooldown) * time.Second
}

// SettleDelay returns the pause between dequeue and processing that lets a
// just-written file settle.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Workflow.SettleDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
