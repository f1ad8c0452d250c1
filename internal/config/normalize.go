package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenWebUI()
	c.normalizeWhisper()
	c.normalizeWorkflow()
	c.normalizeExtraction()
	c.normalizeContentTypes()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.AudioInboxDir, err = expandPath(c.Paths.AudioInboxDir); err != nil {
		return fmt.Errorf("paths.audio_inbox_dir: %w", err)
	}
	if c.Paths.AudioArchiveDir, err = expandPath(c.Paths.AudioArchiveDir); err != nil {
		return fmt.Errorf("paths.audio_archive_dir: %w", err)
	}
	if c.Paths.TextInboxDir, err = expandPath(c.Paths.TextInboxDir); err != nil {
		return fmt.Errorf("paths.text_inbox_dir: %w", err)
	}
	if c.Paths.KnowledgeDir, err = expandPath(c.Paths.KnowledgeDir); err != nil {
		return fmt.Errorf("paths.knowledge_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = defaultLockFile
	}
	if c.Paths.LockFile, err = expandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenWebUI() {
	c.OpenWebUI.URL = strings.TrimRight(strings.TrimSpace(c.OpenWebUI.URL), "/")
	if c.OpenWebUI.URL == "" {
		if value, ok := os.LookupEnv("OPEN_WEBUI_URL"); ok {
			c.OpenWebUI.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.OpenWebUI.APIKey = strings.TrimSpace(c.OpenWebUI.APIKey)
	if c.OpenWebUI.APIKey == "" {
		if value, ok := os.LookupEnv("QUILL_API_KEY"); ok {
			c.OpenWebUI.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("API_KEY"); ok {
			c.OpenWebUI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenWebUI.Model = strings.TrimSpace(c.OpenWebUI.Model)
	if c.OpenWebUI.Model == "" {
		c.OpenWebUI.Model = defaultChatModel
	}
	if c.OpenWebUI.TimeoutSeconds <= 0 {
		c.OpenWebUI.TimeoutSeconds = defaultOpenWebUITimeout
	}
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	if c.Whisper.Binary == "" {
		c.Whisper.Binary = defaultWhisperBinary
	}
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.Language = strings.TrimSpace(c.Whisper.Language)
	if c.Whisper.TimeoutSeconds <= 0 {
		c.Whisper.TimeoutSeconds = defaultWhisperTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.DebounceDelay <= 0 {
		c.Workflow.DebounceDelay = defaultDebounceDelay
	}
	if c.Workflow.DebounceTick <= 0 {
		c.Workflow.DebounceTick = defaultDebounceTick
	}
	if c.Workflow.ScanInterval <= 0 {
		c.Workflow.ScanInterval = defaultScanInterval
	}
	if c.Workflow.StabilityThreshold <= 0 {
		c.Workflow.StabilityThreshold = defaultStabilityThreshold
	}
	if c.Workflow.InFlightCooldown < 0 {
		c.Workflow.InFlightCooldown = defaultInFlightCooldown
	}
	if c.Workflow.SettleDelayMS < 0 {
		c.Workflow.SettleDelayMS = defaultSettleDelayMS
	}
}

func (c *Config) normalizeExtraction() {
	triggers := make([]string, 0, len(c.Extraction.TagTriggers))
	seen := make(map[string]struct{}, len(c.Extraction.TagTriggers))
	for _, trigger := range c.Extraction.TagTriggers {
		trimmed := strings.TrimSpace(trigger)
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)
		if _, exists := seen[lowered]; exists {
			continue
		}
		seen[lowered] = struct{}{}
		triggers = append(triggers, trimmed)
	}
	if len(triggers) == 0 {
		triggers = defaultTagTriggers()
	}
	c.Extraction.TagTriggers = triggers

	if c.Extraction.TagSearchWindow <= 0 {
		c.Extraction.TagSearchWindow = defaultTagSearchWindow
	}
	if c.Extraction.TagSearchWindow < minTagSearchWindow {
		c.Extraction.TagSearchWindow = minTagSearchWindow
	}
}

func (c *Config) normalizeContentTypes() {
	if len(c.ContentTypes) == 0 {
		c.ContentTypes = defaultContentTypes()
	}
	for i := range c.ContentTypes {
		ct := &c.ContentTypes[i]
		ct.Key = strings.TrimSpace(ct.Key)
		ct.Name = strings.TrimSpace(ct.Name)
		if ct.Name == "" {
			ct.Name = titleFromKey(ct.Key)
		}
		ct.TargetSubfolder = strings.TrimSpace(ct.TargetSubfolder)
		if ct.TargetSubfolder == "" {
			ct.TargetSubfolder = ct.Name
		}
		keywords := make([]string, 0, len(ct.DetectionKeywords))
		for _, kw := range ct.DetectionKeywords {
			normalized := strings.ToLower(strings.TrimSpace(kw))
			if normalized != "" {
				keywords = append(keywords, normalized)
			}
		}
		ct.DetectionKeywords = keywords
	}
}

func titleFromKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if dir, err := expandPath(c.Logging.Dir); err == nil {
		c.Logging.Dir = dir
	}
}
