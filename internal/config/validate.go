package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOpenWebUI(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateContentTypes(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	named := map[string]string{
		"paths.audio_inbox_dir":   c.Paths.AudioInboxDir,
		"paths.audio_archive_dir": c.Paths.AudioArchiveDir,
		"paths.text_inbox_dir":    c.Paths.TextInboxDir,
		"paths.knowledge_dir":     c.Paths.KnowledgeDir,
	}
	for key, value := range named {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if c.Paths.AudioInboxDir == c.Paths.AudioArchiveDir {
		return errors.New("paths.audio_inbox_dir and paths.audio_archive_dir must differ")
	}
	return nil
}

func (c *Config) validateOpenWebUI() error {
	if c.OpenWebUI.URL == "" {
		return errors.New("open_webui.url is required. Set OPEN_WEBUI_URL env var or edit the config file (create with 'quilld config init')")
	}
	if c.OpenWebUI.APIKey == "" {
		return errors.New("open_webui.api_key is required. Set QUILL_API_KEY env var or edit the config file (create with 'quilld config init')")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.debounce_delay":       c.Workflow.DebounceDelay,
		"workflow.debounce_tick":        c.Workflow.DebounceTick,
		"workflow.scan_interval":        c.Workflow.ScanInterval,
		"workflow.stability_threshold":  c.Workflow.StabilityThreshold,
		"open_webui.timeout_seconds":    c.OpenWebUI.TimeoutSeconds,
		"whisper.timeout_seconds":       c.Whisper.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.DebounceTick > c.Workflow.DebounceDelay {
		return errors.New("workflow.debounce_tick must not exceed workflow.debounce_delay")
	}
	return nil
}

func (c *Config) validateContentTypes() error {
	if len(c.ContentTypes) == 0 {
		return errors.New("content_types must declare at least one type")
	}
	seen := make(map[string]struct{}, len(c.ContentTypes))
	defaults := 0
	for i, ct := range c.ContentTypes {
		if ct.Key == "" {
			return fmt.Errorf("content_types[%d].key must be set", i)
		}
		if _, dup := seen[ct.Key]; dup {
			return fmt.Errorf("content_types key %q declared more than once", ct.Key)
		}
		seen[ct.Key] = struct{}{}
		if ct.IsDefault {
			defaults++
		}
		if ct.EnableAnalysis && strings.TrimSpace(ct.UserPrompt) == "" && strings.TrimSpace(ct.SystemPrompt) == "" {
			return fmt.Errorf("content_types key %q enables analysis but declares no prompts", ct.Key)
		}
	}
	if defaults > 1 {
		return errors.New("content_types may mark at most one type as is_default")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && strings.Contains(c.Notifications.NtfyTopic, " ") {
		return errors.New("notifications.ntfy_topic must not contain spaces")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
