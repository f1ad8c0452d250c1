package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quill/internal/config"
)

const userAgent = "Quill/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyIngested(ctx context.Context, title, contentType string) error
	NotifyRetryQueued(ctx context.Context, filename, reason string) error
	NotifyRepaired(ctx context.Context, title string) error
	NotifySyncFailure(ctx context.Context, filename string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		enabled:  cfg.Notifications,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	enabled  config.Notifications
	client   *http.Client
}

func (n *ntfyService) NotifyIngested(ctx context.Context, title, contentType string) error {
	if !n.enabled.Ingest {
		return nil
	}
	title = strings.TrimSpace(title)
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = "unknown"
	}
	data := payload{
		title:   "Quill - Ingested",
		message: fmt.Sprintf("✅ Saved: %s (%s)", title, contentType),
		tags:    []string{"quill", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRetryQueued(ctx context.Context, filename, reason string) error {
	if !n.enabled.Retry {
		return nil
	}
	filename = strings.TrimSpace(filename)
	message := fmt.Sprintf("🔄 Queued for retry: %s", filename)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Quill - Partial Failure",
		message: message,
		tags:    []string{"quill", "retry", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRepaired(ctx context.Context, title string) error {
	if !n.enabled.Repair {
		return nil
	}
	data := payload{
		title:   "Quill - Repaired",
		message: fmt.Sprintf("🔧 Repaired and moved to knowledge: %s", strings.TrimSpace(title)),
		tags:    []string{"quill", "repair", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncFailure(ctx context.Context, filename string) error {
	if !n.enabled.SyncFailures {
		return nil
	}
	data := payload{
		title:   "Quill - Sync Failed",
		message: fmt.Sprintf("⚠️ Upload failed, will retry: %s", strings.TrimSpace(filename)),
		tags:    []string{"quill", "sync", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.enabled.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Quill - Error",
		message:  builder.String(),
		tags:     []string{"quill", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Quill - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"quill", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyIngested(context.Context, string, string) error    { return nil }
func (noopService) NotifyRetryQueued(context.Context, string, string) error { return nil }
func (noopService) NotifyRepaired(context.Context, string) error            { return nil }
func (noopService) NotifySyncFailure(context.Context, string) error         { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
