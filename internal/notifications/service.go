package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"galley/internal/config"
)

const userAgent = "Galley/0.1.0"

// Event identifies a workflow milestone worth telling the user about.
type Event string

const (
	EventRenderStarted    Event = "render_started"
	EventRenderCompleted  Event = "render_completed"
	EventRenderFailed     Event = "render_failed"
	EventRestoreCompleted Event = "restore_completed"
	EventRestoreFailed    Event = "restore_failed"
	EventSpellClean       Event = "spell_clean"
	EventSpellFindings    Event = "spell_findings"
	EventSpellFailed      Event = "spell_failed"
	EventTest             Event = "test"
)

// Payload carries event-specific fields used to format the message.
type Payload map[string]string

func (p Payload) get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
		toggles:  cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	toggles  config.Notifications
}

// Publish formats and delivers the event, silently dropping events the user
// has toggled off.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, err := format(event, payload)
	if err != nil {
		return err
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventRenderStarted, EventRenderCompleted:
		return n.toggles.Render
	case EventRestoreCompleted:
		return n.toggles.Restore
	case EventSpellClean, EventSpellFindings:
		return n.toggles.Spelling
	case EventRenderFailed, EventRestoreFailed, EventSpellFailed:
		return n.toggles.Errors
	}
	return true
}

func format(event Event, payload Payload) (message, error) {
	switch event {
	case EventRenderStarted:
		return message{
			title: "Galley - Render Started",
			body:  fmt.Sprintf("Started rendering: %s", payload.get("document")),
			tags:  []string{"galley", "render", "started"},
		}, nil
	case EventRenderCompleted:
		body := fmt.Sprintf("📄 Render complete: %s", payload.get("document"))
		if duration := payload.get("duration"); duration != "" {
			body = fmt.Sprintf("%s in %s", body, duration)
		}
		if outputs := payload.get("outputs"); outputs != "" {
			body = fmt.Sprintf("%s\nOutputs: %s", body, outputs)
		}
		return message{
			title: "Galley - Render Complete",
			body:  body,
			tags:  []string{"galley", "render", "completed"},
		}, nil
	case EventRenderFailed:
		return message{
			title:    "Galley - Render Failed",
			body:     failureBody("Render failed", payload),
			tags:     []string{"galley", "render", "failed"},
			priority: "high",
		}, nil
	case EventRestoreCompleted:
		body := "📦 Package library restored"
		if summary := payload.get("summary"); summary != "" {
			body = fmt.Sprintf("%s: %s", body, summary)
		}
		return message{
			title: "Galley - Packages Restored",
			body:  body,
			tags:  []string{"galley", "restore", "completed"},
		}, nil
	case EventRestoreFailed:
		return message{
			title:    "Galley - Restore Failed",
			body:     failureBody("Package restore failed", payload),
			tags:     []string{"galley", "restore", "failed"},
			priority: "high",
		}, nil
	case EventSpellClean:
		body := "✅ Spelling clean"
		if documents := payload.get("documents"); documents != "" {
			body = fmt.Sprintf("%s across %s files", body, documents)
		}
		return message{
			title: "Galley - Spelling Clean",
			body:  body,
			tags:  []string{"galley", "spelling", "completed"},
		}, nil
	case EventSpellFindings:
		return message{
			title: "Galley - Spelling Review",
			body: fmt.Sprintf("✍️ %s unknown words in %s files",
				orUnknown(payload.get("words")), orUnknown(payload.get("documents"))),
			tags: []string{"galley", "spelling", "review"},
		}, nil
	case EventSpellFailed:
		return message{
			title:    "Galley - Spell Check Failed",
			body:     failureBody("Spell check failed", payload),
			tags:     []string{"galley", "spelling", "failed"},
			priority: "high",
		}, nil
	case EventTest:
		return message{
			title:    "Galley - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"galley", "test"},
			priority: "low",
		}, nil
	}
	return message{}, fmt.Errorf("unknown notification event %q", event)
}

func failureBody(prefix string, payload Payload) string {
	var builder strings.Builder
	builder.WriteString("❌ ")
	builder.WriteString(prefix)
	if document := payload.get("document"); document != "" {
		builder.WriteString(" for ")
		builder.WriteString(document)
	}
	builder.WriteString(": ")
	if cause := payload.get("error"); cause != "" {
		builder.WriteString(cause)
	} else {
		builder.WriteString("unknown")
	}
	return builder.String()
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
