package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipturbo/internal/config"
)

const userAgent = "ClipTurbo/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventWorkflowCompleted Event = "workflow_completed"
	EventWorkflowFailed    Event = "workflow_failed"
	EventWorkflowCancelled Event = "workflow_cancelled"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries event details. Keys are event specific.
type Payload map[string]any

// Service publishes events to a notification transport.
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
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventWorkflowCompleted: cfg.Notifications.WorkflowCompleted,
			EventWorkflowFailed:    cfg.Notifications.WorkflowFailed,
			EventWorkflowCancelled: cfg.Notifications.WorkflowFailed,
			EventError:             true,
			EventTest:              true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payloadString(payload, "title")
	if title == "" {
		title = payloadString(payload, "workflowID")
	}
	switch event {
	case EventWorkflowCompleted:
		body := fmt.Sprintf("✅ Video ready: %s", title)
		if files := payloadString(payload, "outputFile"); files != "" {
			body += "\nFile: " + files
		}
		if d := payloadString(payload, "duration"); d != "" {
			body += "\nTook " + d
		}
		return message{
			title:    "ClipTurbo - Video Ready",
			body:     body,
			tags:     []string{"clipturbo", "workflow", "completed"},
			priority: "high",
		}, true
	case EventWorkflowFailed:
		return message{
			title:    "ClipTurbo - Workflow Failed",
			body:     fmt.Sprintf("❌ %s failed: %s", title, payloadString(payload, "error")),
			tags:     []string{"clipturbo", "workflow", "failed"},
			priority: "high",
		}, true
	case EventWorkflowCancelled:
		return message{
			title: "ClipTurbo - Workflow Cancelled",
			body:  fmt.Sprintf("Cancelled: %s", title),
			tags:  []string{"clipturbo", "workflow", "cancelled"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := payloadString(payload, "error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "ClipTurbo - Error",
			body:     builder.String(),
			tags:     []string{"clipturbo", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "ClipTurbo - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"clipturbo", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
