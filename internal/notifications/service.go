package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podcaster/internal/config"
)

const userAgent = "Podcaster-Go/0.1.0"

// Event names a producer milestone.
type Event string

const (
	EventFeedCreated      Event = "feed_created"
	EventEpisodeCreated   Event = "episode_created"
	EventEpisodePublished Event = "episode_published"
	EventGenerationFailed Event = "generation_failed"
	EventTest             Event = "test"
)

// Payload carries event fields. Values are formatted with %v.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService returns an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	switch event {
	case EventFeedCreated:
		return message{
			title: "Podcaster - Feed Created",
			body:  fmt.Sprintf("📻 New feed: %s", p.text("title")),
			tags:  []string{"podcaster", "feed", "created"},
		}, true
	case EventEpisodeCreated:
		body := fmt.Sprintf("📝 Script ready: %s", p.text("episode"))
		if podcast := p.text("podcast"); podcast != "" {
			body = fmt.Sprintf("%s\nPodcast: %s", body, podcast)
		}
		return message{
			title: "Podcaster - Episode Drafted",
			body:  body,
			tags:  []string{"podcaster", "episode", "created"},
		}, true
	case EventEpisodePublished:
		body := fmt.Sprintf("🎙️ Published: %s", p.text("episode"))
		if url := p.text("audioUrl"); url != "" {
			body = fmt.Sprintf("%s\nAudio: %s", body, url)
		}
		return message{
			title:    "Podcaster - Episode Published",
			body:     body,
			tags:     []string{"podcaster", "episode", "published"},
			priority: "high",
		}, true
	case EventGenerationFailed:
		var b strings.Builder
		b.WriteString("❌ Generation failed")
		if stage := p.text("stage"); stage != "" {
			b.WriteString(" in ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if detail := p.text("error"); detail != "" {
			b.WriteString(detail)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Podcaster - Error",
			body:     b.String(),
			tags:     []string{"podcaster", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Podcaster - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"podcaster", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
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
