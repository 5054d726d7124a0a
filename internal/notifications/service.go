package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podstudio/internal/config"
	"podstudio/internal/podcast"
	"podstudio/internal/retry"
	"podstudio/internal/services"
)

const (
	userAgent      = "podstudio/0.1"
	defaultTimeout = 10 * time.Second
)

// Service announces generation outcomes.
type Service interface {
	NotifyGenerationCompleted(ctx context.Context, episodeID string, result podcast.GenerationResult) error
	NotifyGenerationFailed(ctx context.Context, episodeID, message string) error
	TestNotification(ctx context.Context) error
}

// Option adjusts the ntfy service.
type Option func(*ntfyService)

// WithRetryPolicy replaces the delivery retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(n *ntfyService) { n.policy = policy }
}

// NewService posts to the configured ntfy topic URL, or discards everything
// when no topic is set.
func NewService(cfg config.Notifications, opts ...Option) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	svc := &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		policy:   retry.Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// message is one ntfy post; the headers follow ntfy's publish API.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func completedMessage(episodeID string, result podcast.GenerationResult) message {
	body := fmt.Sprintf("✅ Episode %s ready (transcript v%d, %.1fs of audio)",
		strings.TrimSpace(episodeID), result.TranscriptVersion, result.Audio.DurationSeconds)
	if url := strings.TrimSpace(result.Audio.URL); url != "" {
		body += "\n" + url
	}
	return message{
		title:    "Podstudio - Episode Ready",
		body:     body,
		tags:     []string{"podstudio", "generation", "completed"},
		priority: "high",
	}
}

func failedMessage(episodeID, reason string) message {
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unknown"
	}
	return message{
		title:    "Podstudio - Generation Failed",
		body:     fmt.Sprintf("❌ Episode %s failed: %s", strings.TrimSpace(episodeID), reason),
		tags:     []string{"podstudio", "error", "alert"},
		priority: "high",
	}
}

func (m message) request(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(m.body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if m.title != "" {
		req.Header.Set("Title", m.title)
	}
	if len(m.tags) > 0 {
		req.Header.Set("Tags", strings.Join(m.tags, ","))
	}
	if m.priority != "" {
		req.Header.Set("Priority", m.priority)
	}
	return req, nil
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
}

func (n *ntfyService) NotifyGenerationCompleted(ctx context.Context, episodeID string, result podcast.GenerationResult) error {
	return n.send(ctx, completedMessage(episodeID, result))
}

func (n *ntfyService) NotifyGenerationFailed(ctx context.Context, episodeID, reason string) error {
	return n.send(ctx, failedMessage(episodeID, reason))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "Podstudio - Test",
		body:     "🧪 Notification system test",
		tags:     []string{"podstudio", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, m message) error {
	err := n.policy.Do(ctx, "ntfy publish", func(ctx context.Context) error {
		req, err := m.request(ctx, n.endpoint)
		if err != nil {
			return err
		}
		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusMultipleChoices {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return retry.NewStatusError("ntfy", resp, body)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrExternal, "notifications", "publish", "", err)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyGenerationCompleted(context.Context, string, podcast.GenerationResult) error {
	return nil
}

func (noopService) NotifyGenerationFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
