package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytqueue/internal/config"
)

const userAgent = "ytqueue/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyQueueEmpty(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyDownloadFailed(ctx context.Context, label, detail string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		queueEmpty: cfg.Notifications.QueueEmpty,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	queueEmpty bool
	errors     bool
}

func (n *ntfyService) NotifyQueueEmpty(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.queueEmpty {
		return nil
	}
	duration = max(duration.Round(time.Second), 0)

	title := "ytqueue - Queue Complete"
	message := fmt.Sprintf("Queue finished: %d downloaded in %s", processed, duration)
	if failed > 0 {
		title = "ytqueue - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue finished: %d succeeded, %d failed in %s", processed-failed, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"ytqueue", "queue", "completed"},
	})
}

func (n *ntfyService) NotifyDownloadFailed(ctx context.Context, label, detail string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Download failed")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(": ")
		builder.WriteString(label)
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		builder.WriteString("\n")
		builder.WriteString(detail)
	}
	return n.send(ctx, payload{
		title:    "ytqueue - Error",
		message:  builder.String(),
		tags:     []string{"ytqueue", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "ytqueue - Test",
		message:  "Notification system test",
		tags:     []string{"ytqueue", "test"},
		priority: "low",
	})
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

func (noopService) NotifyQueueEmpty(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyDownloadFailed(context.Context, string, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
