package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fieldtally/internal/config"
)

const userAgent = "Fieldtally/0.1.0"

// Service defines the notification surface exposed to the sync and queue
// components.
type Service interface {
	NotifyMutationQueued(ctx context.Context, method, path string, depth int) error
	NotifySyncCompleted(ctx context.Context, synced int, duration time.Duration) error
	NotifySyncHalted(ctx context.Context, synced int, itemID string, cause error) error
	NotifyConnectivityChanged(ctx context.Context, online bool) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:    topic,
		client:      client,
		queueEvents: cfg.Notifications.Queue,
		syncEvents:  cfg.Notifications.Sync,
		errorEvents: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	queueEvents bool
	syncEvents  bool
	errorEvents bool
}

func (n *ntfyService) NotifyMutationQueued(ctx context.Context, method, path string, depth int) error {
	if !n.queueEvents {
		return nil
	}
	data := payload{
		title:   "Fieldtally - Queued",
		message: fmt.Sprintf("Saved offline: %s %s (%d pending)", method, path, depth),
		tags:    []string{"fieldtally", "queue", "captured"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, synced int, duration time.Duration) error {
	if !n.syncEvents {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}
	data := payload{
		title:   "Fieldtally - Sync Complete",
		message: fmt.Sprintf("Replayed %d queued entries in %s", synced, durationText),
		tags:    []string{"fieldtally", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncHalted(ctx context.Context, synced int, itemID string, cause error) error {
	if !n.syncEvents {
		return nil
	}
	message := fmt.Sprintf("Sync halted after %d entries at item %s", synced, itemID)
	if cause != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Fieldtally - Sync Halted",
		message:  message,
		tags:     []string{"fieldtally", "sync", "halted"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConnectivityChanged(ctx context.Context, online bool) error {
	if !n.syncEvents {
		return nil
	}
	data := payload{
		title:   "Fieldtally - Offline",
		message: "Connection lost: new entries will be saved locally",
		tags:    []string{"fieldtally", "network", "offline"},
	}
	if online {
		data = payload{
			title:   "Fieldtally - Online",
			message: "Connection restored: replaying queued entries",
			tags:    []string{"fieldtally", "network", "online"},
		}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
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
		title:    "Fieldtally - Error",
		message:  builder.String(),
		tags:     []string{"fieldtally", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Fieldtally - Test",
		message:  "Notification system test",
		tags:     []string{"fieldtally", "test"},
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

func (noopService) NotifyMutationQueued(context.Context, string, string, int) error        { return nil }
func (noopService) NotifySyncCompleted(context.Context, int, time.Duration) error          { return nil }
func (noopService) NotifySyncHalted(context.Context, int, string, error) error             { return nil }
func (noopService) NotifyConnectivityChanged(context.Context, bool) error                  { return nil }
func (noopService) NotifyError(context.Context, error, string) error                       { return nil }
func (noopService) TestNotification(context.Context) error                                 { return nil }
