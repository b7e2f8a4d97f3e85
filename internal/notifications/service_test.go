package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldtally/internal/config"
	"fieldtally/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySyncCompleted(context.Background(), 3, time.Second); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Queue = true
	cfg.Notifications.Sync = true
	cfg.Notifications.Errors = true
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyMutationQueued(context.Background(), "POST", "/api/work-tasks", 4); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if captured.title != "Fieldtally - Queued" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Saved offline: POST /api/work-tasks (4 pending)" {
		t.Fatalf("unexpected message %q", captured.body)
	}
	if captured.tags != "fieldtally,queue,captured" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}

	if err := svc.NotifySyncHalted(context.Background(), 2, "abc-123", errors.New("server rejected payload")); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if captured.title != "Fieldtally - Sync Halted" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Sync halted after 2 entries at item abc-123\nserver rejected payload" {
		t.Fatalf("unexpected message %q", captured.body)
	}
	if captured.priority != "high" {
		t.Fatalf("unexpected priority %q", captured.priority)
	}

	if err := svc.NotifySyncCompleted(context.Background(), 7, 90*time.Second); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if captured.body != "Replayed 7 queued entries in 1m30s" {
		t.Fatalf("unexpected message %q", captured.body)
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Queue = false
	cfg.Notifications.Sync = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyMutationQueued(context.Background(), "POST", "/api/work-days", 1); err != nil {
		t.Fatalf("expected suppressed queue event to return nil, got %v", err)
	}
	if err := svc.NotifySyncCompleted(context.Background(), 1, time.Second); err != nil {
		t.Fatalf("expected suppressed sync event to return nil, got %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "drain"); err != nil {
		t.Fatalf("expected suppressed error event to return nil, got %v", err)
	}
}
