package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"fieldtally/internal/logging"
	"fieldtally/internal/remote"
	"fieldtally/internal/session"
	"fieldtally/internal/testsupport"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Current() (string, bool) { return s.token, s.token != "" }

type recordingObserver struct {
	mu     sync.Mutex
	events []string
	depths []int
}

func (o *recordingObserver) MutationQueued(method, path, itemID string, depth int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, method+" "+path)
	o.depths = append(o.depths, depth)
}

func TestExecuteReturnsBodyOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("expected bearer token on request, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"t-1"}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	client := remote.New(server.URL, http.DefaultClient, store, staticTokens{"token-123"}, logging.NewNop())

	res, err := client.Execute(context.Background(), "POST", "/api/work-tasks", map[string]any{"quantity": 4}, remote.ExecuteOptions{AllowQueue: true})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Queued {
		t.Fatal("expected completed round-trip, not a queued outcome")
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %d", res.StatusCode)
	}
	if string(res.Body) != `{"id":"t-1"}` {
		t.Fatalf("unexpected body %s", res.Body)
	}
}

func TestExecuteQueuesMutationOnTransportFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	// Port 1 refuses connections; every call is a transport failure.
	client := remote.New("http://127.0.0.1:1", http.DefaultClient, store, nil, logging.NewNop())
	observer := &recordingObserver{}
	client.SetQueueObserver(observer)

	ctx := context.Background()
	res, err := client.Execute(ctx, "POST", "/api/work-days", json.RawMessage(`{"worker_id":"w-1"}`), remote.ExecuteOptions{AllowQueue: true})
	if err != nil {
		t.Fatalf("expected queued outcome, got error: %v", err)
	}
	if !res.Queued || res.ItemID == "" {
		t.Fatalf("expected queued result with item id, got %#v", res)
	}

	item, err := store.GetByID(ctx, res.ItemID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil {
		t.Fatal("expected item persisted in outbox")
	}
	if item.Method != "POST" || item.Path != "/api/work-days" {
		t.Fatalf("unexpected persisted item: %#v", item)
	}
	if string(item.Body) != `{"worker_id":"w-1"}` {
		t.Fatalf("unexpected persisted body %s", item.Body)
	}

	if len(observer.events) != 1 || observer.events[0] != "POST /api/work-days" {
		t.Fatalf("unexpected observer events: %v", observer.events)
	}
	if observer.depths[0] != 1 {
		t.Fatalf("expected reported depth 1, got %d", observer.depths[0])
	}
}

func TestExecutePinsProvidedItemID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := remote.New("http://127.0.0.1:1", http.DefaultClient, store, nil, logging.NewNop())

	res, err := client.Execute(context.Background(), "POST", "/api/work-tasks", nil, remote.ExecuteOptions{
		AllowQueue: true,
		ItemID:     "pinned-id",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.ItemID != "pinned-id" {
		t.Fatalf("expected pinned item id, got %q", res.ItemID)
	}
	item, err := store.GetByID(context.Background(), "pinned-id")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil {
		t.Fatal("expected item stored under the pinned id")
	}
}

func TestReadsNeverQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := remote.New("http://127.0.0.1:1", http.DefaultClient, store, nil, logging.NewNop())

	ctx := context.Background()
	if _, err := client.Get(ctx, "/api/workers"); !errors.Is(err, remote.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	depth, err := store.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if depth != 0 {
		t.Fatalf("expected reads to never enqueue, got depth %d", depth)
	}
}

func TestQueueDisabledPropagatesTransportError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := remote.New("http://127.0.0.1:1", http.DefaultClient, store, nil, logging.NewNop())

	_, err := client.Execute(context.Background(), "POST", "/api/work-tasks", nil, remote.ExecuteOptions{AllowQueue: false})
	if !errors.Is(err, remote.ErrTransport) {
		t.Fatalf("expected ErrTransport with queuing disabled, got %v", err)
	}
}

func TestCallerCancelIsNotQueued(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	client := remote.New(server.URL, http.DefaultClient, store, nil, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Execute(ctx, "POST", "/api/work-tasks", nil, remote.ExecuteOptions{AllowQueue: true}); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	depth, err := store.Depth(context.Background())
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if depth != 0 {
		t.Fatalf("expected caller cancellation not to enqueue, got depth %d", depth)
	}
}

func TestErrorStatusDecodedIntoStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"work day already open"}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	client := remote.New(server.URL, http.DefaultClient, store, nil, logging.NewNop())

	ctx := context.Background()
	_, err := client.Execute(ctx, "POST", "/api/work-days", nil, remote.ExecuteOptions{AllowQueue: true})
	if !errors.Is(err, remote.ErrApplication) {
		t.Fatalf("expected ErrApplication, got %v", err)
	}
	var statusErr *remote.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
	if statusErr.Message != "work day already open" {
		t.Fatalf("unexpected message %q", statusErr.Message)
	}

	// A rejected request reached the server; it must never be queued.
	depth, err := store.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if depth != 0 {
		t.Fatalf("expected no queued items for application errors, got depth %d", depth)
	}
}

func TestTokenReadAtCallTime(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	sessions := session.NewStore(cfg.SessionPath())
	client := remote.New(server.URL, http.DefaultClient, store, sessions, logging.NewNop())

	ctx := context.Background()
	if _, err := client.Get(ctx, "/api/workers"); err != nil {
		t.Fatalf("Get before login failed: %v", err)
	}
	if err := sessions.Save("fresh-token"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := client.Get(ctx, "/api/workers"); err != nil {
		t.Fatalf("Get after login failed: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	if seen[0] != "" {
		t.Fatalf("expected no token before login, got %q", seen[0])
	}
	if seen[1] != "Bearer fresh-token" {
		t.Fatalf("expected refreshed token at call time, got %q", seen[1])
	}
}
