package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fieldtally/internal/daemon"
	"fieldtally/internal/logging"
	"fieldtally/internal/testsupport"
)

func TestDaemonLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.Connectivity != "online" {
		t.Fatalf("expected online connectivity, got %q", status.Connectivity)
	}
	if status.QueueDepth != 0 {
		t.Fatalf("expected empty queue, got %d", status.QueueDepth)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status after Stop")
	}
}

func TestImmediateStopAfterStart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stopping before the proxy goroutine gets scheduled must not crash it.
	for i := 0; i < 5; i++ {
		if err := d.Start(ctx); err != nil {
			t.Fatalf("Start cycle %d failed: %v", i, err)
		}
		d.Stop()
		if d.Status(ctx).Running {
			t.Fatalf("cycle %d: expected stopped status after Stop", i)
		}
	}
}

func TestStopDuringReconnectDrain(t *testing.T) {
	var replays atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			time.Sleep(50 * time.Millisecond)
			replays.Add(1)
			w.WriteHeader(http.StatusCreated)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	cfg.Sync.DrainOnReconnect = true
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueItem(t, store, "POST", "/api/work-tasks", nil)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The initial probe comes back online and kicks a background drain; Stop
	// right away must wait it out rather than race its registration.
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	if d.Status(ctx).Running {
		t.Fatal("expected stopped status after Stop")
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer first.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New for second instance failed: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused while the lock is held")
	}
}

func TestSyncNowDrainsSeededQueue(t *testing.T) {
	var replays atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			replays.Add(1)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueItem(t, store, "POST", "/api/work-days", json.RawMessage(`{"worker_id":"w-1"}`))
	testsupport.EnqueueItem(t, store, "POST", "/api/work-tasks", json.RawMessage(`{"quantity":2}`))

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	result, err := d.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if result.Synced != 2 {
		t.Fatalf("expected 2 synced, got %d", result.Synced)
	}
	if replays.Load() != 2 {
		t.Fatalf("expected 2 replay requests, got %d", replays.Load())
	}
	if d.Status(ctx).QueueDepth != 0 {
		t.Fatalf("expected drained queue, got depth %d", d.Status(ctx).QueueDepth)
	}
}

func TestReconnectTriggersDrain(t *testing.T) {
	var healthy atomic.Bool
	var replays atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			// Simulated outage: hang up without a response.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		if r.Method == http.MethodPost {
			replays.Add(1)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	cfg.Sync.DrainOnReconnect = true
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueItem(t, store, "POST", "/api/work-tasks", nil)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if d.Status(ctx).Connectivity != "offline" {
		t.Fatalf("expected offline start, got %q", d.Status(ctx).Connectivity)
	}

	healthy.Store(true)
	d.RequestProbe()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if replays.Load() > 0 && d.Status(ctx).QueueDepth == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("reconnect drain never ran: replays=%d depth=%d", replays.Load(), d.Status(ctx).QueueDepth)
}
