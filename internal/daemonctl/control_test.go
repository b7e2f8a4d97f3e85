package daemonctl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldtally/internal/daemonctl"
	"fieldtally/internal/testsupport"
)

func TestBuildStatusSnapshotFallsBackWhenDaemonDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.EnqueueItem(t, store, "POST", "/api/work-tasks", nil)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snapshot, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg.Paths.SocketPath, cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot failed: %v", err)
	}
	if snapshot.DaemonReachable {
		t.Fatal("expected daemon to be unreachable")
	}
	if snapshot.Status.Running {
		t.Fatal("expected not-running status")
	}
	if snapshot.Status.QueueDepth != 1 {
		t.Fatalf("expected direct outbox read to report depth 1, got %d", snapshot.Status.QueueDepth)
	}
	if snapshot.Status.Connectivity != "unknown" {
		t.Fatalf("expected unknown connectivity, got %q", snapshot.Status.Connectivity)
	}
	if snapshot.Status.OutboxDBPath != cfg.OutboxDBPath() {
		t.Fatalf("unexpected outbox path %q", snapshot.Status.OutboxDBPath)
	}
}

func TestBuildStatusSnapshotRequiresConfig(t *testing.T) {
	if _, err := daemonctl.BuildStatusSnapshot(context.Background(), "/tmp/missing.sock", nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg.Paths.SocketPath, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}
