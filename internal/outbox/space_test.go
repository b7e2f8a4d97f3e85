package outbox

import (
	"context"
	"errors"
	"testing"

	"fieldtally/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueRefusesWhenVolumeNearlyFull(t *testing.T) {
	store := openTestStore(t)
	store.minFree = 16 * 1024 * 1024
	store.statfsFunc = func(string) (uint64, error) { return 1024, nil }

	err := store.Enqueue(context.Background(), NewItem("POST", "/api/work-tasks", nil))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	depth, err := store.Depth(context.Background())
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if depth != 0 {
		t.Fatalf("expected nothing persisted, got depth %d", depth)
	}
}

func TestEnqueueProceedsWhenStatfsUnavailable(t *testing.T) {
	store := openTestStore(t)
	store.minFree = 16 * 1024 * 1024
	store.statfsFunc = func(string) (uint64, error) { return 0, errors.New("statfs unsupported") }

	if err := store.Enqueue(context.Background(), NewItem("POST", "/api/work-tasks", nil)); err != nil {
		t.Fatalf("expected enqueue to proceed, got %v", err)
	}
}
