package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"fieldtally/internal/config"
	"fieldtally/internal/outbox"
)

// MustOpenStore opens an outbox.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *outbox.Store {
	t.Helper()

	store, err := outbox.Open(cfg)
	if err != nil {
		t.Fatalf("outbox.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueItem queues a mutation for tests using the provided store.
func EnqueueItem(t testing.TB, store *outbox.Store, method, path string, body json.RawMessage) *outbox.Item {
	t.Helper()

	item := outbox.NewItem(method, path, body)
	if err := store.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
