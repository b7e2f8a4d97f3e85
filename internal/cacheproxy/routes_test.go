package cacheproxy_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fieldtally/internal/cacheproxy"
)

func TestClassifyDefaults(t *testing.T) {
	routes, err := cacheproxy.LoadRoutes("")
	if err != nil {
		t.Fatalf("LoadRoutes failed: %v", err)
	}

	cases := []struct {
		method string
		path   string
		want   cacheproxy.Class
	}{
		{http.MethodGet, "/", cacheproxy.ClassShell},
		{http.MethodGet, "/index.html", cacheproxy.ClassShell},
		{http.MethodGet, "/static/app.js", cacheproxy.ClassShell},
		{http.MethodGet, "/favicon.ico", cacheproxy.ClassShell},
		{http.MethodGet, "/api/workers", cacheproxy.ClassAPIRead},
		{http.MethodHead, "/api/healthz", cacheproxy.ClassAPIRead},
		{http.MethodPost, "/api/work-tasks", cacheproxy.ClassAPIMutation},
		{http.MethodPatch, "/api/workers/w-1", cacheproxy.ClassAPIMutation},
		{http.MethodDelete, "/api/work-tasks/t-1", cacheproxy.ClassAPIMutation},
		{http.MethodOptions, "/api/workers", cacheproxy.ClassPassthrough},
		{http.MethodPost, "/index.html", cacheproxy.ClassPassthrough},
		{http.MethodGet, "/metrics", cacheproxy.ClassPassthrough},
		{http.MethodGet, "/staticfile", cacheproxy.ClassPassthrough},
	}
	for _, tc := range cases {
		if got := routes.Classify(tc.method, tc.path); got != tc.want {
			t.Errorf("Classify(%s, %s) = %s, want %s", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestLoadRoutesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	data := "shell:\n  - /app.html\napi:\n  - api/v2/\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write routes: %v", err)
	}

	routes, err := cacheproxy.LoadRoutes(path)
	if err != nil {
		t.Fatalf("LoadRoutes failed: %v", err)
	}
	if got := routes.Classify(http.MethodGet, "/app.html"); got != cacheproxy.ClassShell {
		t.Fatalf("expected shell classification, got %s", got)
	}
	// Missing leading slash is normalized.
	if got := routes.Classify(http.MethodGet, "/api/v2/workers"); got != cacheproxy.ClassAPIRead {
		t.Fatalf("expected api-read classification, got %s", got)
	}
	if got := routes.Classify(http.MethodGet, "/api/workers"); got != cacheproxy.ClassPassthrough {
		t.Fatalf("expected passthrough for unlisted prefix, got %s", got)
	}
}

func TestLoadRoutesRequiresAPIPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte("shell:\n  - /\n"), 0o644); err != nil {
		t.Fatalf("write routes: %v", err)
	}
	if _, err := cacheproxy.LoadRoutes(path); err == nil {
		t.Fatal("expected error for route table without api prefixes")
	}
}

func TestActivatingNewGenerationPurgesOldEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store, err := cacheproxy.OpenStore(dbPath, "v1")
	if err != nil {
		t.Fatalf("OpenStore v1 failed: %v", err)
	}
	ctx := context.Background()
	entry := &cacheproxy.Entry{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`[]`),
		CachedAt:   time.Now().UTC(),
	}
	if err := store.Put(ctx, http.MethodGet, "http://origin/api/workers", entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening under a new generation drops everything cached under v1.
	store, err = cacheproxy.OpenStore(dbPath, "v2")
	if err != nil {
		t.Fatalf("OpenStore v2 failed: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, http.MethodGet, "http://origin/api/workers"); err != nil {
		t.Fatalf("Get failed: %v", err)
	} else if ok {
		t.Fatal("expected v1 entry purged after generation change")
	}
}

func TestSameGenerationSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := cacheproxy.OpenStore(dbPath, "v1")
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	entry := &cacheproxy.Entry{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte("shell")}
	if err := store.Put(ctx, http.MethodGet, "http://origin/index.html", entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = cacheproxy.OpenStore(dbPath, "v1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	got, ok, err := store.Get(ctx, http.MethodGet, "http://origin/index.html")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(got.Body) != "shell" {
		t.Fatalf("expected entry to survive reopen, got ok=%v body=%q", ok, got)
	}
}
