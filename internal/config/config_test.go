package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fieldtally/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://api.example.com"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Remote.HealthPath != "/api/healthz" {
		t.Fatalf("unexpected default health path %q", cfg.Remote.HealthPath)
	}
	if cfg.Proxy.Generation == "" {
		t.Fatal("expected default cache generation")
	}
	if !cfg.Sync.DrainOnReconnect {
		t.Fatal("expected drain-on-reconnect enabled by default")
	}
	if cfg.Network.ProbeInterval <= cfg.Network.ProbeTimeout {
		t.Fatalf("expected probe interval %d to exceed timeout %d", cfg.Network.ProbeInterval, cfg.Network.ProbeTimeout)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	path := writeConfig(t, "[remote]\n")
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing base_url")
	}
	if !strings.Contains(err.Error(), "remote.base_url") {
		t.Fatalf("expected base_url mention, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bad scheme",
			body: "[remote]\nbase_url = \"ftp://host\"\n",
			want: "http or https",
		},
		{
			name: "bad bind",
			body: "[remote]\nbase_url = \"http://host\"\n[proxy]\nbind = \"8080\"\n",
			want: "proxy.bind",
		},
		{
			name: "probe timeout too long",
			body: "[remote]\nbase_url = \"http://host\"\n[network]\nprobe_interval = 5\nprobe_timeout = 10\n",
			want: "probe_timeout",
		},
		{
			name: "bad log level",
			body: "[remote]\nbase_url = \"http://host\"\n[logging]\nlevel = \"verbose\"\n",
			want: "logging.level",
		},
		{
			name: "bad log format",
			body: "[remote]\nbase_url = \"http://host\"\n[logging]\nformat = \"xml\"\n",
			want: "logging.format",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadNormalizesHealthPath(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "http://host"
health_path = "healthz"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.HealthPath != "/healthz" {
		t.Fatalf("expected leading slash added, got %q", cfg.Remote.HealthPath)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/var/lib/fieldtally"

	if got := cfg.OutboxDBPath(); got != "/var/lib/fieldtally/outbox.db" {
		t.Fatalf("unexpected outbox path %q", got)
	}
	if got := cfg.CacheDBPath(); got != "/var/lib/fieldtally/cache.db" {
		t.Fatalf("unexpected cache path %q", got)
	}
	if got := cfg.SessionPath(); got != "/var/lib/fieldtally/session.json" {
		t.Fatalf("unexpected session path %q", got)
	}
	if got := cfg.LockPath(); got != "/var/lib/fieldtally/fieldtallyd.lock" {
		t.Fatalf("unexpected lock path %q", got)
	}
	if got := cfg.DrainLockPath(); got != "/var/lib/fieldtally/drain.lock" {
		t.Fatalf("unexpected drain lock path %q", got)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Remote.BaseURL == "" {
		t.Fatal("expected sample to set remote.base_url")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q, err=%v", dir, err)
		}
	}
}
