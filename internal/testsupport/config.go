package testsupport

import (
	"path/filepath"
	"testing"

	"fieldtally/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "fieldtally.sock")
	cfgVal.Remote.BaseURL = "http://127.0.0.1:1"
	cfgVal.Proxy.Bind = "127.0.0.1:0"
	cfgVal.Network.NetlinkEvents = false
	cfgVal.Network.ProbeInterval = 1
	cfgVal.Network.ProbeTimeout = 1
	cfgVal.Sync.DrainOnReconnect = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithRemoteURL points the test config at the given server.
func WithRemoteURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = url
	}
}

// WithCacheGeneration overrides the active cache generation name.
func WithCacheGeneration(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Proxy.Generation = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
