package config

const (
	defaultDataDir         = "~/.local/share/fieldtally"
	defaultLogDir          = "~/.local/share/fieldtally/logs"
	defaultSocketPath      = "~/.local/share/fieldtally/fieldtallyd.sock"
	defaultRemoteTimeout   = 30
	defaultHealthPath      = "/api/healthz"
	defaultProxyBind       = "127.0.0.1:8473"
	defaultCacheGeneration = "fieldtally-v1"
	defaultProbeInterval   = 20
	defaultProbeTimeout    = 5
	defaultMinFreeMiB      = 16
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Remote: Remote{
			RequestTimeout: defaultRemoteTimeout,
			HealthPath:     defaultHealthPath,
		},
		Proxy: Proxy{
			Bind:       defaultProxyBind,
			Generation: defaultCacheGeneration,
		},
		Network: Network{
			ProbeInterval: defaultProbeInterval,
			ProbeTimeout:  defaultProbeTimeout,
			NetlinkEvents: true,
		},
		Sync: Sync{
			DrainOnReconnect: true,
		},
		Storage: Storage{
			MinFreeMiB: defaultMinFreeMiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Queue:          true,
			Sync:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
