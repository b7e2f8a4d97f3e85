package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	if err := c.normalizeProxy(); err != nil {
		return err
	}
	c.normalizeNetwork()
	c.normalizeStorage()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() error {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRemoteTimeout
	}
	c.Remote.HealthPath = strings.TrimSpace(c.Remote.HealthPath)
	if c.Remote.HealthPath == "" {
		c.Remote.HealthPath = defaultHealthPath
	}
	if !strings.HasPrefix(c.Remote.HealthPath, "/") {
		c.Remote.HealthPath = "/" + c.Remote.HealthPath
	}
	return nil
}

func (c *Config) normalizeProxy() error {
	c.Proxy.Bind = strings.TrimSpace(c.Proxy.Bind)
	if c.Proxy.Bind == "" {
		c.Proxy.Bind = defaultProxyBind
	}
	c.Proxy.Generation = strings.TrimSpace(c.Proxy.Generation)
	if c.Proxy.Generation == "" {
		c.Proxy.Generation = defaultCacheGeneration
	}
	if trimmed := strings.TrimSpace(c.Proxy.RoutesPath); trimmed != "" {
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("proxy.routes_path: %w", err)
		}
		c.Proxy.RoutesPath = expanded
	} else {
		c.Proxy.RoutesPath = ""
	}
	return nil
}

func (c *Config) normalizeNetwork() {
	if c.Network.ProbeInterval <= 0 {
		c.Network.ProbeInterval = defaultProbeInterval
	}
	if c.Network.ProbeTimeout <= 0 {
		c.Network.ProbeTimeout = defaultProbeTimeout
	}
}

func (c *Config) normalizeStorage() {
	if c.Storage.MinFreeMiB < 0 {
		c.Storage.MinFreeMiB = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
