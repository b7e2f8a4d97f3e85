package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"fieldtally/internal/cacheproxy"
	"fieldtally/internal/config"
	"fieldtally/internal/logging"
	"fieldtally/internal/netmon"
	"fieldtally/internal/notifications"
	"fieldtally/internal/outbox"
	"fieldtally/internal/remote"
	"fieldtally/internal/session"
	"fieldtally/internal/syncengine"
)

// Daemon coordinates the outbox, dispatcher, sync engine, network monitor,
// and cache proxy, and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *outbox.Store
	sessions   *session.Store
	dispatcher *remote.Client
	engine     *syncengine.Engine
	monitor    *netmon.Monitor
	notifier   notifications.Service

	proxy   *cacheproxy.Proxy
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	wg      sync.WaitGroup

	// mu guards the fields below against the monitor callback, which runs on
	// the monitor's goroutine while Start and Stop run on the caller's.
	mu          sync.Mutex
	stopping    bool
	proxyServer *http.Server
	ctx         context.Context
	cancel      context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Connectivity string
	QueueDepth   int
	OutboxDBPath string
	CacheDBPath  string
	LockFilePath string
	ProxyBind    string
	RemoteURL    string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, err := outbox.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}

	sessions := session.NewStore(cfg.SessionPath())
	dispatcher := remote.NewFromConfig(cfg, store, sessions, logger)
	monitor := netmon.New(cfg, logger)
	engine := syncengine.New(store, dispatcher, monitor, cfg.DrainLockPath(), logger)
	notifier := notifications.NewService(cfg)

	proxy, err := cacheproxy.New(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open cache proxy: %w", err)
	}

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		sessions:   sessions,
		dispatcher: dispatcher,
		engine:     engine,
		monitor:    monitor,
		notifier:   notifier,
		proxy:      proxy,
		logPath:    filepath.Join(cfg.Paths.LogDir, "fieldtally.log"),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	dispatcher.SetQueueObserver(d)
	monitor.Subscribe(d.onConnectivityChange)
	return d, nil
}

// MutationQueued forwards queue capture events to the notifier.
func (d *Daemon) MutationQueued(method, path, itemID string, depth int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.notifier.NotifyMutationQueued(ctx, method, path, depth); err != nil {
		d.logger.Warn("queue notification failed", logging.Error(err))
	}
}

// Start acquires the daemon lock, starts the network monitor, and begins
// serving the cache proxy.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fieldtally daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.stopping = false
	d.mu.Unlock()

	fail := func() {
		cancel()
		d.mu.Lock()
		d.ctx, d.cancel = nil, nil
		d.mu.Unlock()
		_ = d.lock.Unlock()
	}

	if err := d.monitor.Start(runCtx); err != nil {
		fail()
		return fmt.Errorf("start network monitor: %w", err)
	}

	listener, err := net.Listen("tcp", d.cfg.Proxy.Bind)
	if err != nil {
		d.monitor.Stop()
		fail()
		return fmt.Errorf("bind cache proxy: %w", err)
	}

	srv := &http.Server{Handler: d.proxy}
	d.mu.Lock()
	d.proxyServer = srv
	d.mu.Unlock()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("cache proxy stopped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "proxy_failed"),
				logging.String(logging.FieldImpact, "local app traffic no longer served"),
			)
		}
	}()

	d.running.Store(true)
	d.logger.Info("fieldtally daemon started",
		logging.String("lock", d.lockPath),
		logging.String("proxy_bind", d.cfg.Proxy.Bind),
		logging.String("remote", d.cfg.Remote.BaseURL),
	)
	return nil
}

// onConnectivityChange reacts to monitor transitions: a reconnect kicks a
// background drain when configured.
func (d *Daemon) onConnectivityChange(state netmon.State) {
	d.mu.Lock()
	ctx := d.ctx
	stopping := d.stopping
	d.mu.Unlock()
	if ctx == nil || stopping {
		return
	}

	if err := d.notifier.NotifyConnectivityChanged(ctx, state == netmon.StateOnline); err != nil {
		d.logger.Warn("connectivity notification failed", logging.Error(err))
	}

	if state != netmon.StateOnline || !d.cfg.Sync.DrainOnReconnect {
		return
	}

	// The Add must not race a Stop already waiting on the group.
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		d.drain(ctx, "reconnect")
	}()
}

// drain runs the sync engine once and reports the outcome. Concurrent drains
// collapse to a single run via the engine's lease.
func (d *Daemon) drain(ctx context.Context, trigger string) syncengine.Result {
	started := time.Now()
	result, err := d.engine.Drain(ctx)
	switch {
	case err == nil:
		if result.Synced > 0 {
			if nerr := d.notifier.NotifySyncCompleted(ctx, result.Synced, time.Since(started)); nerr != nil {
				d.logger.Warn("sync notification failed", logging.Error(nerr))
			}
		}
	case errors.Is(err, syncengine.ErrDrainBusy), errors.Is(err, syncengine.ErrOffline):
		d.logger.Debug("drain skipped",
			logging.String("trigger", trigger),
			logging.Error(err),
		)
	default:
		d.logger.Error("drain failed",
			logging.String("trigger", trigger),
			logging.String(logging.FieldItemID, result.FailedID),
			logging.Int("synced", result.Synced),
			logging.Error(err),
			logging.String(logging.FieldEventType, "drain_failed"),
			logging.String(logging.FieldErrorHint, "Inspect the failed item with fieldtally queue list"),
		)
		if nerr := d.notifier.NotifySyncHalted(ctx, result.Synced, result.FailedID, err); nerr != nil {
			d.logger.Warn("sync notification failed", logging.Error(nerr))
		}
	}
	return result
}

// Stop stops background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	d.stopping = true
	srv := d.proxyServer
	d.proxyServer = nil
	cancel := d.cancel
	d.ctx, d.cancel = nil, nil
	d.mu.Unlock()

	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancelShutdown()
	}
	d.monitor.Stop()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("fieldtally daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.proxy != nil {
		if err := d.proxy.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncNow runs a drain immediately, regardless of how it was triggered.
func (d *Daemon) SyncNow(ctx context.Context) (syncengine.Result, error) {
	started := time.Now()
	result, err := d.engine.Drain(ctx)
	if err == nil && result.Synced > 0 {
		if nerr := d.notifier.NotifySyncCompleted(ctx, result.Synced, time.Since(started)); nerr != nil {
			d.logger.Warn("sync notification failed", logging.Error(nerr))
		}
	}
	return result, err
}

// ListQueue returns the pending outbox items in replay order.
func (d *Daemon) ListQueue(ctx context.Context) ([]*outbox.Item, error) {
	if d.store == nil {
		return nil, errors.New("outbox store unavailable")
	}
	return d.store.ListAll(ctx)
}

// ClearQueue discards all pending items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("outbox store unavailable")
	}
	removed, err := d.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	d.logger.Info("outbox cleared",
		logging.Int64("removed_count", removed),
		logging.String(logging.FieldEventType, "queue_clear"),
	)
	return removed, nil
}

// RemoveQueueItem discards a single pending item by id.
func (d *Daemon) RemoveQueueItem(ctx context.Context, id string) (bool, error) {
	if d.store == nil {
		return false, errors.New("outbox store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// RequestProbe asks the network monitor for an immediate connectivity check.
func (d *Daemon) RequestProbe() {
	d.monitor.RequestProbe()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	depth := -1
	if d.store != nil {
		if n, err := d.store.Depth(ctx); err == nil {
			depth = n
		}
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Connectivity: d.monitor.State().String(),
		QueueDepth:   depth,
		OutboxDBPath: d.cfg.OutboxDBPath(),
		CacheDBPath:  d.cfg.CacheDBPath(),
		LockFilePath: d.lockPath,
		ProxyBind:    d.cfg.Proxy.Bind,
		RemoteURL:    d.cfg.Remote.BaseURL,
	}
}
