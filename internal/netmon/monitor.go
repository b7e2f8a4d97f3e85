package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fieldtally/internal/config"
	"fieldtally/internal/logging"
)

// State is the connectivity state machine: Offline or Online, with Unknown
// only before the first probe completes.
type State int

const (
	StateUnknown State = iota
	StateOffline
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateOnline:
		return "online"
	default:
		return "unknown"
	}
}

// Prober decides whether the remote API is reachable. A nil error means
// online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// Monitor tracks connectivity transitions by probing the remote API on an
// interval, with kernel interface events triggering immediate re-probes.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	netlink  *netlinkWatcher

	mu      sync.Mutex
	state   State
	subs    []func(State)
	quit    chan struct{}
	kick    chan struct{}
	running bool
}

// New builds a monitor probing HEAD <base_url><health_path>.
func New(cfg *config.Config, logger *slog.Logger) *Monitor {
	timeout := time.Duration(cfg.Network.ProbeTimeout) * time.Second
	prober := &httpProber{
		url:    cfg.Remote.BaseURL + cfg.Remote.HealthPath,
		client: &http.Client{Timeout: timeout},
	}
	m := NewWithProber(prober, time.Duration(cfg.Network.ProbeInterval)*time.Second, timeout, logger)
	if cfg.Network.NetlinkEvents {
		m.netlink = newNetlinkWatcher(m.logger, m.RequestProbe)
	}
	return m
}

// NewWithProber builds a monitor with an injected prober; tests use this.
func NewWithProber(prober Prober, interval, timeout time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "netmon"),
		state:    StateUnknown,
	}
}

// Subscribe registers a callback invoked on every state transition, including
// the first determination after startup. Callbacks run on the monitor
// goroutine and must not block for long.
func (m *Monitor) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// State returns the current connectivity state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Online reports whether the monitor currently believes the API is reachable.
func (m *Monitor) Online() bool {
	return m.State() == StateOnline
}

// Start probes once synchronously to establish the initial state, then begins
// periodic probing.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.quit = make(chan struct{})
	m.kick = make(chan struct{}, 1)
	m.running = true
	quit := m.quit
	kick := m.kick
	m.mu.Unlock()

	m.probe(ctx)

	if m.netlink != nil {
		m.netlink.Start(ctx)
	}
	go m.loop(ctx, quit, kick)

	m.logger.Info("network monitor started",
		logging.String(logging.FieldConnectivity, m.State().String()),
		logging.Duration("probe_interval", m.interval),
	)
	return nil
}

// Stop halts probing. The last observed state remains readable.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	m.running = false
	if m.netlink != nil {
		m.netlink.Stop()
	}
	m.logger.Info("network monitor stopped")
}

// RequestProbe schedules an immediate probe without waiting for the next
// tick. Safe to call from any goroutine; coalesces when one is pending.
func (m *Monitor) RequestProbe() {
	m.mu.Lock()
	kick := m.kick
	running := m.running
	m.mu.Unlock()
	if !running || kick == nil {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

func (m *Monitor) loop(ctx context.Context, quit, kick <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			m.probe(ctx)
		case <-kick:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	next := StateOnline
	if err != nil {
		next = StateOffline
	}
	m.transition(next, err)
}

func (m *Monitor) transition(next State, cause error) {
	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	subs := make([]func(State), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if next == StateOffline {
		m.logger.Warn("connectivity lost",
			logging.Error(cause),
			logging.String(logging.FieldConnectivity, next.String()),
			logging.String(logging.FieldEventType, "became_offline"),
			logging.String(logging.FieldImpact, "mutations will be queued locally"),
		)
	} else {
		m.logger.Info("connectivity restored",
			logging.String(logging.FieldConnectivity, next.String()),
			logging.String(logging.FieldEventType, "became_online"),
		)
	}

	for _, fn := range subs {
		fn(next)
	}
}

type httpProber struct {
	url    string
	client *http.Client
}

// Probe treats any completed round-trip as reachable; an error status still
// proves the transport works.
func (p *httpProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
