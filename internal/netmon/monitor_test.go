package netmon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fieldtally/internal/logging"
	"fieldtally/internal/netmon"
)

type flipProber struct {
	mu   sync.Mutex
	fail bool
}

func (p *flipProber) set(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

func (p *flipProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("connection refused")
	}
	return nil
}

func waitForState(t *testing.T, m *netmon.Monitor, want netmon.State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("monitor never reached state %s (currently %s)", want, m.State())
}

func TestStartEstablishesInitialState(t *testing.T) {
	prober := &flipProber{}
	m := netmon.NewWithProber(prober, time.Hour, time.Second, logging.NewNop())

	if m.State() != netmon.StateUnknown {
		t.Fatalf("expected unknown before start, got %s", m.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	// The first probe runs synchronously inside Start.
	if !m.Online() {
		t.Fatalf("expected online after start, got %s", m.State())
	}
}

func TestSubscriberNotifiedOnTransitions(t *testing.T) {
	prober := &flipProber{fail: true}
	m := netmon.NewWithProber(prober, time.Hour, time.Second, logging.NewNop())

	var mu sync.Mutex
	var transitions []netmon.State
	m.Subscribe(func(s netmon.State) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()
	waitForState(t, m, netmon.StateOffline)

	prober.set(false)
	m.RequestProbe()
	waitForState(t, m, netmon.StateOnline)

	prober.set(true)
	m.RequestProbe()
	waitForState(t, m, netmon.StateOffline)

	mu.Lock()
	got := append([]netmon.State(nil), transitions...)
	mu.Unlock()
	want := []netmon.State{netmon.StateOffline, netmon.StateOnline, netmon.StateOffline}
	if len(got) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRepeatedProbesDoNotRenotify(t *testing.T) {
	prober := &flipProber{}
	m := netmon.NewWithProber(prober, time.Hour, time.Second, logging.NewNop())

	var mu sync.Mutex
	count := 0
	m.Subscribe(func(netmon.State) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()
	waitForState(t, m, netmon.StateOnline)

	for i := 0; i < 3; i++ {
		m.RequestProbe()
		time.Sleep(30 * time.Millisecond)
	}

	mu.Lock()
	got := count
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected a single notification for a steady state, got %d", got)
	}
}

func TestStopRetainsLastState(t *testing.T) {
	prober := &flipProber{}
	m := netmon.NewWithProber(prober, time.Hour, time.Second, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForState(t, m, netmon.StateOnline)

	m.Stop()
	if !m.Online() {
		t.Fatalf("expected last state readable after stop, got %s", m.State())
	}

	// RequestProbe after stop must be a harmless no-op.
	m.RequestProbe()
}

func TestRestartAfterStopProbesOnFreshChannels(t *testing.T) {
	prober := &flipProber{fail: true}
	m := netmon.NewWithProber(prober, time.Hour, time.Second, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForState(t, m, netmon.StateOffline)
	m.Stop()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer m.Stop()

	// The kick must reach the restarted loop, not the one shut down above.
	prober.set(false)
	m.RequestProbe()
	waitForState(t, m, netmon.StateOnline)
}

func TestStateString(t *testing.T) {
	cases := map[netmon.State]string{
		netmon.StateUnknown: "unknown",
		netmon.StateOffline: "offline",
		netmon.StateOnline:  "online",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
