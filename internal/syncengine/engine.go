package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"fieldtally/internal/logging"
	"fieldtally/internal/outbox"
	"fieldtally/internal/remote"
)

// ErrOffline is returned when Drain is invoked while the network monitor
// reports offline. It is a precondition failure, not a failed attempt: no
// network call is made.
var ErrOffline = errors.New("drain refused: network is offline")

// ErrDrainBusy is returned when another process holds the drain lease over
// the shared outbox.
var ErrDrainBusy = errors.New("drain already in progress")

// ConnectivitySource reports whether the remote API is currently reachable.
type ConnectivitySource interface {
	Online() bool
}

// Replayer re-issues a queued mutation. Satisfied by *remote.Client.
type Replayer interface {
	Execute(ctx context.Context, method, path string, body any, opts remote.ExecuteOptions) (*remote.Result, error)
}

// Result summarizes a drain pass.
type Result struct {
	// Synced counts items confirmed by the server and removed from the outbox.
	Synced int
	// FailedID identifies the item that halted the pass, when it halted early.
	FailedID string
}

// Engine drains the outbox through the dispatcher in strict enqueue order.
type Engine struct {
	store        *outbox.Store
	dispatcher   Replayer
	connectivity ConnectivitySource
	lease        *flock.Flock
	logger       *slog.Logger
}

// New constructs a sync engine. lockPath guards against two processes
// draining the same outbox concurrently; pass "" to disable the lease.
func New(store *outbox.Store, dispatcher Replayer, connectivity ConnectivitySource, lockPath string, logger *slog.Logger) *Engine {
	e := &Engine{
		store:        store,
		dispatcher:   dispatcher,
		connectivity: connectivity,
		logger:       logging.NewComponentLogger(logger, "sync-engine"),
	}
	if lockPath != "" {
		e.lease = flock.New(lockPath)
	}
	return e
}

// Drain replays pending mutations oldest-first, strictly sequentially, and
// removes each item only after its replay is confirmed successful. The first
// failure of any kind halts the pass, leaving the failing item and everything
// after it untouched: later items may depend on earlier ones, so resuming out
// of order could corrupt server-side state.
//
// The returned error is nil only when the snapshot drained completely.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	if e.connectivity != nil && !e.connectivity.Online() {
		return Result{}, ErrOffline
	}

	if e.lease != nil {
		locked, err := e.lease.TryLock()
		if err != nil {
			return Result{}, fmt.Errorf("acquire drain lease: %w", err)
		}
		if !locked {
			return Result{}, ErrDrainBusy
		}
		defer func() { _ = e.lease.Unlock() }()
	}

	items, err := e.store.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot outbox: %w", err)
	}
	if len(items) == 0 {
		return Result{}, nil
	}

	e.logger.Info("drain started",
		logging.Int("pending", len(items)),
		logging.String(logging.FieldEventType, "drain_started"),
	)

	var res Result
	for _, item := range items {
		if err := e.replay(ctx, item); err != nil {
			res.FailedID = item.ID
			e.logger.Warn("drain halted",
				logging.Error(err),
				logging.String(logging.FieldItemID, item.ID),
				logging.Int("synced", res.Synced),
				logging.Int("remaining", len(items)-res.Synced),
				logging.String(logging.FieldEventType, "drain_halted"),
				logging.String(logging.FieldErrorHint, "fix the failing mutation or clear it, then sync again"),
				logging.String(logging.FieldImpact, "this item and everything queued after it stay pending"),
			)
			return res, fmt.Errorf("replay item %s (%s %s): %w", item.ID, item.Method, item.Path, err)
		}

		removed, err := e.store.Remove(ctx, item.ID)
		if err != nil {
			res.FailedID = item.ID
			return res, fmt.Errorf("remove synced item %s: %w", item.ID, err)
		}
		if !removed {
			e.logger.Debug("synced item already removed", logging.String(logging.FieldItemID, item.ID))
		}
		res.Synced++
	}

	e.logger.Info("drain completed",
		logging.Int("synced", res.Synced),
		logging.String(logging.FieldEventType, "drain_completed"),
	)
	return res, nil
}

// replay re-issues one item with queuing disabled: a transport failure during
// replay is terminal for the pass, never re-queued recursively.
func (e *Engine) replay(ctx context.Context, item *outbox.Item) error {
	var body any
	if len(item.Body) > 0 {
		body = json.RawMessage(item.Body)
	}
	_, err := e.dispatcher.Execute(ctx, item.Method, item.Path, body, remote.ExecuteOptions{AllowQueue: false})
	return err
}
