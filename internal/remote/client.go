package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fieldtally/internal/config"
	"fieldtally/internal/logging"
	"fieldtally/internal/outbox"
)

// HTTPDoer describes the HTTP client used by the dispatcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the current auth credential. The dispatcher asks on
// every call so replayed mutations use the credential active at replay time,
// not the one active at enqueue time.
type TokenSource interface {
	Current() (string, bool)
}

// QueueObserver is notified after every queuing event so UI badges and push
// notifications can track pending mutations. This is a notification contract,
// not a correctness requirement of the queue.
type QueueObserver interface {
	MutationQueued(method, path, itemID string, depth int)
}

// ExecuteOptions controls queuing behaviour for a single call.
type ExecuteOptions struct {
	// AllowQueue converts a transport failure of a mutating call into a
	// queued outcome. Replay and all read operations run with it disabled.
	AllowQueue bool
	// ItemID pins the outbox item identifier for idempotent creation. When
	// empty a fresh identifier is generated at enqueue time.
	ItemID string
}

// Result is the outcome of a dispatched call: either a completed round-trip
// (Status and Body set) or a queued mutation (Queued true, ItemID set).
type Result struct {
	StatusCode int
	Body       json.RawMessage
	Queued     bool
	ItemID     string
}

// Client executes logical operations against the remote API, diverting
// mutations into the outbox when the transport itself fails.
type Client struct {
	baseURL  string
	doer     HTTPDoer
	store    *outbox.Store
	tokens   TokenSource
	logger   *slog.Logger
	observer QueueObserver
}

// New constructs a dispatcher with an explicit HTTP doer; tests inject fakes
// here.
func New(baseURL string, doer HTTPDoer, store *outbox.Store, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		doer:    doer,
		store:   store,
		tokens:  tokens,
		logger:  logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// NewFromConfig constructs a dispatcher with a timeout-bounded HTTP client.
func NewFromConfig(cfg *config.Config, store *outbox.Store, tokens TokenSource, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	return New(cfg.Remote.BaseURL, &http.Client{Timeout: timeout}, store, tokens, logger)
}

// SetQueueObserver registers the observer notified on queuing events.
func (c *Client) SetQueueObserver(obs QueueObserver) {
	c.observer = obs
}

// Get executes a read operation. Reads never queue; transport failures
// propagate to the caller.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.Execute(ctx, http.MethodGet, path, nil, ExecuteOptions{})
}

// Execute performs one logical operation. Body may be nil, a json.RawMessage,
// or any JSON-serializable value.
func (c *Client) Execute(ctx context.Context, method, path string, body any, opts ExecuteOptions) (*Result, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	resp, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		if ctx.Err() != nil {
			// Caller gave up; not a connectivity signal.
			return nil, err
		}
		if opts.AllowQueue && outbox.IsMutating(method) {
			return c.enqueue(ctx, method, path, payload, opts.ItemID, err)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: read response: %v", ErrTransport, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    serverMessage(respBody),
		}
	}

	return &Result{StatusCode: resp.StatusCode, Body: respBody}, nil
}

const maxResponseBytes = 8 << 20

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var reader io.Reader
	if len(payload) > 0 {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Current(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return c.doer.Do(req)
}

func (c *Client) enqueue(ctx context.Context, method, path string, payload []byte, itemID string, cause error) (*Result, error) {
	item := outbox.NewItem(method, path, payload)
	if strings.TrimSpace(itemID) != "" {
		item.ID = itemID
	}
	if err := c.store.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("queue mutation after transport failure (%v): %w", cause, err)
	}

	depth, err := c.store.Depth(ctx)
	if err != nil {
		depth = -1
	}
	c.logger.Info("mutation queued for replay",
		logging.String("method", method),
		logging.String("path", path),
		logging.String(logging.FieldItemID, item.ID),
		logging.Int(logging.FieldQueueDepth, depth),
		logging.String(logging.FieldEventType, "mutation_queued"),
	)
	if c.observer != nil {
		c.observer.MutationQueued(method, path, item.ID, depth)
	}

	return &Result{Queued: true, ItemID: item.ID}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// serverMessage extracts the human-readable error the server attached, if the
// body is decodable. The upstream API reports errors as {"detail": "..."}.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}
