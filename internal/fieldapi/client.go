package fieldapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"fieldtally/internal/remote"
)

// TokenSink receives the bearer token after a successful login.
type TokenSink interface {
	Save(token string) error
}

// Dispatcher is the slice of the request dispatcher this client needs.
type Dispatcher interface {
	Execute(ctx context.Context, method, path string, body any, opts remote.ExecuteOptions) (*remote.Result, error)
	Get(ctx context.Context, path string) (*remote.Result, error)
}

// Client exposes the field-ops API as typed operations. Reads go straight to
// the network; mutations are queueable, so an offline submission lands in the
// outbox instead of failing.
type Client struct {
	dispatcher Dispatcher
	tokens     TokenSink
}

func NewClient(dispatcher Dispatcher, tokens TokenSink) *Client {
	return &Client{dispatcher: dispatcher, tokens: tokens}
}

// MutationResult describes the outcome of a queueable write: either the
// server confirmed it, or it was captured locally for replay.
type MutationResult struct {
	Queued bool
	// ItemID is the outbox item id when Queued is true.
	ItemID string
	// Body is the server response when Queued is false.
	Body json.RawMessage
}

// Login exchanges credentials for a bearer token and stores it. Login is
// never queued: a credential exchange against an unreachable server has no
// meaningful deferred form.
func (c *Client) Login(ctx context.Context, email, password string) error {
	res, err := c.dispatcher.Execute(ctx, "POST", "/api/auth/login",
		LoginInput{Email: email, Password: password}, remote.ExecuteOptions{})
	if err != nil {
		return err
	}

	var token tokenResponse
	if err := json.Unmarshal(res.Body, &token); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("login response missing access token")
	}
	return c.tokens.Save(token.AccessToken)
}

// ListWorkers returns the active worker roster.
func (c *Client) ListWorkers(ctx context.Context) ([]Worker, error) {
	res, err := c.dispatcher.Get(ctx, "/api/workers")
	if err != nil {
		return nil, err
	}
	var workers []Worker
	if err := json.Unmarshal(res.Body, &workers); err != nil {
		return nil, fmt.Errorf("decode workers: %w", err)
	}
	return workers, nil
}

// CreateWorker registers a worker. Queueable.
func (c *Client) CreateWorker(ctx context.Context, in CreateWorkerInput) (*MutationResult, error) {
	return c.mutate(ctx, "POST", "/api/workers", in, "")
}

// UpdateWorker patches a worker record. Queueable.
func (c *Client) UpdateWorker(ctx context.Context, workerID string, in UpdateWorkerInput) (*MutationResult, error) {
	return c.mutate(ctx, "PATCH", "/api/workers/"+url.PathEscape(workerID), in, "")
}

// CreateWorkDay opens or reuses a worker's day sheet. The server upserts on
// (worker_id, work_date), so a replay of the same payload converges.
func (c *Client) CreateWorkDay(ctx context.Context, in CreateWorkDayInput) (*MutationResult, error) {
	return c.mutate(ctx, "POST", "/api/work-days", in, "")
}

// CreateWorkTask logs a task line. The task id is generated here when the
// caller leaves it empty and doubles as the outbox item id, so an offline
// submission replays with the exact identity the server deduplicates on.
func (c *Client) CreateWorkTask(ctx context.Context, in CreateWorkTaskInput) (*MutationResult, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	return c.mutate(ctx, "POST", "/api/work-tasks", in, in.ID)
}

// WorkerDays lists a worker's day sheets with their tasks, newest first.
// start and end are optional YYYY-MM-DD bounds.
func (c *Client) WorkerDays(ctx context.Context, workerID, start, end string) ([]WorkDay, error) {
	path := "/api/work-days/" + url.PathEscape(workerID)
	query := url.Values{}
	if start != "" {
		query.Set("start", start)
	}
	if end != "" {
		query.Set("end", end)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	res, err := c.dispatcher.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var days []WorkDay
	if err := json.Unmarshal(res.Body, &days); err != nil {
		return nil, fmt.Errorf("decode work days: %w", err)
	}
	return days, nil
}

// PendingApprovals lists tasks awaiting a decision.
func (c *Client) PendingApprovals(ctx context.Context) ([]PendingTask, error) {
	res, err := c.dispatcher.Get(ctx, "/api/approvals/pending")
	if err != nil {
		return nil, err
	}
	var tasks []PendingTask
	if err := json.Unmarshal(res.Body, &tasks); err != nil {
		return nil, fmt.Errorf("decode pending approvals: %w", err)
	}
	return tasks, nil
}

// DecideTask approves or rejects a logged task. Queueable.
func (c *Client) DecideTask(ctx context.Context, taskID, status, reason string) (*MutationResult, error) {
	if status != DecisionApproved && status != DecisionRejected {
		return nil, fmt.Errorf("invalid decision status %q", status)
	}
	path := "/api/work-tasks/" + url.PathEscape(taskID) + "/decide"
	return c.mutate(ctx, "POST", path, decisionInput{Status: status, DecisionReason: reason}, "")
}

// BulkDecide applies one decision to many tasks. Queueable; when the server
// answers online the per-task update count is returned.
func (c *Client) BulkDecide(ctx context.Context, taskIDs []string, status, reason string) (*MutationResult, *BulkDecisionResult, error) {
	if status != DecisionApproved && status != DecisionRejected {
		return nil, nil, fmt.Errorf("invalid decision status %q", status)
	}
	res, err := c.mutate(ctx, "POST", "/api/work-tasks/bulk-decide",
		bulkDecisionInput{TaskIDs: taskIDs, Status: status, DecisionReason: reason}, "")
	if err != nil {
		return nil, nil, err
	}
	if res.Queued {
		return res, nil, nil
	}
	var out BulkDecisionResult
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, nil, fmt.Errorf("decode bulk decision: %w", err)
	}
	return res, &out, nil
}

// Payroll returns the approved-pay rollup for a worker as of the given date
// (empty means today, server side).
func (c *Client) Payroll(ctx context.Context, workerID, asOf string) (*PayrollSummary, error) {
	path := "/api/payroll/" + url.PathEscape(workerID)
	if asOf != "" {
		path += "?as_of=" + url.QueryEscape(asOf)
	}

	res, err := c.dispatcher.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var summary PayrollSummary
	if err := json.Unmarshal(res.Body, &summary); err != nil {
		return nil, fmt.Errorf("decode payroll: %w", err)
	}
	return &summary, nil
}

func (c *Client) mutate(ctx context.Context, method, path string, body any, itemID string) (*MutationResult, error) {
	res, err := c.dispatcher.Execute(ctx, method, path, body,
		remote.ExecuteOptions{AllowQueue: true, ItemID: itemID})
	if err != nil {
		return nil, err
	}
	if res.Queued {
		return &MutationResult{Queued: true, ItemID: res.ItemID}, nil
	}
	return &MutationResult{Body: res.Body}, nil
}
