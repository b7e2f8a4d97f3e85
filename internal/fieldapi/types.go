package fieldapi

import "encoding/json"

// LoginInput carries the credentials for token exchange.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Worker is a field worker record as served by the workers endpoints.
type Worker struct {
	ID               string  `json:"id"`
	WorkerCode       string  `json:"worker_code"`
	FullName         string  `json:"full_name"`
	Payout           string  `json:"payout"`
	PayoutAnchorDate string  `json:"payout_anchor_date,omitempty"`
	IsActive         bool    `json:"is_active"`
	FactoryID        *string `json:"factory_id,omitempty"`
	TeamID           *string `json:"team_id,omitempty"`
}

// CreateWorkerInput registers a new worker.
type CreateWorkerInput struct {
	WorkerCode       string  `json:"worker_code"`
	FullName         string  `json:"full_name"`
	Payout           string  `json:"payout"`
	PayoutAnchorDate string  `json:"payout_anchor_date,omitempty"`
	FactoryID        *string `json:"factory_id,omitempty"`
	TeamID           *string `json:"team_id,omitempty"`
}

// UpdateWorkerInput carries a partial worker update; nil fields are left
// untouched by the server.
type UpdateWorkerInput struct {
	FullName         *string `json:"full_name,omitempty"`
	Payout           *string `json:"payout,omitempty"`
	PayoutAnchorDate *string `json:"payout_anchor_date,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
	TeamID           *string `json:"team_id,omitempty"`
}

// CreateWorkDayInput opens (or reuses) a worker's day sheet. The server
// upserts on (worker_id, work_date), so replaying the same payload is safe.
type CreateWorkDayInput struct {
	WorkerID      string  `json:"worker_id"`
	WorkDate      string  `json:"work_date"`
	WorkstationID *string `json:"workstation_id,omitempty"`
	DayNote       string  `json:"day_note,omitempty"`
}

// CreateWorkTaskInput logs a unit of work against an open day sheet. ID is
// assigned client-side so a replayed submission hits the server's
// insert-or-ignore path instead of creating a duplicate.
type CreateWorkTaskInput struct {
	ID         string  `json:"id"`
	WorkDayID  string  `json:"work_day_id"`
	TaskTypeID string  `json:"task_type_id"`
	Quantity   float64 `json:"quantity"`
	Note       string  `json:"note,omitempty"`
}

// WorkDay is a day sheet with its logged tasks.
type WorkDay struct {
	WorkDayID string     `json:"work_day_id"`
	WorkDate  string     `json:"work_date"`
	DayNote   string     `json:"day_note"`
	IsClosed  bool       `json:"is_closed"`
	ClosedAt  *string    `json:"closed_at"`
	Tasks     []WorkTask `json:"tasks"`
}

// WorkTask is a single logged task line.
type WorkTask struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	Quantity       float64 `json:"quantity"`
	Status         string  `json:"status"`
	ApprovedPay    float64 `json:"approved_pay_ngn"`
	Note           string  `json:"note"`
	DecidedAt      *string `json:"decided_at"`
	DecisionReason *string `json:"decision_reason"`
}

// PendingTask is an approval queue row.
type PendingTask struct {
	TaskID     string  `json:"task_id"`
	WorkDate   string  `json:"work_date"`
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name"`
	TaskCode   string  `json:"task_code"`
	TaskName   string  `json:"task_name"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	Note       string  `json:"note"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
}

// Decision statuses accepted by the decide endpoints.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

type decisionInput struct {
	Status         string `json:"status"`
	DecisionReason string `json:"decision_reason,omitempty"`
}

type bulkDecisionInput struct {
	TaskIDs        []string `json:"task_ids"`
	Status         string   `json:"status"`
	DecisionReason string   `json:"decision_reason,omitempty"`
}

// BulkDecisionResult reports how many tasks a bulk decision touched.
type BulkDecisionResult struct {
	OK      bool `json:"ok"`
	Updated int  `json:"updated"`
}

// PayrollSummary is the approved-pay rollup for a worker's current period.
type PayrollSummary struct {
	WorkerID    string          `json:"worker_id"`
	WorkerName  string          `json:"worker_name"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	TotalNGN    float64         `json:"total_ngn"`
	Lines       json.RawMessage `json:"lines"`
}
