package ipc

// QueueItem is the wire representation of a pending outbox entry.
type QueueItem struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	EnqueuedAt string `json:"enqueued_at"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	BodyBytes  int    `json:"body_bytes"`
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse reports daemon runtime information.
type StatusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	Connectivity string `json:"connectivity"`
	QueueDepth   int    `json:"queue_depth"`
	OutboxDBPath string `json:"outbox_db_path"`
	CacheDBPath  string `json:"cache_db_path"`
	LockPath     string `json:"lock_path"`
	ProxyBind    string `json:"proxy_bind"`
	RemoteURL    string `json:"remote_url"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse confirms shutdown was initiated.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// QueueListRequest asks for the pending outbox items in replay order.
type QueueListRequest struct{}

// QueueListResponse carries the pending outbox items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueClearRequest discards all pending items.
type QueueClearRequest struct{}

// QueueClearResponse reports how many items were discarded.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRemoveRequest discards a single pending item.
type QueueRemoveRequest struct {
	ID string `json:"id"`
}

// QueueRemoveResponse reports whether the item existed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// SyncNowRequest triggers an immediate drain.
type SyncNowRequest struct{}

// SyncNowResponse reports the drain outcome.
type SyncNowResponse struct {
	Synced   int    `json:"synced"`
	FailedID string `json:"failed_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ProbeRequest asks for an immediate connectivity check.
type ProbeRequest struct{}

// ProbeResponse confirms the probe was requested.
type ProbeResponse struct {
	Requested bool `json:"requested"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
