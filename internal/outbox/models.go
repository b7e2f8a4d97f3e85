package outbox

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is a single pending mutation awaiting replay.
//
// The ID doubles as the idempotency key for creation requests: it is sent to
// the server on the first attempt and again on every replay, so a crash after
// a partial send still results in exactly one created resource.
type Item struct {
	Seq        int64
	ID         string
	EnqueuedAt time.Time
	Method     string
	Path       string
	Body       json.RawMessage
}

// NewItem builds an item with a fresh identifier and the current wall clock.
func NewItem(method, path string, body json.RawMessage) *Item {
	return &Item{
		ID:         uuid.NewString(),
		EnqueuedAt: time.Now().UTC(),
		Method:     strings.ToUpper(strings.TrimSpace(method)),
		Path:       path,
		Body:       body,
	}
}

// IsMutating reports whether the verb belongs to the queueable set.
func IsMutating(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
