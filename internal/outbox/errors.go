package outbox

import "errors"

// ErrStorage marks failures of the durable store itself (disk full, quota,
// corruption). The failing operation is lost; previously persisted items are
// not affected.
var ErrStorage = errors.New("outbox storage failure")

// ErrInvalidItem marks enqueue attempts that fail validation before touching
// the database.
var ErrInvalidItem = errors.New("invalid outbox item")
