// Package syncengine replays queued mutations once connectivity returns.
//
// Replay is strictly sequential and halts on the first failure, leaving the
// failing item and all later items in place. This at-most-partial-progress
// policy is deliberate: queued mutations can depend on the server-side effects
// of earlier ones, so skipping a failure would risk corrupting remote state.
// A flock lease over the outbox prevents two processes from draining at once.
package syncengine
