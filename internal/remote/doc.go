// Package remote is the transport boundary of the offline core.
//
// The Client dispatches one logical operation per call. Only transport-level
// failures of mutating verbs are converted into queued outcomes; a completed
// round-trip with a non-2xx status is an application error the caller must
// handle, and is never queued. The auth credential is attached fresh on every
// call, including replays.
package remote
