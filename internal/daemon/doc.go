// Package daemon coordinates the long-running fieldtally process.
//
// It wires configuration, the outbox store, the request dispatcher, the sync
// engine, the network monitor, and the cache proxy into a single lifecycle
// with flock-based locking to prevent multiple instances. Connectivity
// transitions reported by the monitor trigger background drains, and queue
// maintenance helpers back the IPC control surface.
package daemon
