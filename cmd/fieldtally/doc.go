// Package main hosts the fieldtally CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon, outbox queue maintenance, authenticated field-data
// operations, and configuration scaffolding. It centralizes configuration
// resolution, socket discovery, and dispatcher wiring so subcommands can
// focus on user experience instead of plumbing.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
