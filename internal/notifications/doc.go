// Package notifications delivers queue and sync events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Per-category
// toggles (queue, sync, errors) suppress individual event families without
// disabling the service.
package notifications
