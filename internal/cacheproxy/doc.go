// Package cacheproxy serves the application over a local HTTP proxy with
// per-route caching strategies. Shell assets are cache-first, API reads are
// network-first with a cached fallback, and API mutations always hit the
// network. Cached responses live in a single SQLite generation; activating a
// new generation purges every entry written by older ones.
package cacheproxy
