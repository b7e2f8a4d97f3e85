// Package logging wraps log/slog with the handlers and attribute conventions
// shared across fieldtally components.
//
// Two output formats are supported: a console handler that renders
// "TIMESTAMP LEVEL component: message k=v ..." lines and a JSON handler for
// machine consumption. Components obtain loggers through NewComponentLogger
// so every record carries a component attribute, and the standardized field
// keys in attrs.go keep queue depth, connectivity, and error context uniform
// across the daemon and CLI.
package logging
