// Package config loads, normalizes, and validates fieldtally's TOML
// configuration.
//
// Load resolves the config file from an explicit path, the user config
// directory, or the working directory, applies defaults for missing values,
// expands ~ in path fields, and validates the result. Derived paths for the
// outbox database, response cache, session file, and lock files hang off the
// data directory so the daemon owns a single storage root.
package config
