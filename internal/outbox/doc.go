// Package outbox persists pending mutations in SQLite and is the only durable
// state the offline core owns.
//
// Producers append; the sync engine is the sole remover, and only after the
// replay of that exact item is confirmed successful. Items are totally ordered
// by enqueue time with insertion sequence as the tie-breaker, and the order
// survives process restarts. Storage faults are tagged with ErrStorage so
// callers can distinguish them from transport or application failures.
package outbox
