// Package fieldapi wraps the field-ops HTTP API in typed operations. Reads
// require connectivity; mutations route through the dispatcher's outbox path
// so submissions made offline are captured and replayed later.
package fieldapi
