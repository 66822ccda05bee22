// Package storage defines the match journal contract shared by the memory,
// postgres and clickhouse backends.
package storage

import "errors"

var (
	// ErrNotFound is returned when a match_id is not in the journal.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a match_id was already journaled.
	// The journal is append-only; re-delivered snapshots hit this and are dropped.
	ErrDuplicateKey = errors.New("duplicate key: journal is append-only")

	// ErrInvalidInput is returned for a nil record or an empty match_id.
	ErrInvalidInput = errors.New("invalid input")
)
