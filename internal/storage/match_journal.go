package storage

import (
	"context"

	"discover-scanner/internal/domain"
)

// MatchJournal is an append-only audit log of reported matches.
// The scanner only writes to it; nothing in the pipeline reads it back.
type MatchJournal interface {
	// Insert adds a new record. Returns ErrDuplicateKey if match_id exists.
	Insert(ctx context.Context, r *domain.MatchRecord) error

	// GetByID retrieves a record by match ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, matchID string) (*domain.MatchRecord, error)

	// GetByToken retrieves all records for a token address, ordered by matched_at ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.MatchRecord, error)

	// GetByTimeRange retrieves records matched within [start, end] ms (inclusive), ordered by matched_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.MatchRecord, error)
}
