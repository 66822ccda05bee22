package memory

import (
	"context"
	"sort"
	"sync"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/storage"
)

// MatchJournal is an in-memory implementation of storage.MatchJournal.
type MatchJournal struct {
	mu      sync.RWMutex
	byID    map[string]*domain.MatchRecord // keyed by match_id
	ordered []*domain.MatchRecord          // insertion order
}

// NewMatchJournal creates a new in-memory match journal.
func NewMatchJournal() *MatchJournal {
	return &MatchJournal{
		byID: make(map[string]*domain.MatchRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if match_id already exists.
func (s *MatchJournal) Insert(_ context.Context, r *domain.MatchRecord) error {
	if r == nil || r.MatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.MatchID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *r
	s.byID[r.MatchID] = &recCopy
	s.ordered = append(s.ordered, &recCopy)
	return nil
}

// GetByID retrieves a record by match ID. Returns ErrNotFound if not exists.
func (s *MatchJournal) GetByID(_ context.Context, matchID string) (*domain.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byID[matchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// GetByToken retrieves all records for a token address, ordered by matched_at ASC.
func (s *MatchJournal) GetByToken(_ context.Context, tokenAddress string) ([]*domain.MatchRecord, error) {
	return s.filter(func(r *domain.MatchRecord) bool {
		return r.TokenAddress == tokenAddress
	}), nil
}

// GetByTimeRange retrieves records matched within [start, end] ms (inclusive).
func (s *MatchJournal) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.MatchRecord, error) {
	return s.filter(func(r *domain.MatchRecord) bool {
		return r.MatchedAtMs >= start && r.MatchedAtMs <= end
	}), nil
}

// Len returns the number of stored records.
func (s *MatchJournal) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}

func (s *MatchJournal) filter(keep func(r *domain.MatchRecord) bool) []*domain.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MatchRecord
	for _, r := range s.ordered {
		if keep(r) {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MatchedAtMs < result[j].MatchedAtMs
	})
	return result
}

var _ storage.MatchJournal = (*MatchJournal)(nil)
