package reporting

import (
	"context"
	"errors"
	"fmt"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/storage"
)

// JournalSink appends matches to a storage.MatchJournal.
// A duplicate match_id means the snapshot was already journaled and is not an error.
type JournalSink struct {
	journal storage.MatchJournal
}

// NewJournalSink creates a sink over journal.
func NewJournalSink(journal storage.MatchJournal) *JournalSink {
	return &JournalSink{journal: journal}
}

// Name returns "journal".
func (s *JournalSink) Name() string {
	return "journal"
}

// Report inserts the flattened match.
func (s *JournalSink) Report(ctx context.Context, m *domain.MatchResult) error {
	err := s.journal.Insert(ctx, domain.NewMatchRecord(m))
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("journal match %s: %w", m.MatchID, err)
	}
	return nil
}

var _ Sink = (*JournalSink)(nil)
