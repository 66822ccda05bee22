package reporting

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"discover-scanner/internal/domain"
)

// SuppressRepeats forwards only the first match per token address among the
// most recently reported ones. The window is bounded and lives in memory only.
type SuppressRepeats struct {
	next Sink
	seen *lru.Cache[string, bool]
}

// NewSuppressRepeats wraps next with a window of size token addresses.
func NewSuppressRepeats(next Sink, size int) (*SuppressRepeats, error) {
	cache, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("create repeat window: %w", err)
	}
	return &SuppressRepeats{next: next, seen: cache}, nil
}

// Name returns the wrapped sink's name.
func (s *SuppressRepeats) Name() string {
	return s.next.Name()
}

// Report forwards m unless its token was reported recently.
// A failed delivery is not remembered, so the next match is retried.
func (s *SuppressRepeats) Report(ctx context.Context, m *domain.MatchResult) error {
	key := m.Event.TokenAddress
	if _, ok := s.seen.Get(key); ok {
		return nil
	}
	if err := s.next.Report(ctx, m); err != nil {
		return err
	}
	s.seen.Add(key, true)
	return nil
}

var _ Sink = (*SuppressRepeats)(nil)
