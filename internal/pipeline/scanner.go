// Package pipeline wires the feed event stream through decode, filter and report.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"discover-scanner/internal/discover"
	"discover-scanner/internal/domain"
	"discover-scanner/internal/feed"
	"discover-scanner/internal/idhash"
	"discover-scanner/internal/momentum"
	"discover-scanner/internal/observability"
	"discover-scanner/internal/reporting"
	"discover-scanner/internal/risk"
)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Frames       int64 `json:"frames"`
	Ignored      int64 `json:"ignored"`
	DecodeErrors int64 `json:"decode_errors"`
	Decoded      int64 `json:"decoded"`
	Skipped      int64 `json:"skipped"`
	Rejected     int64 `json:"rejected"`
	Matched      int64 `json:"matched"`
}

// Scanner consumes feed events on a single goroutine.
// Thresholds are fixed at construction and read without locking.
type Scanner struct {
	thresholds domain.FilterThresholds
	decoder    *discover.Decoder
	risk       *risk.Calculator
	sink       reporting.Sink
	logger     *log.Logger
	verbose    bool
	clock      func() time.Time

	frames       atomic.Int64
	ignored      atomic.Int64
	decodeErrors atomic.Int64
	decoded      atomic.Int64
	skipped      atomic.Int64
	rejected     atomic.Int64
	matched      atomic.Int64
}

// NewScanner creates a scanner reporting admitted events to sink.
// The sink is guarded: its errors and panics are logged and never stop the scanner.
func NewScanner(thresholds domain.FilterThresholds, sink reporting.Sink, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scanner{
		thresholds: thresholds,
		risk:       risk.NewCalculator(nil),
		sink:       reporting.Guard(sink, logger),
		logger:     logger,
		clock:      func() time.Time { return time.Now().UTC() },
	}
	s.decoder = &discover.Decoder{OnSkip: s.onSkip}
	return s
}

// WithClock sets a custom clock function for deterministic output.
func (s *Scanner) WithClock(clock func() time.Time) *Scanner {
	s.clock = clock
	return s
}

// WithVerbose enables per-event rejection logging.
func (s *Scanner) WithVerbose(verbose bool) *Scanner {
	s.verbose = verbose
	return s
}

// WithRiskCalculator replaces the default risk calculator.
func (s *Scanner) WithRiskCalculator(c *risk.Calculator) *Scanner {
	s.risk = c
	return s
}

// Run processes events until the channel is closed or ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, events <-chan feed.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent logs lifecycle events and processes message frames.
func (s *Scanner) HandleEvent(ctx context.Context, ev feed.Event) {
	switch ev.Kind {
	case feed.EventOpen:
		s.logger.Printf("feed: session %s open", ev.SessionID)
	case feed.EventClose:
		s.logger.Printf("feed: session %s closed: %v", ev.SessionID, ev.Err)
	case feed.EventError:
		if errors.Is(ev.Err, feed.ErrMaxRetriesExceeded) {
			s.logger.Printf("feed: giving up after %d attempts: %v", ev.Attempt, ev.Err)
			return
		}
		s.logger.Printf("feed: attempt %d failed: %v", ev.Attempt, ev.Err)
	case feed.EventMessage:
		s.ProcessFrame(ctx, ev.SessionID, ev.Data)
	}
}

// ProcessFrame decodes one raw frame, filters each event and reports matches.
// Failures are contained to the frame or event. Returns the number of matches.
func (s *Scanner) ProcessFrame(ctx context.Context, sessionID string, raw []byte) int {
	start := time.Now()
	defer func() {
		observability.ObserveFrameLatency(time.Since(start).Seconds())
	}()

	now := s.clock()
	s.frames.Add(1)

	events, err := s.decoder.Decode(raw)
	if err != nil {
		s.decodeErrors.Add(1)
		reason := "unknown"
		var de *discover.DecodeError
		if errors.As(err, &de) {
			reason = de.Reason
		}
		observability.RecordDecodeError(reason)
		s.logger.Printf("pipeline: dropped frame (%d bytes): %v", len(raw), err)
		return 0
	}
	if events == nil {
		s.ignored.Add(1)
		observability.RecordFrameIgnored()
		return 0
	}

	s.decoded.Add(int64(len(events)))
	observability.RecordTokensDecoded(len(events))

	matches := 0
	for _, e := range events {
		if s.process(ctx, sessionID, e, now) {
			matches++
		}
	}
	return matches
}

func (s *Scanner) process(ctx context.Context, sessionID string, e *domain.TokenEvent, now time.Time) bool {
	verdict := momentum.Evaluate(e, s.thresholds)
	if !verdict.Admitted {
		s.rejected.Add(1)
		observability.RecordRejection(string(verdict.Reason))
		if s.verbose {
			s.logger.Printf("pipeline: rejected %s (%s): %s: %s", e.Symbol, e.TokenAddress, verdict.Reason, verdict.Detail)
		}
		return false
	}

	m := &domain.MatchResult{
		MatchID:   idhash.ComputeMatchID(e),
		SessionID: sessionID,
		Event:     e,
		Score:     momentum.Score(e, now),
		Risk:      s.risk.Assess(e),
		MatchedAt: now,
	}

	s.matched.Add(1)
	observability.RecordMatch()
	_ = s.sink.Report(ctx, m)
	return true
}

func (s *Scanner) onSkip(index int, reason string, err error) {
	s.skipped.Add(1)
	observability.RecordTokenSkipped(reason)
	s.logger.Printf("pipeline: skipped record %d: %s: %v", index, reason, err)
}

// Stats returns the current counters. Safe to call from any goroutine.
func (s *Scanner) Stats() Stats {
	return Stats{
		Frames:       s.frames.Load(),
		Ignored:      s.ignored.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		Decoded:      s.decoded.Load(),
		Skipped:      s.skipped.Load(),
		Rejected:     s.rejected.Load(),
		Matched:      s.matched.Load(),
	}
}
