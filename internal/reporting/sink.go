// Package reporting delivers admitted matches to sinks.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"log"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/observability"
)

// Sink receives admitted matches. Implementations must not mutate the match.
type Sink interface {
	Name() string
	Report(ctx context.Context, m *domain.MatchResult) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	ID string
	Fn func(ctx context.Context, m *domain.MatchResult) error
}

// Name returns the sink identifier.
func (f SinkFunc) Name() string { return f.ID }

// Report calls Fn.
func (f SinkFunc) Report(ctx context.Context, m *domain.MatchResult) error { return f.Fn(ctx, m) }

// Guarded wraps a sink so that errors and panics are logged and counted
// instead of propagating to the pipeline.
type Guarded struct {
	sink   Sink
	logger *log.Logger
}

// Guard wraps sink. A nil logger uses log.Default().
func Guard(sink Sink, logger *log.Logger) *Guarded {
	if logger == nil {
		logger = log.Default()
	}
	return &Guarded{sink: sink, logger: logger}
}

// Name returns the wrapped sink's name.
func (g *Guarded) Name() string {
	return g.sink.Name()
}

// Report forwards m and always returns nil.
func (g *Guarded) Report(ctx context.Context, m *domain.MatchResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			observability.RecordSinkError(g.sink.Name())
			g.logger.Printf("reporting: sink %s failed for %s: %v", g.sink.Name(), m.Event.TokenAddress, err)
		}
		err = nil
	}()
	return g.sink.Report(ctx, m)
}

// Multi fans a match out to every sink in order.
type Multi []Sink

// Name returns "multi".
func (ms Multi) Name() string { return "multi" }

// Report delivers m to all sinks and joins their errors.
func (ms Multi) Report(ctx context.Context, m *domain.MatchResult) error {
	var errs []error
	for _, s := range ms {
		if err := s.Report(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ Sink = SinkFunc{}
	_ Sink = (*Guarded)(nil)
	_ Sink = Multi(nil)
)
