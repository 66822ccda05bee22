// Package keepalive periodically writes application-level pings on the feed connection.
package keepalive

import (
	"context"
	"log"
	"time"

	"discover-scanner/internal/feed"
	"discover-scanner/internal/observability"
)

// DefaultInterval is the ping period used when Interval is unset.
const DefaultInterval = 30 * time.Second

// Target is the connection the scheduler pings.
type Target interface {
	State() feed.State
	Send(payload interface{}) error
}

// Scheduler sends Payload to Target every Interval while the target is open.
// Send failures are logged and counted; reconnecting is the target's concern.
type Scheduler struct {
	Target   Target
	Interval time.Duration
	Payload  interface{}
	Logger   *log.Logger
	Verbose  bool
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(logger)
		}
	}
}

func (s *Scheduler) tick(logger *log.Logger) {
	if s.Target.State() != feed.StateOpen {
		return
	}

	err := s.Target.Send(s.Payload)
	observability.RecordKeepalive(err)
	if err != nil {
		logger.Printf("keepalive: send failed: %v", err)
		return
	}
	if s.Verbose {
		logger.Printf("keepalive: ping sent")
	}
}
