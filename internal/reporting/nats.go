package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"discover-scanner/internal/domain"
)

// DefaultSubject is the NATS subject matches are published on.
const DefaultSubject = "scanner.matches"

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
	IsConnected() bool
}

// NATSSink publishes each match as JSON with identifying headers.
type NATSSink struct {
	conn    Publisher
	subject string
}

// NewNATSSink creates a sink publishing to subject (DefaultSubject if empty).
func NewNATSSink(conn Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// Name returns "nats".
func (s *NATSSink) Name() string {
	return "nats"
}

// Report publishes m. Fails fast when the connection is down.
func (s *NATSSink) Report(_ context.Context, m *domain.MatchResult) error {
	if s.conn == nil || !s.conn.IsConnected() {
		return fmt.Errorf("nats connection not available")
	}

	data, err := json.Marshal(domain.NewMatchRecord(m))
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}

	headers := nats.Header{}
	headers.Set("x-match-id", m.MatchID)
	headers.Set("x-session-id", m.SessionID)
	headers.Set("x-token-address", m.Event.TokenAddress)
	headers.Set("x-risk-level", m.Risk.Level.String())
	headers.Set("x-timestamp", m.MatchedAt.UTC().Format(time.RFC3339))

	msg := &nats.Msg{
		Subject: s.subject,
		Data:    data,
		Header:  headers,
	}

	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish match: %w", err)
	}
	return nil
}

var _ Sink = (*NATSSink)(nil)
