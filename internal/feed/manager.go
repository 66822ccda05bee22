package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"discover-scanner/internal/observability"
)

// Config configures connection and reconnect behavior.
type Config struct {
	// ReconnectDelay is the fixed wait before each reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts bounds consecutive reconnect attempts before the manager gives up.
	MaxReconnectAttempts int
	// HandshakeTimeout bounds the websocket upgrade.
	HandshakeTimeout time.Duration
	// ReadTimeout is the maximum silence tolerated on an open connection (0 disables).
	ReadTimeout time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

// DefaultConfig returns default connection configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 10,
		HandshakeTimeout:     10 * time.Second,
		ReadTimeout:          90 * time.Second,
		WriteTimeout:         10 * time.Second,
		EventBuffer:          1024,
	}
}

// Options carries collaborators for a Manager.
type Options struct {
	// Header is sent with the upgrade request. The feed host requires an Origin header.
	Header http.Header
	// Subscribe messages are written, in order, after every successful handshake.
	Subscribe []interface{}
	// Dialer overrides the websocket dialer (tests).
	Dialer *websocket.Dialer
	Logger *log.Logger
}

// Manager owns one logical subscription to the feed.
// At most one transport is active at a time; connect attempts are issued
// sequentially by the Run loop.
type Manager struct {
	id        string
	endpoint  string
	config    Config
	header    http.Header
	subscribe []interface{}
	dialer    *websocket.Dialer
	logger    *log.Logger

	state    atomic.Int32
	attempts atomic.Int32

	// conn is the active transport; connMu also serializes writes
	conn   *websocket.Conn
	connMu sync.Mutex

	lifeMu  sync.Mutex
	running bool
	closed  bool

	events   chan Event
	done     chan struct{}
	finished chan struct{}
}

// Open validates the endpoint and returns an idle Manager.
// A malformed endpoint is reported as *ConnectError.
func Open(endpoint string, config *Config, opts Options) (*Manager, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}

	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.MaxReconnectAttempts < 0 {
		cfg.MaxReconnectAttempts = 0
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	m := &Manager{
		id:        uuid.NewString(),
		endpoint:  endpoint,
		config:    cfg,
		header:    opts.Header.Clone(),
		subscribe: opts.Subscribe,
		dialer:    dialer,
		logger:    logger,
		events:    make(chan Event, cfg.EventBuffer),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	m.setState(StateIdle)
	return m, nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host")
	}
	return nil
}

// ID returns the session id of this manager.
func (m *Manager) ID() string {
	return m.id
}

// Endpoint returns the feed address.
func (m *Manager) Endpoint() string {
	return m.endpoint
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Attempts returns the current consecutive reconnect attempt count.
func (m *Manager) Attempts() int {
	return int(m.attempts.Load())
}

// Events returns the inbound notification stream. It is closed when Run returns,
// or by Close when Run was never started.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Run drives the connection lifecycle until ctx is cancelled, Close is called,
// or reconnect attempts are exhausted (ErrMaxRetriesExceeded).
func (m *Manager) Run(ctx context.Context) error {
	m.lifeMu.Lock()
	if m.closed {
		m.lifeMu.Unlock()
		return ErrClosed
	}
	if m.running {
		m.lifeMu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.lifeMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.done:
			cancel()
		case <-runCtx.Done():
		}
	}()

	defer close(m.finished)
	defer close(m.events)
	defer m.setState(StateClosed)

	for runCtx.Err() == nil {
		m.setState(StateConnecting)

		conn, err := m.dial(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				break
			}
			observability.RecordConnectFailure()
			cerr := &ConnectError{Endpoint: m.endpoint, Err: err}
			m.logger.Printf("feed: %v", cerr)
			m.emit(runCtx, Event{Kind: EventError, Err: cerr})
		} else {
			cause := m.serve(runCtx, conn)
			if runCtx.Err() != nil {
				break
			}
			m.logger.Printf("feed: connection closed: %v", cause)
			m.emit(runCtx, Event{Kind: EventClose, Err: cause})
		}

		if err := m.awaitReconnect(runCtx); err != nil {
			if err == ErrMaxRetriesExceeded {
				return err
			}
			break
		}
	}

	return ctx.Err()
}

// dial creates one transport.
func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := m.dialer.DialContext(ctx, m.endpoint, m.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// serve attaches conn, subscribes and pumps frames until the connection fails
// or ctx is cancelled. The transport is released before serve returns.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	m.connMu.Lock()
	m.conn = conn
	m.connMu.Unlock()
	defer m.detach(conn)

	m.attempts.Store(0)
	m.setState(StateOpen)
	observability.RecordConnect()
	m.logger.Printf("feed: connected to %s (session %s)", m.endpoint, m.id)

	for _, msg := range m.subscribe {
		if err := m.Send(msg); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	m.emit(ctx, Event{Kind: EventOpen})

	readErr := make(chan error, 1)
	go func() {
		readErr <- m.readFrames(ctx, conn)
	}()

	select {
	case err := <-readErr:
		return err
	case <-ctx.Done():
		// Closing the transport unblocks the reader.
		m.detach(conn)
		<-readErr
		return ctx.Err()
	}
}

// readFrames forwards frames in arrival order. Delivery blocks rather than drops.
func (m *Manager) readFrames(ctx context.Context, conn *websocket.Conn) error {
	for {
		if m.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		observability.RecordFrameReceived(time.Now().Unix())
		if !m.emit(ctx, Event{Kind: EventMessage, Data: data}) {
			return ctx.Err()
		}
	}
}

// detach releases conn if it is still the active transport.
func (m *Manager) detach(conn *websocket.Conn) {
	m.connMu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.connMu.Unlock()
	conn.Close()
}

// awaitReconnect counts the attempt and waits for the backoff delay.
func (m *Manager) awaitReconnect(ctx context.Context) error {
	attempt := int(m.attempts.Add(1))
	if attempt > m.config.MaxReconnectAttempts {
		observability.RecordRetriesExhausted()
		m.logger.Printf("feed: giving up after %d reconnect attempts", m.config.MaxReconnectAttempts)
		m.setState(StateClosed)
		m.emit(ctx, Event{Kind: EventError, Err: ErrMaxRetriesExceeded})
		return ErrMaxRetriesExceeded
	}

	m.setState(StateReconnecting)
	observability.RecordReconnectAttempt()
	m.logger.Printf("feed: reconnecting in %v (attempt %d/%d)", m.config.ReconnectDelay, attempt, m.config.MaxReconnectAttempts)

	timer := time.NewTimer(m.config.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emit delivers ev to the event stream. Returns false if ctx ended first.
func (m *Manager) emit(ctx context.Context, ev Event) bool {
	ev.SessionID = m.id
	ev.Attempt = m.Attempts()
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Send JSON-encodes payload and writes it as a text frame.
// It returns ErrNotConnected whenever the state is not Open.
func (m *Manager) Send(payload interface{}) error {
	if m.State() != StateOpen {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	m.connMu.Lock()
	defer m.connMu.Unlock()

	if m.conn == nil {
		return ErrNotConnected
	}

	m.conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close shuts the manager down. It cancels any pending reconnect, releases the
// transport and waits for Run to return. Safe to call more than once.
func (m *Manager) Close() error {
	m.lifeMu.Lock()
	if m.closed {
		m.lifeMu.Unlock()
		return nil
	}
	m.closed = true
	wasRunning := m.running
	m.lifeMu.Unlock()

	m.setState(StateClosing)
	close(m.done)

	m.connMu.Lock()
	if m.conn != nil {
		m.conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
		m.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.conn.Close()
		m.conn = nil
	}
	m.connMu.Unlock()

	if wasRunning {
		<-m.finished
	} else {
		close(m.events)
	}

	m.setState(StateClosed)
	return nil
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	observability.SetConnectionState(int(s))
}
