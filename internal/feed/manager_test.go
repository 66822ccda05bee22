package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectAttempts = 3
	cfg.HandshakeTimeout = time.Second
	cfg.WriteTimeout = time.Second
	return &cfg
}

func quietOptions() Options {
	return Options{Logger: log.New(io.Discard, "", 0)}
}

// nextEvent waits for the next event of the given kind, skipping others.
func nextEvent(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events closed while waiting for %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", kind)
		}
	}
}

func TestOpen_MalformedEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "http://example.com/cable", "ws://", "://bad"} {
		_, err := Open(endpoint, nil, quietOptions())
		var cerr *ConnectError
		require.ErrorAs(t, err, &cerr, "endpoint %q", endpoint)
		assert.Equal(t, endpoint, cerr.Endpoint)
	}
}

func TestOpen_Idle(t *testing.T) {
	m, err := Open("wss://feed.example.com/cable", nil, quietOptions())
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, 0, m.Attempts())
	assert.NotEmpty(t, m.ID())
}

func TestManager_SubscribeAndOrderedFrames(t *testing.T) {
	subscribed := make(chan []byte, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- msg

		for _, frame := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
			if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	opts := quietOptions()
	opts.Subscribe = []interface{}{map[string]string{"command": "subscribe"}}

	m, err := Open(wsURL(server), testConfig(), opts)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	open := nextEvent(t, m.Events(), EventOpen)
	assert.Equal(t, m.ID(), open.SessionID)
	assert.Equal(t, StateOpen, m.State())

	select {
	case msg := <-subscribed:
		assert.JSONEq(t, `{"command":"subscribe"}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe not received")
	}

	for i := 1; i <= 3; i++ {
		ev := nextEvent(t, m.Events(), EventMessage)
		var got struct{ N int }
		require.NoError(t, json.Unmarshal(ev.Data, &got))
		assert.Equal(t, i, got.N)
	}

	require.NoError(t, m.Close())
	assert.Equal(t, StateClosed, m.State())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	// Events is closed after Run returns.
	for range m.Events() {
	}
}

func TestManager_SendNotConnected(t *testing.T) {
	m, err := Open("ws://127.0.0.1:1/cable", testConfig(), quietOptions())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Send(map[string]string{"type": "ping"}), ErrNotConnected)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Send(map[string]string{"type": "ping"}), ErrNotConnected)
}

func TestManager_SendWhileOpen(t *testing.T) {
	received := make(chan []byte, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		received <- msg
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	m, err := Open(wsURL(server), testConfig(), quietOptions())
	require.NoError(t, err)
	defer m.Close()

	go m.Run(context.Background())
	nextEvent(t, m.Events(), EventOpen)

	require.NoError(t, m.Send(map[string]string{"type": "ping"}))

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"type":"ping"}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("ping not received")
	}
}

func TestManager_ReconnectAfterServerClose(t *testing.T) {
	var connections atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		if connections.Add(1) == 1 {
			// Drop the first connection right away.
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	m, err := Open(wsURL(server), testConfig(), quietOptions())
	require.NoError(t, err)
	defer m.Close()

	go m.Run(context.Background())

	first := nextEvent(t, m.Events(), EventOpen)
	closed := nextEvent(t, m.Events(), EventClose)
	assert.Error(t, closed.Err)
	second := nextEvent(t, m.Events(), EventOpen)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, int32(2), connections.Load())
	assert.Equal(t, 0, m.Attempts(), "successful open resets the counter")
}

func TestManager_MaxRetriesExceeded(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig()
	m, err := Open(wsURL(server), cfg, quietOptions())
	require.NoError(t, err)
	defer m.Close()

	err = m.Run(context.Background())
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, StateClosed, m.State())

	// One initial dial plus MaxReconnectAttempts retries.
	assert.Equal(t, int32(cfg.MaxReconnectAttempts+1), requests.Load())

	var connectErrors int
	var fatal bool
	for ev := range m.Events() {
		if ev.Kind != EventError {
			continue
		}
		var cerr *ConnectError
		switch {
		case errors.As(ev.Err, &cerr):
			connectErrors++
		case errors.Is(ev.Err, ErrMaxRetriesExceeded):
			fatal = true
		}
	}
	assert.Equal(t, cfg.MaxReconnectAttempts+1, connectErrors)
	assert.True(t, fatal)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(cfg.MaxReconnectAttempts+1), requests.Load(), "no dials after giving up")
}

func TestManager_CloseCancelsPendingReconnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.ReconnectDelay = time.Hour

	m, err := Open(wsURL(server), cfg, quietOptions())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return m.State() == StateReconnecting
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not cancel the reconnect wait")
	}
	assert.Equal(t, StateClosed, m.State())
}

func TestManager_ContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	m, err := Open(wsURL(server), testConfig(), quietOptions())
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	nextEvent(t, m.Events(), EventOpen)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManager_RunTwice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	m, err := Open(wsURL(server), testConfig(), quietOptions())
	require.NoError(t, err)
	defer m.Close()

	go m.Run(context.Background())
	nextEvent(t, m.Events(), EventOpen)

	assert.ErrorIs(t, m.Run(context.Background()), ErrAlreadyRunning)
}

func TestManager_RunAfterClose(t *testing.T) {
	m, err := Open("ws://127.0.0.1:1/cable", testConfig(), quietOptions())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Run(context.Background()), ErrClosed)

	_, ok := <-m.Events()
	assert.False(t, ok, "events closed")
}

func TestManager_OriginHeader(t *testing.T) {
	var mu sync.Mutex
	var origin string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		origin = r.Header.Get("Origin")
		mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	opts := quietOptions()
	opts.Header = http.Header{}
	opts.Header.Set("Origin", "https://photon-sol.tinyastro.io")

	m, err := Open(wsURL(server), testConfig(), opts)
	require.NoError(t, err)
	defer m.Close()

	go m.Run(context.Background())
	nextEvent(t, m.Events(), EventOpen)

	mu.Lock()
	defer mu.Unlock()
	if origin != "https://photon-sol.tinyastro.io" {
		t.Errorf("expected origin header, got %q", origin)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	m, err := Open("ws://127.0.0.1:1/cable", testConfig(), quietOptions())
	require.NoError(t, err)

	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.Equal(t, StateClosed, m.State())
}
