// Package testhelpers provides common utilities and helper functions for
// testing the Spindle chat server.
//
// It contains reusable pieces shared across integration tests: spinning up
// a full server stack, dialing WebSocket clients, and reading the JSON
// frame stream with timeouts.
package testhelpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spindle-chat/spindle/internal/chat"
	"github.com/spindle-chat/spindle/internal/server"
)

// StartChatServer builds the full stack (hub, coordinator, handlers) on an
// httptest server and returns it together with a shutdown function.
func StartChatServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	log := zap.NewNop().Sugar()
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}

	metrics := server.NewMetrics(io.Discard, time.Minute)
	hub := server.NewHub(log, metrics)
	go hub.Run()

	router := chat.NewRouter(hub, log)
	handler := server.NewHandler(hub, router, cfg, log)
	ts := httptest.NewServer(server.NewRoutes(handler))

	shutdown := func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	}
	return ts, shutdown
}

// Dial opens a WebSocket connection against a test server's /ws endpoint.
// The Origin header is required by the upgrade check even under a wildcard
// allow-list, so browsers and tests alike must present one.
func Dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:3001")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, headers)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", wsURL, err)
	}
	return conn
}

// SendFrame writes one event frame to the connection.
func SendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal %s payload: %v", event, err)
	}
	if err := conn.WriteJSON(chat.Frame{Event: event, Data: raw}); err != nil {
		t.Fatalf("failed to send %s frame: %v", event, err)
	}
}

// FrameReader consumes the frame stream of one connection. The write pump
// batches queued frames into a single websocket message separated by
// newlines, so a reader has to split.
type FrameReader struct {
	conn    *websocket.Conn
	pending []chat.Frame
}

// NewFrameReader wraps a connection for frame-by-frame reading.
func NewFrameReader(conn *websocket.Conn) *FrameReader {
	return &FrameReader{conn: conn}
}

// Next returns the next frame, waiting up to timeout.
func (fr *FrameReader) Next(t *testing.T, timeout time.Duration) chat.Frame {
	t.Helper()

	if len(fr.pending) > 0 {
		frame := fr.pending[0]
		fr.pending = fr.pending[1:]
		return frame
	}

	if err := fr.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, raw, err := fr.conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}

	for _, chunk := range strings.Split(string(raw), "\n") {
		if chunk == "" {
			continue
		}
		var frame chat.Frame
		if err := json.Unmarshal([]byte(chunk), &frame); err != nil {
			t.Fatalf("failed to decode frame %q: %v", chunk, err)
		}
		fr.pending = append(fr.pending, frame)
	}
	if len(fr.pending) == 0 {
		t.Fatal("websocket message contained no frames")
	}

	frame := fr.pending[0]
	fr.pending = fr.pending[1:]
	return frame
}

// WaitFor reads frames until one with the wanted event arrives, discarding
// everything else. It fails the test after the deadline.
func (fr *FrameReader) WaitFor(t *testing.T, event string, timeout time.Duration) chat.Frame {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for %s frame", event)
		}
		frame := fr.Next(t, remaining)
		if frame.Event == event {
			return frame
		}
	}
}

// DecodeData unmarshals a frame's payload into out.
func DecodeData(t *testing.T, frame chat.Frame, out any) {
	t.Helper()

	if err := json.Unmarshal(frame.Data, out); err != nil {
		t.Fatalf("failed to decode %s payload: %v", frame.Event, err)
	}
}
