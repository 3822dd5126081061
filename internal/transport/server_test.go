package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wmbusgo/wmbusdecode/internal/session"

	_ "github.com/wmbusgo/wmbusdecode/internal/drivers"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(&Config{}, session.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func dialFrames(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHandleFrames_DecodesTelegram(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialFrames(t, ts)

	// Unencrypted apatoreitn telegram, also used by the decode session's
	// own test suite.
	msg := map[string]string{
		"source": "rtlwmbus[0]",
		"frame":  "19440186313737370408A0A1000059001C270100322DE413B415",
	}
	data, _ := json.Marshal(msg)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("response was not JSON: %v (%s)", err, resp)
	}
	if decoded["id"] != "37373731" {
		t.Errorf("id = %v, want 37373731", decoded["id"])
	}
}

func TestHandleFrames_MalformedMessage(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialFrames(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, resp, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("response was not JSON: %v", err)
	}
	if decoded["error"] != "malformed frame message" {
		t.Errorf("error = %v, want %q", decoded["error"], "malformed frame message")
	}
}

func TestGetActiveConnections(t *testing.T) {
	s, ts := newTestServer(t)

	if got := s.GetActiveConnections(); got != 0 {
		t.Fatalf("GetActiveConnections() before connect = %d, want 0", got)
	}

	conn := dialFrames(t, ts)
	// Give the handler goroutine a moment to register the connection.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.GetActiveConnections() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.GetActiveConnections(); got != 1 {
		t.Errorf("GetActiveConnections() after connect = %d, want 1", got)
	}

	_ = conn.Close()
}
