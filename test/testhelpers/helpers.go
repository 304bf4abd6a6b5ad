// Package testhelpers provides common utilities for exercising the tracker
// over real HTTP and WebSocket connections in integration tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Manishkarki1/realtime-tracker/internal/server"
)

// Event mirrors the outbound wire frames so tests can decode either variant.
type Event struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StartTracker spins up a hub and an httptest server around the full route
// set, allowing the test server's own origin. Everything is torn down via
// t.Cleanup.
func StartTracker(t *testing.T, customize func(cfg *server.Config)) (*httptest.Server, *server.Hub) {
	t.Helper()

	hub := server.NewHub(zerolog.Nop())
	go hub.Run()

	handlers := server.NewHandlers(hub, zerolog.Nop())
	ts := httptest.NewServer(handlers.Routes())

	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{ts.URL}, cfg.AllowedOrigins...)
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
		server.SetConfig(nil)
	})

	return ts, hub
}

// DialWS opens a WebSocket session against the test server with an allowed
// Origin header set.
func DialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Origin", ts.URL)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err, "failed to open WebSocket session")
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendLocation writes one send-location frame on conn.
func SendLocation(t *testing.T, conn *websocket.Conn, lat, lon float64) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"type":      "send-location",
		"latitude":  lat,
		"longitude": lon,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// SendRaw writes an arbitrary text frame on conn.
func SendRaw(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// ReadEvent reads and decodes the next frame from conn, failing the test if
// nothing arrives within timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err, "expected an event frame")

	var ev Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	return ev
}

// ExpectNoMessage asserts that conn stays silent for the given window. The
// read deadline it sets leaves the connection unusable for further reads, so
// call it only at the end of a test.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, but received: %s", payload)
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("unexpected error while waiting for silence: %v", err)
}

// FetchUsers reads the GET /users listing.
func FetchUsers(t *testing.T, ts *httptest.Server) []server.UserRecord {
	t.Helper()

	resp, err := http.Get(ts.URL + "/users")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []server.UserRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	return records
}
