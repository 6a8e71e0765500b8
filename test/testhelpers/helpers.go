// Package testhelpers provides shared utilities for integration testing the
// SecureRoom server: spinning up a relay, dialing WebSocket clients, and
// exchanging protocol envelopes.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/secureroom/chat-server/internal/server"
)

// ReadTimeout bounds how long helpers wait for an expected event.
const ReadTimeout = 2 * time.Second

// StartRelay starts a hub and an httptest server hosting the full router,
// both torn down on test cleanup. It returns the test server, the hub, and
// the ws:// URL of the WebSocket endpoint.
func StartRelay(t *testing.T, cfg server.Config) (*httptest.Server, *server.Hub, string) {
	t.Helper()

	hub := server.NewHub()
	go hub.Run()

	ts := httptest.NewServer(server.NewRouter(hub, cfg))
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return ts, hub, wsURL
}

// Dial opens a WebSocket connection to the relay. An empty origin omits the
// Origin header, as a non-browser client would.
func Dial(t *testing.T, wsURL, origin string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err, "websocket dial failed")
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// TryDial attempts a connection and returns the dial error, for tests that
// expect the handshake to be refused.
func TryDial(wsURL, origin string) (*websocket.Conn, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEvent writes one protocol envelope to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	env := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data}

	payload, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// ReadEnvelope reads the next protocol envelope, failing the test if none
// arrives within ReadTimeout.
func ReadEnvelope(t *testing.T, conn *websocket.Conn) server.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err, "reading envelope")

	var env server.Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	return env
}

// ReadEvent reads the next envelope and requires it to carry the given event
// name, decoding its payload into dest.
func ReadEvent(t *testing.T, conn *websocket.Conn, event string, dest any) {
	t.Helper()

	env := ReadEnvelope(t, conn)
	require.Equal(t, event, env.Event, "unexpected event")
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

// ExpectNoEvent asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no event, got %s", payload)
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("unexpected error while waiting for absence of event: %v", err)
}

// JoinRoom performs a join and consumes the caller's ack, welcome message,
// and initial roomUsers event.
func JoinRoom(t *testing.T, conn *websocket.Conn, username, room string) {
	t.Helper()

	SendEvent(t, conn, server.EventJoinRoom, server.JoinRequest{Username: username, Room: room})

	var ack server.JoinAck
	ReadEvent(t, conn, server.EventJoinResult, &ack)
	require.True(t, ack.Success, "join failed: %s", ack.Error)

	var welcome server.Message
	ReadEvent(t, conn, server.EventMessage, &welcome)
	require.True(t, welcome.IsSystem)

	var users server.RoomUsers
	ReadEvent(t, conn, server.EventRoomUsers, &users)
}
