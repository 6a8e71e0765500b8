package integration

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureroom/chat-server/internal/server"
	"github.com/secureroom/chat-server/test/testhelpers"
)

func TestGracefulShutdownIdleHub(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()

	require.NoError(t, hub.Shutdown(5*time.Second))
}

func TestGracefulShutdownWithClients(t *testing.T) {
	_, hub, wsURL := testhelpers.StartRelay(t, server.NewConfig())

	conns := make([]*websocket.Conn, 0, 3)
	for _, name := range []string{"Ana", "Bob", "Cleo"} {
		conn := testhelpers.Dial(t, wsURL, "")
		testhelpers.JoinRoom(t, conn, name, "lobby")
		conns = append(conns, conn)
	}

	require.NoError(t, hub.Shutdown(5*time.Second))

	// Every client connection is closed by the shutdown.
	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				assert.Error(t, err)
				break
			}
		}
	}
}
