// Package server exposes the HTTP endpoints: the WebSocket upgrade and the
// health check.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/secureroom/chat-server/internal/logger"
)

// Handler binds the HTTP endpoints to an explicitly owned hub and the
// configured origin policy.
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	maxMessageSize int64
}

// NewHandler creates the endpoint handler for a hub using the given config.
func NewHandler(hub *Hub, cfg Config) *Handler {
	policy := newOriginPolicy(cfg.AllowedOrigins)
	return &Handler{
		hub:            hub,
		maxMessageSize: cfg.MaxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
	}
}

// ServeWS upgrades the connection and registers the resulting client with the
// hub, which launches its read/write pumps.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.maxMessageSize)

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		_ = conn.Close()
	}
}

// HealthHandler reports server liveness as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "SecureRoom server is running")
}
