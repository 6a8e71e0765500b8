// Package server wires the HTTP handlers into a ServeMux.
package server

import "net/http"

// NewRouter configures and returns the application's ServeMux: the health
// check at / and the WebSocket endpoint at /ws.
func NewRouter(hub *Hub, cfg Config) *http.ServeMux {
	handler := NewHandler(hub, cfg)
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", handler.ServeWS)
	return mux
}
