// Package server constructs and runs the HTTP service hosting the relay.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/secureroom/chat-server/internal/logger"
)

// CreateServer creates an HTTP server with the given address and handler,
// with timeout values suitable for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and blocks until it exits.
func StartServer(server *http.Server) error {
	logger.Infof("Server listening on %s", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or the timeout to pass.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	logger.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
		return err
	}

	logger.Info("HTTP server shutdown completed")
	return nil
}
