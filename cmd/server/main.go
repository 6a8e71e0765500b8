package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/secureroom/chat-server/internal/logger"
	"github.com/secureroom/chat-server/internal/server"
)

func main() {
	defer logger.Sync()

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	hub := server.NewHub()
	go hub.Run()

	mux := server.NewRouter(hub, cfg)
	httpServer := server.CreateServer(cfg.Addr, mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server error: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		logger.Info("Shutdown signal received")
		if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
			logger.Errorf("HTTP shutdown error: %v", err)
		}
		if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
			logger.Errorf("Hub shutdown error: %v", err)
		}
	}
}
