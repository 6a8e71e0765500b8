// Package server coordinates connection registration, protocol dispatch, and
// room broadcast fan-out for the SecureRoom relay via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/secureroom/chat-server/internal/logger"
)

// Hub owns the connection set and the session registry. Its Run loop is the
// single goroutine that mutates either one, which serializes the duplicate-
// username check against the session insert and keeps every roomUsers
// broadcast consistent with the join or leave that triggered it.
type Hub struct {
	registry *Registry

	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// inboundEvent pairs a decoded envelope with the connection it arrived on.
type inboundEvent struct {
	client *Client
	env    Envelope
}

// NewHub creates a hub with an empty registry, ready to run.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry exposes the session registry for read-side consumers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run is the hub's main event loop: connection registration, disconnects, and
// protocol events all funnel through it. Call it in its own goroutine; it
// returns when Shutdown cancels the hub context.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				logger.Warn("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case evt := <-h.inbound:
			h.dispatch(evt.client, evt.env)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	client.closed = false
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()

	logger.Infof("Client %s connected from %s. Total connections: %d", client.id, client.addr, count)

	// Tests register clients without a real connection; they have no pumps.
	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient takes a client out of the connection set and closes its send
// channel. It reports whether the client was still registered, so callers can
// tell a first removal from a repeat.
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[client.id]
	if ok {
		delete(h.clients, client.id)
		client.closed = true
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		// Close outside the lock; writePump drains and exits on close.
		close(client.send)
		logger.Infof("Client %s disconnected. Total connections: %d", client.id, count)
	}
	return ok
}

// safeSend delivers a payload to one client without blocking. It returns false
// when the client is gone, closing, or has a full send buffer; the caller
// decides what to do with the failure.
func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.id]; !ok || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// sendEvent delivers an event to a single connection. A failed send drops the
// connection the same way a disconnect would.
func (h *Hub) sendEvent(client *Client, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		logger.Errorf("Failed to encode %s event: %v", event, err)
		return
	}
	if !h.safeSend(client, payload) {
		h.dropFailed([]*Client{client})
	}
}

// broadcastRoom fans an event out to every session in a room. A non-nil
// exclude skips that connection (room-others delivery). Recipients that fail
// are dropped after the fan-out completes, so one slow client never blocks or
// fails delivery to the rest.
func (h *Hub) broadcastRoom(room string, exclude *Client, event string, data any) {
	h.dropFailed(h.fanOut(room, exclude, event, data))
}

// fanOut performs the per-recipient delivery attempts and returns the clients
// that could not be reached.
func (h *Hub) fanOut(room string, exclude *Client, event string, data any) []*Client {
	payload, err := encodeEvent(event, data)
	if err != nil {
		logger.Errorf("Failed to encode %s event: %v", event, err)
		return nil
	}

	var failed []*Client
	for _, sess := range h.registry.ListByRoom(room) {
		if sess.client == nil {
			continue
		}
		if exclude != nil && sess.client == exclude {
			continue
		}
		if !h.safeSend(sess.client, payload) {
			failed = append(failed, sess.client)
		}
	}
	return failed
}

// dropFailed removes unreachable clients, announcing each departure to its
// room. Announcements can surface further unreachable clients; those are
// appended to the queue, so cascading failures drain in one pass.
func (h *Hub) dropFailed(failed []*Client) {
	for len(failed) > 0 {
		client := failed[0]
		failed = failed[1:]

		if h.removeClient(client) {
			logger.Warnf("Client %s dropped: send buffer full", client.id)
		}
		if sess := h.registry.Leave(client.id); sess != nil {
			failed = append(failed, h.announceDeparture(sess)...)
		}
	}
}

// shutdownClients closes every active connection so the pumps unwind.
func (h *Hub) shutdownClients() {
	logger.Info("Shutting down all client connections...")

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				logger.Errorf("Error closing client connection from %s: %v", client.addr, err)
			}
		}
	}

	logger.Infof("Closed %d client connections", len(clients))
}

// Shutdown cancels the hub, waits for the Run loop to drain, and then waits
// for all pump goroutines to finish or the timeout to pass.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logger.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		logger.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
