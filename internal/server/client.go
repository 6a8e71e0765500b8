// Package server manages individual WebSocket connections, handling the
// read/write pumps and lifecycle control for each client.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/secureroom/chat-server/internal/logger"
)

const (
	sendBufferSize = 256

	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 54 * time.Second
)

// Client represents one WebSocket connection. Its id is the connection
// identifier sessions are keyed by, assigned at construction and stable for
// the connection's lifetime.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	closed bool
}

// NewClient wraps a WebSocket connection for the hub. The send channel is
// buffered so fan-out never waits on a slow reader.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, maxMessageSize int64) *Client {
	if conn != nil {
		conn.SetReadLimit(maxMessageSize)
	}
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		hub:  hub,
		addr: addr,
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		logger.Errorf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			logger.Errorf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// logReadError classifies the error that ended the read loop.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warnf("Message from %s exceeded the maximum frame size", c.addr)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		logger.Infof("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		logger.Infof("Client %s connection closed: %v", c.addr, err)
	default:
		logger.Warnf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// processFrame decodes a raw frame into an envelope and hands it to the hub.
// Malformed frames are dropped; the protocol never replies to them.
func (c *Client) processFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Debugf("Invalid frame from %s: %v", c.addr, err)
		return
	}
	if env.Event == "" {
		logger.Debugf("Frame without event name from %s", c.addr)
		return
	}

	select {
	case c.hub.inbound <- inboundEvent{client: c, env: env}:
	case <-c.hub.ctx.Done():
	}
}

func (c *Client) readPump() {
	defer func() {
		// Hand the disconnect to the hub unless it is already shutting down.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Errorf("Error closing connection in readPump: %v", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			break
		}
		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		logger.Errorf("Error closing connection in writePump: %v", err)
	}
}

// handleMessage writes an outgoing message and returns false if the
// connection should be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		logger.Errorf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			logger.Errorf("Error writing close message to %s: %v", c.addr, err)
		}
	}
	return false
}

// writeTextMessage writes a frame plus any messages queued behind it.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		logger.Errorf("Error creating writer for %s: %v", c.addr, err)
		return false
	}

	if _, err := w.Write(message); err != nil {
		logger.Errorf("Error writing message to %s: %v", c.addr, err)
		return false
	}

	if err := w.Close(); err != nil {
		logger.Errorf("Error closing writer for %s: %v", c.addr, err)
		return false
	}
	return true
}

// handlePing keeps the connection alive between outbound messages.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		logger.Errorf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		logger.Errorf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
