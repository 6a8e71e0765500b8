// Package server implements the per-connection protocol: join validation,
// chat and typing fan-out, and disconnect handling. Every handler here runs on
// the hub's Run goroutine, so no two connections mutate shared state at once.
package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/secureroom/chat-server/internal/logger"
)

// Join ack error strings. These are the only errors the protocol ever
// surfaces; everything else malformed is dropped silently.
const (
	joinErrRequired = "Username and room are required."
	joinErrTaken    = "Username is already taken in this room."
)

const welcomeText = "Welcome to SecureRoom!"

// dispatch routes one inbound envelope to its handler. Unknown events are
// dropped without closing the connection. Events from connections that were
// dropped while the envelope was in flight are discarded, so a dead
// connection can never acquire a session.
func (h *Hub) dispatch(client *Client, env Envelope) {
	h.mu.RLock()
	_, registered := h.clients[client.id]
	h.mu.RUnlock()
	if !registered {
		return
	}

	switch env.Event {
	case EventJoinRoom:
		h.handleJoinRoom(client, env.Data)
	case EventChatMessage:
		h.handleChatMessage(client, env.Data)
	case EventTyping:
		h.handleTyping(client, EventTyping)
	case EventStopTyping:
		h.handleTyping(client, EventStopTyping)
	default:
		logger.Debugf("Ignoring unknown event %q from client %s", env.Event, client.id)
	}
}

// handleJoinRoom validates the request and, on success, registers the session
// and emits the join sequence: ack to the caller, welcome to the caller,
// joined notice to the rest of the room, roomUsers to the whole room. The
// per-client send channel is FIFO, so the joiner always sees the ack and
// welcome before the user list.
func (h *Hub) handleJoinRoom(client *Client, data json.RawMessage) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendEvent(client, EventJoinResult, JoinAck{Error: joinErrRequired})
		return
	}

	username := strings.TrimSpace(req.Username)
	room := strings.TrimSpace(req.Room)
	if username == "" || room == "" {
		h.sendEvent(client, EventJoinResult, JoinAck{Error: joinErrRequired})
		return
	}

	// A connection has at most one session; a repeat join is dropped like any
	// other out-of-state event.
	if h.registry.Get(client.id) != nil {
		logger.Debugf("Ignoring repeat join from client %s", client.id)
		return
	}

	if h.registry.IsUsernameTaken(username, room) {
		h.sendEvent(client, EventJoinResult, JoinAck{Error: joinErrTaken})
		return
	}

	sess := h.registry.Join(client, username, room)
	logger.Infof("%s joined room %q (client %s)", sess.Username, sess.Room, client.id)

	h.sendEvent(client, EventJoinResult, JoinAck{Success: true})
	h.sendEvent(client, EventMessage, NewSystemMessage(welcomeText))
	h.broadcastRoom(sess.Room, client, EventMessage,
		NewSystemMessage(fmt.Sprintf("%s has joined the chat", sess.Username)))
	h.broadcastRoom(sess.Room, nil, EventRoomUsers, h.roomSnapshot(sess.Room))
}

// handleChatMessage fans a chat message out to the sender's room, including
// the sender. Messages from unjoined connections and blank messages are
// dropped with no reply.
func (h *Hub) handleChatMessage(client *Client, data json.RawMessage) {
	sess := h.registry.Get(client.id)
	if sess == nil {
		return
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	h.broadcastRoom(sess.Room, nil, EventMessage, NewMessage(sess.Username, text))
}

// handleTyping relays a typing or stopTyping signal to everyone in the
// sender's room except the sender. The server does not deduplicate repeats.
func (h *Hub) handleTyping(client *Client, event string) {
	sess := h.registry.Get(client.id)
	if sess == nil {
		return
	}
	h.broadcastRoom(sess.Room, client, event, sess.Username)
}

// handleDisconnect removes the connection and, if it had joined, its session,
// announcing the departure to the remaining room members. Disconnecting
// before joining produces no broadcast.
func (h *Hub) handleDisconnect(client *Client) {
	h.removeClient(client)

	sess := h.registry.Leave(client.id)
	if sess == nil {
		return
	}
	logger.Infof("%s left room %q (client %s)", sess.Username, sess.Room, client.id)
	h.dropFailed(h.announceDeparture(sess))
}

// announceDeparture emits the left notice and the refreshed user list to what
// remains of the session's room, returning any clients that failed delivery.
func (h *Hub) announceDeparture(sess *Session) []*Client {
	failed := h.fanOut(sess.Room, nil, EventMessage,
		NewSystemMessage(fmt.Sprintf("%s has left the chat", sess.Username)))
	failed = append(failed, h.fanOut(sess.Room, nil, EventRoomUsers, h.roomSnapshot(sess.Room))...)
	return failed
}

// roomSnapshot builds the authoritative roomUsers payload for a room.
func (h *Hub) roomSnapshot(room string) RoomUsers {
	return RoomUsers{Room: room, Users: h.registry.ListByRoom(room)}
}
