// Package server defines the wire protocol: the named-event envelope framing
// every WebSocket message and the payloads each event carries.
package server

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SystemUsername is the reserved sender identity for server-generated notices
// (welcome, joined, left).
const SystemUsername = "System"

// Inbound event names (client to server).
const (
	EventJoinRoom    = "joinRoom"
	EventChatMessage = "chatMessage"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
)

// Outbound event names (server to client). EventTyping and EventStopTyping are
// echoed back out with the sender's username as payload.
const (
	EventJoinResult = "joinResult"
	EventMessage    = "message"
	EventRoomUsers  = "roomUsers"
)

// Envelope frames every message on the wire as a named event with an
// event-specific JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest is the payload of a joinRoom event.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// JoinAck acknowledges a joinRoom event. It is sent only to the requesting
// connection, as a joinResult event. Exactly one of Success or Error is set.
type JoinAck struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Message is the payload of a message event. Messages are transient; nothing
// is stored after fan-out.
type Message struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Time     string `json:"time"`
	IsSystem bool   `json:"isSystem"`
}

// RoomUsers is the payload of a roomUsers event: the authoritative full list
// of sessions in a room. Clients replace their user list with it, never merge.
type RoomUsers struct {
	Room  string     `json:"room"`
	Users []*Session `json:"users"`
}

const messageTimeFormat = "03:04 PM"

// NewMessage builds a chat message from a sender and text, stamped with a
// fresh id and the emission time.
func NewMessage(username, text string) Message {
	return Message{
		ID:       uuid.NewString(),
		Username: username,
		Text:     text,
		Time:     time.Now().Format(messageTimeFormat),
	}
}

// NewSystemMessage builds a server notice attributed to the system identity.
func NewSystemMessage(text string) Message {
	msg := NewMessage(SystemUsername, text)
	msg.IsSystem = true
	return msg
}

func encodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}
