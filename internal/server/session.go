// Package server tracks live sessions: the association between one WebSocket
// connection and the (username, room) pair it joined with.
package server

import (
	"strings"
	"sync"
)

// Session binds a live connection to a username and room. Both are fixed at
// join time; a session exists from a successful join until disconnect.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`

	client *Client
}

// Registry is the in-memory session store, keyed by connection id. It holds no
// state across restarts. Sessions are kept in insertion order so room listings
// are stable.
//
// The registry does not validate: callers check username availability before
// Join. Cross-connection atomicity of that check-then-join sequence is the
// hub's job; it dispatches all protocol events from a single goroutine.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Join inserts a session for the given client.
func (r *Registry) Join(client *Client, username, room string) *Session {
	sess := &Session{
		ID:       client.id,
		Username: username,
		Room:     room,
		client:   client,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
	r.order = append(r.order, sess)
	return sess
}

// Get returns the session for a connection id, or nil if the connection never
// joined or already left.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Leave removes and returns the session for a connection id, or nil if there
// was none.
func (r *Registry) Leave(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	for i, s := range r.order {
		if s == sess {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return sess
}

// ListByRoom returns all sessions in a room, in insertion order. The result is
// a fresh slice; callers may hold it across further registry mutation.
func (r *Registry) ListByRoom(room string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*Session
	for _, sess := range r.order {
		if sess.Room == room {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

// IsUsernameTaken reports whether a username is already in use in a room,
// compared case-insensitively. Uniqueness is scoped per room; the same name
// may be active in independent rooms.
func (r *Registry) IsUsernameTaken(username, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sess := range r.order {
		if sess.Room == room && strings.EqualFold(sess.Username, username) {
			return true
		}
	}
	return false
}

// Len returns the number of live sessions across all rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
