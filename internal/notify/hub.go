// Package notify implements the two notification channels fired by
// workflow events: realtime websocket push to online users and mail
// jobs enqueued for the worker. Both are best-effort and never roll
// back the state change that triggered them.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is a live client connection able to receive JSON messages.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
}

// session pairs a connection with its write lock. gorilla/websocket
// supports at most one concurrent writer per connection, so every
// write to a registered connection funnels through this lock. The hub
// mutex covers only the registry itself.
type session struct {
	mu   sync.Mutex
	conn Conn
}

func (s *session) write(message any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(message)
}

// Hub is the registry of live connections per user. A user may hold
// several connections at once (multiple tabs or devices); a user with
// none is absent from the map entirely.
type Hub struct {
	mu          sync.Mutex
	connections map[uuid.UUID][]*session
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{connections: make(map[uuid.UUID][]*session)}
}

// Register adds a connection under the user id.
func (h *Hub) Register(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[userID] = append(h.connections[userID], &session{conn: conn})
}

// Unregister removes a connection. Removing the last connection for a
// user removes the user's entry, so no empty buckets linger.
func (h *Hub) Unregister(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions := h.connections[userID]
	for i, s := range sessions {
		if s.conn == conn {
			sessions = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}
	if len(sessions) == 0 {
		delete(h.connections, userID)
		return
	}
	h.connections[userID] = sessions
}

// Send broadcasts the message to every live connection of the user.
// A user with no connections is a silent no-op: this channel delivers
// to online presences only, with no queueing and no retry. Writes to
// the same connection from concurrent sends are serialized by the
// per-session lock.
func (h *Hub) Send(userID uuid.UUID, message any) {
	h.mu.Lock()
	sessions := make([]*session, len(h.connections[userID]))
	copy(sessions, h.connections[userID])
	h.mu.Unlock()

	for _, s := range sessions {
		_ = s.write(message)
	}
}

// Connections returns the number of live connections for the user.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections[userID])
}
