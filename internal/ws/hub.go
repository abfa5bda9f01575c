package ws

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Conn is the write surface the hub needs from a live connection.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Session is one live client connection. A session starts unbound; its
// user identity is set by the first identity-bearing intent, not at
// connect time. Multiple sessions may be bound to the same user.
type Session struct {
	ID uuid.UUID

	conn   Conn
	mu     sync.Mutex // serializes writes to conn
	userID atomic.Int64
}

func NewSession(conn Conn) *Session {
	return &Session{ID: uuid.New(), conn: conn}
}

// UserID returns the bound user id, or 0 while the session is unbound.
func (s *Session) UserID() int64 {
	return s.userID.Load()
}

func (s *Session) send(payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(payload)
}

// Hub is the process-wide connection registry: sessions by connection
// handle, a secondary index by user id, and per-conversation rooms.
// State is ephemeral; nothing survives a process restart.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	users    map[int64]map[*Session]struct{}
	rooms    map[int64]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		users:    make(map[int64]map[*Session]struct{}),
		rooms:    make(map[int64]map[*Session]struct{}),
	}
}

// Register adds a freshly accepted connection in the unbound state.
func (h *Hub) Register(sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sess] = struct{}{}
}

// Unregister removes the session from the registry, the user index and
// every room. No further events are delivered to it.
func (h *Hub) Unregister(sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, sess)
	if uid := sess.UserID(); uid != 0 {
		if conns, ok := h.users[uid]; ok {
			delete(conns, sess)
			if len(conns) == 0 {
				delete(h.users, uid)
			}
		}
	}
	for convID, members := range h.rooms {
		delete(members, sess)
		if len(members) == 0 {
			delete(h.rooms, convID)
		}
	}
}

// Bind associates the session with a user id. Rebinding to the same id
// is a no-op; binding to a different id moves the session between user
// buckets.
func (h *Hub) Bind(sess *Session, userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := sess.UserID()
	if prev == userID {
		return
	}
	if prev != 0 {
		if conns, ok := h.users[prev]; ok {
			delete(conns, sess)
			if len(conns) == 0 {
				delete(h.users, prev)
			}
		}
	}
	sess.userID.Store(userID)
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Session]struct{})
	}
	h.users[userID][sess] = struct{}{}
}

// JoinRoom subscribes the session to the conversation's broadcast room.
func (h *Hub) JoinRoom(conversationID int64, sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Session]struct{})
	}
	h.rooms[conversationID][sess] = struct{}{}
}

// LeaveRoom unsubscribes the session from the conversation's room.
func (h *Hub) LeaveRoom(conversationID int64, sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[conversationID]; ok {
		delete(members, sess)
		if len(members) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// UserInRoom reports whether any session bound to userID is currently
// in the conversation's room.
func (h *Hub) UserInRoom(conversationID, userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sess := range h.rooms[conversationID] {
		if sess.UserID() == userID {
			return true
		}
	}
	return false
}

// BroadcastToRoom sends the payload to every session in the
// conversation's room. Best-effort: a failing connection is closed and
// cleaned up on its own unregister.
func (h *Hub) BroadcastToRoom(conversationID int64, payload any) {
	h.BroadcastToRoomExcept(conversationID, nil, payload)
}

// BroadcastToRoomExcept is BroadcastToRoom skipping one session,
// typically the originator.
func (h *Hub) BroadcastToRoomExcept(conversationID int64, except *Session, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sess := range h.rooms[conversationID] {
		if sess == except {
			continue
		}
		if err := sess.send(payload); err != nil {
			sess.conn.Close()
		}
	}
}

// BroadcastToUsers sends the payload to all sessions of the given user
// ids (multi-device fan-out).
func (h *Hub) BroadcastToUsers(userIDs []int64, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, uid := range userIDs {
		for sess := range h.users[uid] {
			if err := sess.send(payload); err != nil {
				sess.conn.Close()
			}
		}
	}
}
