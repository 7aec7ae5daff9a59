package hub

import (
	"log/slog"
	"sort"
	"sync"

	"liveboard-sync-server/domain"
)

type member struct {
	conn   domain.Connection
	userID string
}

type room struct {
	clients map[string]member
	mu      sync.RWMutex
}

// Hub tracks which connections are joined to which rooms and fans frames
// out to them. Delivery is at-most-once: a recipient whose send buffer is
// full is dropped from every room and closed.
type Hub struct {
	rooms  map[string]*room
	byConn map[string]map[string]struct{}
	mu     sync.RWMutex
}

func New() *Hub {
	return &Hub{
		rooms:  make(map[string]*room),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join adds conn to roomCode. It reports false when conn was already a
// member, in which case only the recorded user id is refreshed.
func (h *Hub) Join(roomCode string, conn domain.Connection, userID string) bool {
	h.mu.Lock()
	r, exists := h.rooms[roomCode]
	if !exists {
		r = &room{clients: make(map[string]member)}
		h.rooms[roomCode] = r
	}
	joined, ok := h.byConn[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		h.byConn[conn.ID()] = joined
	}
	joined[roomCode] = struct{}{}

	r.mu.Lock()
	_, already := r.clients[conn.ID()]
	r.clients[conn.ID()] = member{conn: conn, userID: userID}
	count := len(r.clients)
	r.mu.Unlock()
	h.mu.Unlock()

	if !already {
		slog.Info("client joined", "room", roomCode, "clientId", conn.ID(), "userId", userID, "clients", count)
	}
	return !already
}

func (h *Hub) Leave(roomCode string, conn domain.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomCode, conn.ID())
}

// LeaveAll removes conn from every room it joined and returns those rooms.
func (h *Hub) LeaveAll(conn domain.Connection) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []string
	for roomCode := range h.byConn[conn.ID()] {
		left = append(left, roomCode)
	}
	sort.Strings(left)
	for _, roomCode := range left {
		h.leaveLocked(roomCode, conn.ID())
	}
	return left
}

func (h *Hub) leaveLocked(roomCode, connID string) {
	if joined, ok := h.byConn[connID]; ok {
		delete(joined, roomCode)
		if len(joined) == 0 {
			delete(h.byConn, connID)
		}
	}

	r, exists := h.rooms[roomCode]
	if !exists {
		return
	}

	r.mu.Lock()
	_, was := r.clients[connID]
	delete(r.clients, connID)
	count := len(r.clients)
	r.mu.Unlock()

	if was {
		slog.Info("client left", "room", roomCode, "clientId", connID, "clients", count)
	}
	if count == 0 {
		delete(h.rooms, roomCode)
		slog.Info("room removed", "room", roomCode)
	}
}

func (h *Hub) IsMember(roomCode, connID string) bool {
	h.mu.RLock()
	r, exists := h.rooms[roomCode]
	h.mu.RUnlock()
	if !exists {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[connID]
	return ok
}

// Members returns the user ids joined to roomCode, sorted.
func (h *Hub) Members(roomCode string) []string {
	h.mu.RLock()
	r, exists := h.rooms[roomCode]
	h.mu.RUnlock()
	if !exists {
		return nil
	}

	r.mu.RLock()
	users := make([]string, 0, len(r.clients))
	for _, m := range r.clients {
		users = append(users, m.userID)
	}
	r.mu.RUnlock()
	sort.Strings(users)
	return users
}

// RelayToOthers delivers data to every member of roomCode except originatorID.
func (h *Hub) RelayToOthers(roomCode, originatorID string, data []byte) {
	h.deliver(roomCode, originatorID, data)
}

// BroadcastToAll delivers data to every member of roomCode.
func (h *Hub) BroadcastToAll(roomCode string, data []byte) {
	h.deliver(roomCode, "", data)
}

// SendTo delivers data to conn alone, with the same drop policy as a relay.
func (h *Hub) SendTo(conn domain.Connection, data []byte) {
	if err := conn.Send(data); err != nil {
		slog.Warn("dropping slow client", "clientId", conn.ID(), "error", err)
		go h.drop(conn)
	}
}

func (h *Hub) deliver(roomCode, skipID string, data []byte) {
	h.mu.RLock()
	r, exists := h.rooms[roomCode]
	h.mu.RUnlock()

	if !exists {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, m := range r.clients {
		if id == skipID {
			continue
		}
		if err := m.conn.Send(data); err != nil {
			slog.Warn("dropping slow client", "room", roomCode, "clientId", id, "error", err)
			go h.drop(m.conn)
		}
	}
}

func (h *Hub) drop(conn domain.Connection) {
	h.LeaveAll(conn)
	conn.Close()
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	clients = len(h.byConn)
	return rooms, clients
}
