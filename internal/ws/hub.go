package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"teamchat-service/internal/models"
	"teamchat-service/internal/observability"
)

// Hub maintains the active websocket sessions: a registry of connections
// per user and the pairwise rooms they have joined.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]bool
	users map[string]map[*websocket.Conn]bool
	info  map[*websocket.Conn]ConnInfo
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]bool),
		users: make(map[string]map[*websocket.Conn]bool),
		info:  make(map[*websocket.Conn]ConnInfo),
	}
}

// Register records a freshly upgraded connection. The connection carries
// no identity until BindUser runs for it.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info[conn] = info
}

// BindUser associates the connection with an authenticated user. Returns
// true when this is the user's first live connection.
func (h *Hub) BindUser(conn *websocket.Conn, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	info := h.info[conn]
	info.UserID = userID
	h.info[conn] = info
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*websocket.Conn]bool)
	}
	first := len(h.users[userID]) == 0
	h.users[userID][conn] = true
	return first
}

// JoinRoom adds the connection to a pairwise room.
func (h *Hub) JoinRoom(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*websocket.Conn]bool)
	}
	h.rooms[room][conn] = true
}

// LeaveRoom removes the connection from a room. Rooms empty of members
// are dropped, so switching conversations does not leak membership.
func (h *Hub) LeaveRoom(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Remove drops the connection from the registry and every room. Returns
// the bound user id and whether this was that user's last connection.
func (h *Hub) Remove(conn *websocket.Conn) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	info, ok := h.info[conn]
	if !ok {
		return "", false
	}
	delete(h.info, conn)

	for room, conns := range h.rooms {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}

	last := false
	if info.UserID != "" {
		if conns, ok := h.users[info.UserID]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.users, info.UserID)
				last = true
			}
		}
	}
	return info.UserID, last
}

// BroadcastToRoom sends an event to every member of a room.
func (h *Hub) BroadcastToRoom(room string, event models.SocketEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[room]))
	for conn := range h.rooms[room] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		h.write(conn, room, payload)
	}
}

// BroadcastAll sends an event to every authenticated connection, skipping
// the excluded user. Used for presence and directory-growth events.
func (h *Hub) BroadcastAll(event models.SocketEvent, excludeUserID string) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0)
	for userID, userConns := range h.users {
		if userID == excludeUserID {
			continue
		}
		for conn := range userConns {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		h.write(conn, "", payload)
	}
}

func (h *Hub) write(conn *websocket.Conn, room string, payload []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		h.publishWSError(room, conn, err)
		conn.Close()
		if room != "" {
			h.LeaveRoom(room, conn)
		}
		// The close unblocks the session read loop, which owns the
		// registry cleanup, the gauge decrement, and the offline
		// broadcast. Removing here would make that cleanup a no-op.
	}
}

func (h *Hub) publishWSError(room string, conn *websocket.Conn, err error) {
	h.mu.RLock()
	info, ok := h.info[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room":        room,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

// RoomMembers reports the member count of a room.
func (h *Hub) RoomMembers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// OnlineUsers lists users with at least one live connection.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.users))
	for userID := range h.users {
		users = append(users, userID)
	}
	return users
}
