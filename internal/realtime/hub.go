package realtime

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Event names broadcast to rooms.
const (
	EventCommentAdded        = "comment-added"
	EventRatingUpdated       = "rating-updated"
	EventNotificationCreated = "notification-created"
)

// MaterialRoom is joined by anyone viewing a material; comment and rating
// updates are broadcast there.
func MaterialRoom(materialID uuid.UUID) string {
	return fmt.Sprintf("material:%s", materialID)
}

// UserRoom carries a single user's personal notifications.
func UserRoom(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID)
}

// Hub tracks room membership for connected websocket clients. Join and
// Leave are idempotent; broadcast is best-effort with no queuing beyond
// each client's send buffer.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// LeaveAll removes the client from every room it joined. Called on disconnect.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
}

func (h *Hub) leaveLocked(room string, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Broadcast sends message to every current member of room. A client whose
// send buffer is full is dropped rather than allowed to block the others.
func (h *Hub) Broadcast(room string, message []byte) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.trySend(message) {
			h.mu.Lock()
			for r := range c.rooms {
				h.leaveLocked(r, c)
			}
			h.mu.Unlock()
			c.close()
		}
	}
}

// MemberCount reports the current size of a room.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
