package chat

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type room struct {
	clients map[*Client]struct{}
	// order serializes persisting and broadcasting messages of the room.
	order sync.Mutex
}

// Hub is the registry of conversation rooms and their connected sockets.
type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*room
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]*room)}
}

// Join adds c to the room of its conversation.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.roomID]
	if !ok {
		r = &room{clients: make(map[*Client]struct{})}
		h.rooms[c.roomID] = r
	}
	r.clients[c] = struct{}{}
}

// Leave removes c and drops the room once it is empty. It is safe to call
// more than once.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	r, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	close(c.send)
	if len(r.clients) == 0 {
		delete(h.rooms, c.roomID)
	}
}

// Sequence runs fn holding the room's ordering lock. Messages persisted and
// broadcast inside fn reach every socket in commit order.
func (h *Hub) Sequence(roomID uuid.UUID, fn func()) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok {
		fn()
		return
	}
	r.order.Lock()
	defer r.order.Unlock()
	fn()
}

// Broadcast queues v on every socket of the room. Sockets whose queue is
// full are dropped.
func (h *Hub) Broadcast(roomID uuid.UUID, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode chat event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for c := range r.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("room_id", roomID.String()).Str("user_id", c.principal.ID.String()).Msg("dropping slow chat client")
			h.removeLocked(c)
		}
	}
}

// Send queues v on a single socket.
func (h *Hub) Send(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode chat event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	if _, ok := r.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.removeLocked(c)
	}
}

// RoomSize returns the number of sockets connected to the room.
func (h *Hub) RoomSize(roomID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[roomID]; ok {
		return len(r.clients)
	}
	return 0
}
