package ws

import (
	"encoding/json"
	"sync"
	"time"

	"promptparty/internal/game"
	"promptparty/internal/logger"
)

// Hub owns the rooms, one per session code, and implements
// game.Broadcaster for the game layer. Delivery is best-effort and
// never blocks the caller: queues are buffered and overflow drops the
// slow consumer, not the game.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	// Presence hooks into the game layer, assigned at wire-up.
	OnConnect    func(code, playerID string)
	OnDisconnect func(code, playerID string)
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Room)}
}

// Attach puts the client in its session's room, creating the room on
// first use. Returns nil when the room was torn down concurrently.
func (h *Hub) Attach(c *Client) *Room {
	h.mu.Lock()
	room, ok := h.rooms[c.Code]
	if !ok {
		room = newRoom(c.Code, h.onJoin, h.onGone)
		h.rooms[c.Code] = room
		go room.Run()
		logger.Debug("ws room created", "code", c.Code)
	}
	h.mu.Unlock()

	if !room.register(c) {
		return nil
	}
	return room
}

func (h *Hub) onJoin(code, playerID string) {
	if h.OnConnect != nil {
		h.OnConnect(code, playerID)
	}
}

func (h *Hub) onGone(code, playerID string) {
	if h.OnDisconnect != nil {
		h.OnDisconnect(code, playerID)
	}
}

func (h *Hub) room(code string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[code]
}

// BroadcastEvent implements game.Broadcaster.
func (h *Hub) BroadcastEvent(code string, ev game.Event) {
	room := h.room(code)
	if room == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws marshal event", "code", code, "type", ev.Type, "error", err)
		return
	}
	select {
	case room.Broadcast <- data:
	default:
		logger.Warn("ws broadcast queue full", "code", code, "type", ev.Type)
	}
}

// SendToPlayer implements game.Broadcaster. Used for private payloads
// like hands.
func (h *Hub) SendToPlayer(code, playerID string, ev game.Event) {
	room := h.room(code)
	if room == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("ws marshal event", "code", code, "type", ev.Type, "error", err)
		return
	}
	select {
	case room.Private <- privateMsg{playerID: playerID, data: data}:
	default:
		logger.Warn("ws private queue full", "code", code, "player_id", playerID)
	}
}

// CloseRoom implements game.Broadcaster. Called when a session is
// removed from the registry.
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	room := h.rooms[code]
	delete(h.rooms, code)
	h.mu.Unlock()

	if room != nil {
		room.close()
		logger.Debug("ws room closed", "code", code)
	}
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// StartCleanup sweeps rooms that ended up without a session behind
// them, e.g. when a client re-created a room after eviction.
func (h *Hub) StartCleanup() {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.cleanupStaleRooms()
		}
	}()
}

func (h *Hub) cleanupStaleRooms() {
	now := time.Now()

	h.mu.Lock()
	var stale []*Room
	for code, room := range h.rooms {
		if room.nclients.Load() == 0 && now.Sub(room.createdAt) > time.Hour {
			delete(h.rooms, code)
			stale = append(stale, room)
		}
	}
	h.mu.Unlock()

	for _, room := range stale {
		room.close()
		logger.Info("cleaned up stale room", "code", room.Code)
	}
}
