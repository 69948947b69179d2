package ws

import (
	"sync/atomic"
	"time"

	"promptparty/internal/logger"
)

type privateMsg struct {
	playerID string
	data     []byte
}

// Room fans session events out to the connected clients of one game
// code. All client-map access happens on the Run goroutine.
type Room struct {
	Code string

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte
	Private    chan privateMsg

	clients   map[string]*Client
	nclients  atomic.Int32
	stop      chan struct{}
	createdAt time.Time

	// Presence callbacks into the game layer, set by the hub. They must
	// not block: anything they broadcast re-enters through the buffered
	// channels above.
	onJoin func(code, playerID string)
	onGone func(code, playerID string)
}

func newRoom(code string, onJoin, onGone func(code, playerID string)) *Room {
	return &Room{
		Code:       code,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, sendBuffer),
		Private:    make(chan privateMsg, sendBuffer),
		clients:    make(map[string]*Client),
		stop:       make(chan struct{}),
		createdAt:  time.Now(),
		onJoin:     onJoin,
		onGone:     onGone,
	}
}

func (r *Room) Run() {
	for {
		select {
		case c := <-r.Register:
			// A reconnect replaces the old connection for the player.
			if old, ok := r.clients[c.PlayerID]; ok && old != c {
				_ = old.Conn.Close()
			}
			r.clients[c.PlayerID] = c
			r.nclients.Store(int32(len(r.clients)))
			logger.Debug("ws client joined", "code", r.Code, "player_id", c.PlayerID, "clients", len(r.clients))
			if r.onJoin != nil {
				r.onJoin(r.Code, c.PlayerID)
			}

		case c := <-r.Unregister:
			// Ignore stale unregisters from a replaced connection.
			if cur, ok := r.clients[c.PlayerID]; !ok || cur != c {
				continue
			}
			delete(r.clients, c.PlayerID)
			r.nclients.Store(int32(len(r.clients)))
			logger.Debug("ws client left", "code", r.Code, "player_id", c.PlayerID, "clients", len(r.clients))
			if r.onGone != nil {
				r.onGone(r.Code, c.PlayerID)
			}

		case msg := <-r.Broadcast:
			for id, c := range r.clients {
				select {
				case c.Send <- msg:
				default:
					// Slow consumer: cut the connection, the client can
					// reconnect and resync from the next phase event.
					r.drop(id, c)
				}
			}

		case pm := <-r.Private:
			if c, ok := r.clients[pm.playerID]; ok {
				select {
				case c.Send <- pm.data:
				default:
					r.drop(pm.playerID, c)
				}
			}

		case <-r.stop:
			for _, c := range r.clients {
				close(c.Send)
			}
			r.clients = make(map[string]*Client)
			return
		}
	}
}

// drop removes a slow consumer from the run goroutine.
func (r *Room) drop(playerID string, c *Client) {
	logger.Warn("ws send buffer full, dropping client", "code", r.Code, "player_id", playerID)
	delete(r.clients, playerID)
	r.nclients.Store(int32(len(r.clients)))
	close(c.Send)
	if r.onGone != nil {
		r.onGone(r.Code, playerID)
	}
}

// register hands the client to the run goroutine. False means the room
// is already shut down.
func (r *Room) register(c *Client) bool {
	select {
	case r.Register <- c:
		return true
	case <-r.stop:
		return false
	}
}

func (r *Room) unregister(c *Client) {
	select {
	case r.Unregister <- c:
	case <-r.stop:
	}
}

func (r *Room) close() {
	close(r.stop)
}
