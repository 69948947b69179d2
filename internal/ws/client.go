package ws

import (
	"time"

	"promptparty/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one websocket connection bound to a player in a session.
// The connection is outbound-only for game semantics: actions arrive
// over HTTP, the socket carries events and liveness pings.
type Client struct {
	PlayerID string
	Code     string
	Conn     *websocket.Conn
	Send     chan []byte

	hub  *Hub
	room *Room
}

func NewClient(playerID, code string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		PlayerID: playerID,
		Code:     code,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		hub:      hub,
	}
}

// Run attaches the client to its session room and pumps until the
// connection drops.
func (c *Client) Run() {
	go c.writePump()
	c.room = c.hub.Attach(c)
	if c.room == nil {
		_ = c.Conn.Close()
		return
	}
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.room.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "code", c.Code, "player_id", c.PlayerID, "error", err)
			}
			return
		}
		// Inbound frames carry no game actions; drop them.
		logger.Debug("ws inbound ignored", "code", c.Code, "player_id", c.PlayerID, "bytes", len(msg))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
