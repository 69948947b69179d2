package handlers

import (
	"net/http"
	"strings"

	"promptparty/internal/logger"
	"promptparty/internal/service"
	"promptparty/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WS upgrades the connection and attaches the player to their session's
// room. The player token rides in the query string because browsers
// cannot set headers on websocket dials.
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	allowed := splitOrigins(h.Cfg.AllowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		playerID, code, err := service.ParsePlayerToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if q := strings.ToUpper(c.Query("code")); q != "" && q != code {
			c.JSON(http.StatusForbidden, gin.H{"error": "token is for a different session"})
			return
		}

		inst, err := h.Registry.Get(code)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if _, ok := inst.PlayerByID(playerID); !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a player in this session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("ws upgrade failed", "err", err, "code", code)
			return
		}

		client := ws.NewClient(playerID, code, conn, hub)
		go client.Run()
	}
}

// splitOrigins parses ALLOWED_ORIGINS. "*" or empty means allow all,
// reported as a nil slice.
func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "*" {
			return nil
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
