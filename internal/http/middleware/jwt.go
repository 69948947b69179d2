package middleware

import (
	"net/http"
	"strings"

	"promptparty/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT validates the player token and puts player_id and game_code into
// the gin context. The token comes from the Authorization header, or
// from ?token= for websocket upgrades.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		playerID, code, err := service.ParsePlayerToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("player_id", playerID)
		c.Set("game_code", code)
		c.Next()
	}
}
