package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RecentGames lists finished games from Postgres, newest first.
func (h *Handler) RecentGames(c *gin.Context) {
	if h.Results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	games, err := h.Results.RecentGames(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// GameRounds returns the stored round-by-round record of one game.
func (h *Handler) GameRounds(c *gin.Context) {
	if h.Results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	rounds, err := h.Results.GameRounds(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if len(rounds) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}
