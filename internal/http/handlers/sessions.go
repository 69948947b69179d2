package handlers

import (
	"errors"
	"net/http"
	"strings"

	"promptparty/internal/game"
	"promptparty/internal/service"
	"promptparty/internal/session"

	"github.com/gin-gonic/gin"
)

const maxRoundsCap = 20

// CreateSession opens a new lobby and admits the caller as host.
// Expects {name, avatar?, max_rounds?}.
func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		Avatar    string `json:"avatar"`
		MaxRounds int    `json:"max_rounds"`
	}
	if err := c.BindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	if req.MaxRounds > maxRoundsCap {
		req.MaxRounds = maxRoundsCap
	}

	inst, host, err := h.Registry.Create(strings.TrimSpace(req.Name), req.Avatar, req.MaxRounds)
	if err != nil {
		if errors.Is(err, session.ErrCapacityExhausted) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no free session codes"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	token, err := service.GeneratePlayerToken(host.ID, inst.Code)
	if err != nil {
		h.Registry.Remove(inst.Code)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"game_id":    inst.ID,
		"code":       inst.Code,
		"token":      token,
		"player":     host,
		"max_rounds": inst.Snapshot().MaxRounds,
	})
}

// JoinSession admits a player into an open lobby. Expects {name, avatar?}.
func (h *Handler) JoinSession(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))

	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := c.BindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}

	inst, player, err := h.Registry.Join(code, strings.TrimSpace(req.Name), req.Avatar)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if errors.Is(err, game.ErrGameInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "game already started"})
			return
		}
		if errors.Is(err, game.ErrSessionFull) {
			c.JSON(http.StatusConflict, gin.H{"error": "session is full"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join"})
		return
	}

	token, err := service.GeneratePlayerToken(player.ID, inst.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id": inst.ID,
		"code":    inst.Code,
		"token":   token,
		"player":  player,
		"players": inst.Players(),
	})
}

// GetSession returns the public view of a session. No hands, no token.
func (h *Handler) GetSession(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	inst, err := h.Registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, inst.Snapshot())
}

// LeaveSession removes the caller from the session.
func (h *Handler) LeaveSession(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "player not found"})
		return
	}
	code := strings.ToUpper(c.Param("code"))
	if tokenCode, ok := getGameCode(c); ok && tokenCode != code {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is for a different session"})
		return
	}

	if err := h.Registry.Leave(code, playerID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if errors.Is(err, game.ErrPlayerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// StartGame moves the lobby into its first round. Host only.
func (h *Handler) StartGame(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "player not found"})
		return
	}
	code := strings.ToUpper(c.Param("code"))
	if tokenCode, ok := getGameCode(c); ok && tokenCode != code {
		c.JSON(http.StatusForbidden, gin.H{"error": "token is for a different session"})
		return
	}

	inst, err := h.Registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := h.Orch.StartGame(inst, playerID); err != nil {
		if errors.Is(err, game.ErrNotHost) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the host can start"})
			return
		}
		if errors.Is(err, game.ErrNotEnoughPlayers) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "not enough players"})
			return
		}
		if errors.Is(err, game.ErrGameInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "game already started"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"phase": inst.Phase(), "code": inst.Code})
}
