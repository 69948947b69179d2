package handlers

import (
	"promptparty/internal/config"
	"promptparty/internal/game"
	"promptparty/internal/repository"
	"promptparty/internal/session"

	"github.com/gin-gonic/gin"
)

// Handler holds dependencies for HTTP handlers. Results is nil when the
// server runs without Postgres.
type Handler struct {
	Registry *session.Registry
	Orch     *game.Orchestrator
	Results  *repository.ResultsRepository
	Cfg      *config.Config
}

func NewHandler(reg *session.Registry, orch *game.Orchestrator, results *repository.ResultsRepository, cfg *config.Config) *Handler {
	return &Handler{
		Registry: reg,
		Orch:     orch,
		Results:  results,
		Cfg:      cfg,
	}
}

// getPlayerID extracts the player ID set by the JWT middleware.
func getPlayerID(c *gin.Context) (string, bool) {
	v, ok := c.Get("player_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// getGameCode extracts the session code carried by the player token.
func getGameCode(c *gin.Context) (string, bool) {
	v, ok := c.Get("game_code")
	if !ok {
		return "", false
	}
	code, ok := v.(string)
	return code, ok && code != ""
}
