package handlers

import (
	"errors"
	"net/http"

	"promptparty/internal/game"

	"github.com/gin-gonic/gin"
)

// instanceForCaller resolves the caller's session from the token claims.
// Writes the error response itself when resolution fails.
func (h *Handler) instanceForCaller(c *gin.Context) (*game.Instance, string, bool) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "player not found"})
		return nil, "", false
	}
	code, ok := getGameCode(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has no session"})
		return nil, "", false
	}
	inst, err := h.Registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, "", false
	}
	if _, ok := inst.PlayerByID(playerID); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a player in this session"})
		return nil, "", false
	}
	return inst, playerID, true
}

// SubmitSelection plays cards into the round's blanks.
// Expects {card_ids: [..]}.
func (h *Handler) SubmitSelection(c *gin.Context) {
	inst, playerID, ok := h.instanceForCaller(c)
	if !ok {
		return
	}

	var req struct {
		CardIDs []int `json:"card_ids"`
	}
	if err := c.BindJSON(&req); err != nil || len(req.CardIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_ids required"})
		return
	}

	if err := h.Orch.SubmitSelection(inst, playerID, req.CardIDs); err != nil {
		switch {
		case errors.Is(err, game.ErrWrongPhase):
			c.JSON(http.StatusConflict, gin.H{"error": "selections are closed"})
		case errors.Is(err, game.ErrJudgeCannotPlay):
			c.JSON(http.StatusForbidden, gin.H{"error": "the judge does not play this round"})
		case errors.Is(err, game.ErrAlreadySubmitted):
			c.JSON(http.StatusConflict, gin.H{"error": "already submitted"})
		case errors.Is(err, game.ErrWrongCardCount), errors.Is(err, game.ErrCardNotInHand):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, game.ErrPlayerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not submit"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SubmitJudgement records the judge's picks for the round.
// Expects {first_place, second_place?}.
func (h *Handler) SubmitJudgement(c *gin.Context) {
	inst, playerID, ok := h.instanceForCaller(c)
	if !ok {
		return
	}

	var req struct {
		FirstPlace  string `json:"first_place"`
		SecondPlace string `json:"second_place"`
	}
	if err := c.BindJSON(&req); err != nil || req.FirstPlace == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "first_place required"})
		return
	}

	if err := h.Orch.SubmitJudgeDecision(inst, playerID, req.FirstPlace, req.SecondPlace); err != nil {
		switch {
		case errors.Is(err, game.ErrNotJudge):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the judge can do that"})
		case errors.Is(err, game.ErrWrongPhase):
			c.JSON(http.StatusConflict, gin.H{"error": "judging is closed"})
		case errors.Is(err, game.ErrInvalidWinner):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not judge"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SubmitVote records a non-scoring audience vote during judging.
// Expects {for: player_id}.
func (h *Handler) SubmitVote(c *gin.Context) {
	inst, playerID, ok := h.instanceForCaller(c)
	if !ok {
		return
	}

	var req struct {
		For string `json:"for"`
	}
	if err := c.BindJSON(&req); err != nil || req.For == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "for required"})
		return
	}

	if err := h.Orch.SubmitAudienceVote(inst, playerID, req.For); err != nil {
		switch {
		case errors.Is(err, game.ErrWrongPhase):
			c.JSON(http.StatusConflict, gin.H{"error": "voting is closed"})
		case errors.Is(err, game.ErrSelfVote):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot vote for yourself"})
		case errors.Is(err, game.ErrInvalidWinner):
			c.JSON(http.StatusBadRequest, gin.H{"error": "that player has no submission"})
		case errors.Is(err, game.ErrPlayerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not vote"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GameState returns the full session snapshot plus the caller's private
// hand. The game ID in the path must match the caller's session.
func (h *Handler) GameState(c *gin.Context) {
	inst, playerID, ok := h.instanceForCaller(c)
	if !ok {
		return
	}
	if inst.ID != c.Param("id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	hand, _ := inst.Hand(playerID)
	c.JSON(http.StatusOK, gin.H{
		"state": inst.Snapshot(),
		"hand":  hand,
	})
}
