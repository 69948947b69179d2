package game

import "errors"

var (
	ErrGameInProgress   = errors.New("game already in progress")
	ErrGameOver         = errors.New("game is over")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrSessionFull      = errors.New("session is full")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrWrongPhase       = errors.New("action not allowed in current phase")
	ErrJudgeCannotPlay  = errors.New("the judge does not play cards this round")
	ErrNotJudge         = errors.New("only the judge can do that")
	ErrAlreadySubmitted = errors.New("already submitted this round")
	ErrWrongCardCount   = errors.New("selection does not match the blanks")
	ErrCardNotInHand    = errors.New("card is not in your hand")
	ErrInvalidWinner    = errors.New("winner has no submission this round")
	ErrSelfVote         = errors.New("cannot vote for yourself")
)
