package game

import "time"

// Phase is a stage of the round loop. All transitions go through the
// orchestrator's advance gate; the tables below are pure data.
type Phase string

const (
	PhaseLobby         Phase = "LOBBY"
	PhaseRoundSetup    Phase = "ROUND_SETUP"
	PhaseSelection     Phase = "SELECTION"
	PhaseSelectionDone Phase = "SELECTION_COMPLETE"
	PhaseImageGen      Phase = "IMAGE_GEN"
	PhaseImageGenDone  Phase = "IMAGE_GEN_COMPLETE"
	PhaseJudging       Phase = "JUDGING"
	PhaseJudgingDone   Phase = "JUDGING_COMPLETE"
	PhaseResults       Phase = "RESULTS"
	PhaseGameEnd       Phase = "GAME_END"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseLobby:         {PhaseRoundSetup},
	PhaseRoundSetup:    {PhaseSelection},
	PhaseSelection:     {PhaseSelectionDone},
	PhaseSelectionDone: {PhaseImageGen},
	PhaseImageGen:      {PhaseImageGenDone},
	PhaseImageGenDone:  {PhaseJudging},
	PhaseJudging:       {PhaseJudgingDone},
	PhaseJudgingDone:   {PhaseResults},
	PhaseResults:       {PhaseRoundSetup, PhaseGameEnd},
	PhaseGameEnd:       {},
}

// CanTransitionTo reports whether next is a legal successor of p.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the game is over.
func (p Phase) Terminal() bool {
	return p == PhaseGameEnd
}

// Timeouts holds the auto-advance window per phase. Zero means the
// phase waits for an explicit action (or forever).
type Timeouts struct {
	RoundSetup        time.Duration
	Selection         time.Duration
	SelectionComplete time.Duration
	ImageDisplay      time.Duration
	ImageGenComplete  time.Duration
	Judging           time.Duration
	JudgingComplete   time.Duration
	Results           time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		RoundSetup:        2 * time.Second,
		Selection:         45 * time.Second,
		SelectionComplete: 1 * time.Second,
		ImageDisplay:      5 * time.Second,
		ImageGenComplete:  500 * time.Millisecond,
		Judging:           0,
		JudgingComplete:   1 * time.Second,
		Results:           8 * time.Second,
	}
}

// For returns the auto-advance window for p.
func (t Timeouts) For(p Phase) time.Duration {
	switch p {
	case PhaseRoundSetup:
		return t.RoundSetup
	case PhaseSelection:
		return t.Selection
	case PhaseSelectionDone:
		return t.SelectionComplete
	case PhaseImageGen:
		return t.ImageDisplay
	case PhaseImageGenDone:
		return t.ImageGenComplete
	case PhaseJudging:
		return t.Judging
	case PhaseJudgingDone:
		return t.JudgingComplete
	case PhaseResults:
		return t.Results
	default:
		return 0
	}
}
