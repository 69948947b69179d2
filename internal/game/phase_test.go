package game

import (
	"testing"
	"time"
)

func TestPhaseTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseLobby, PhaseRoundSetup, true},
		{PhaseLobby, PhaseSelection, false},
		{PhaseRoundSetup, PhaseSelection, true},
		{PhaseSelection, PhaseSelectionDone, true},
		{PhaseSelection, PhaseImageGen, false},
		{PhaseSelectionDone, PhaseImageGen, true},
		{PhaseImageGen, PhaseImageGenDone, true},
		{PhaseImageGenDone, PhaseJudging, true},
		{PhaseJudging, PhaseJudgingDone, true},
		{PhaseJudgingDone, PhaseResults, true},
		{PhaseResults, PhaseRoundSetup, true},
		{PhaseResults, PhaseGameEnd, true},
		{PhaseGameEnd, PhaseRoundSetup, false},
		{PhaseGameEnd, PhaseLobby, false},
		{PhaseJudging, PhaseResults, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v; want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPhaseEverySuccessorIsLegal(t *testing.T) {
	for from, succs := range phaseTransitions {
		for _, to := range succs {
			if _, ok := phaseTransitions[to]; !ok {
				t.Errorf("%s -> %s leads to a phase with no transition entry", from, to)
			}
		}
	}
}

func TestPhaseTerminal(t *testing.T) {
	if !PhaseGameEnd.Terminal() {
		t.Fatal("GAME_END should be terminal")
	}
	for p := range phaseTransitions {
		if p != PhaseGameEnd && p.Terminal() {
			t.Errorf("%s should not be terminal", p)
		}
	}
}

func TestTimeoutsFor(t *testing.T) {
	tt := Timeouts{
		RoundSetup:        1 * time.Second,
		Selection:         2 * time.Second,
		SelectionComplete: 3 * time.Second,
		ImageDisplay:      4 * time.Second,
		ImageGenComplete:  5 * time.Second,
		Judging:           6 * time.Second,
		JudgingComplete:   7 * time.Second,
		Results:           8 * time.Second,
	}

	cases := []struct {
		phase Phase
		want  time.Duration
	}{
		{PhaseRoundSetup, 1 * time.Second},
		{PhaseSelection, 2 * time.Second},
		{PhaseSelectionDone, 3 * time.Second},
		{PhaseImageGen, 4 * time.Second},
		{PhaseImageGenDone, 5 * time.Second},
		{PhaseJudging, 6 * time.Second},
		{PhaseJudgingDone, 7 * time.Second},
		{PhaseResults, 8 * time.Second},
		{PhaseLobby, 0},
		{PhaseGameEnd, 0},
	}
	for _, tc := range cases {
		if got := tt.For(tc.phase); got != tc.want {
			t.Errorf("For(%s) = %v; want %v", tc.phase, got, tc.want)
		}
	}
}
