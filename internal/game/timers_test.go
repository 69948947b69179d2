package game

import (
	"testing"
	"time"
)

// slowConfig arms every phase timer far in the future so tests can
// fire the callback by hand.
func slowConfig() Config {
	cfg := DefaultConfig()
	cfg.HandSize = 4
	cfg.Timeouts = Timeouts{
		RoundSetup:        time.Hour,
		Selection:         time.Hour,
		SelectionComplete: time.Hour,
		ImageDisplay:      time.Hour,
		ImageGenComplete:  time.Hour,
		Judging:           time.Hour,
		JudgingComplete:   time.Hour,
		Results:           time.Hour,
	}
	return cfg
}

func TestPhaseTimerFireAdvances(t *testing.T) {
	o := NewOrchestrator(slowConfig(), nil, nil, nil)
	g := NewInstance("TEST42", 5)
	defer g.Close()

	host, _ := g.AddPlayer("Ana", "", 8)
	if err := o.StartGame(g, host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := g.Phase(); got != PhaseRoundSetup {
		t.Fatalf("phase = %s; want %s", got, PhaseRoundSetup)
	}

	g.mu.Lock()
	gen := g.timerGen
	g.mu.Unlock()

	o.phaseTimerFired(g, gen)
	if got := g.Phase(); got != PhaseSelection {
		t.Fatalf("phase = %s; want %s", got, PhaseSelection)
	}
}

func TestStaleGenerationIsNoOp(t *testing.T) {
	o := NewOrchestrator(slowConfig(), nil, nil, nil)
	g := NewInstance("TEST42", 5)
	defer g.Close()

	host, _ := g.AddPlayer("Ana", "", 8)
	if err := o.StartGame(g, host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	g.mu.Lock()
	gen := g.timerGen
	g.mu.Unlock()

	o.phaseTimerFired(g, gen-1)
	if got := g.Phase(); got != PhaseRoundSetup {
		t.Fatalf("stale fire advanced the phase to %s", got)
	}

	// A fire invalidates its own generation, so a racing duplicate
	// lands as a no-op instead of advancing twice.
	o.phaseTimerFired(g, gen)
	o.phaseTimerFired(g, gen)
	if got := g.Phase(); got != PhaseSelection {
		t.Fatalf("duplicate fire advanced the phase to %s", got)
	}
}

func TestFireAfterCloseIsNoOp(t *testing.T) {
	o := NewOrchestrator(slowConfig(), nil, nil, nil)
	g := NewInstance("TEST42", 5)

	host, _ := g.AddPlayer("Ana", "", 8)
	if err := o.StartGame(g, host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.Close()

	g.mu.Lock()
	gen := g.timerGen
	g.mu.Unlock()

	o.phaseTimerFired(g, gen)
	if got := g.Phase(); got != PhaseRoundSetup {
		t.Fatalf("fire after close advanced the phase to %s", got)
	}
}

func TestScheduleZeroDurationDoesNotArm(t *testing.T) {
	o := NewOrchestrator(slowConfig(), nil, nil, nil)
	g := NewInstance("TEST42", 5)
	defer g.Close()

	g.mu.Lock()
	o.scheduleLocked(g, 0)
	armed := g.phaseTimer != nil
	g.mu.Unlock()
	if armed {
		t.Fatal("zero duration must not arm a timer")
	}

	g.mu.Lock()
	o.scheduleLocked(g, time.Hour)
	armed = g.phaseTimer != nil
	g.mu.Unlock()
	if !armed {
		t.Fatal("positive duration should arm a timer")
	}
}
