package game

import (
	"time"

	"promptparty/internal/logger"
)

// scheduleLocked arms the auto-advance timer for the current phase.
// Caller holds g.mu. The generation counter was bumped by the
// transition that got us here; a fire with a stale generation is a
// no-op, which makes duplicate advances from racing timers impossible.
func (o *Orchestrator) scheduleLocked(g *Instance, d time.Duration) {
	if d <= 0 {
		return
	}
	gen := g.timerGen
	if g.phaseTimer != nil {
		g.phaseTimer.Stop()
	}
	g.phaseTimer = time.AfterFunc(d, func() {
		o.phaseTimerFired(g, gen)
	})
}

// phaseTimerFired is the single timer callback. It revalidates the
// generation under the lock before acting: the timer may have been
// outrun by an early advance (everyone submitted) or by Close.
func (o *Orchestrator) phaseTimerFired(g *Instance, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ctx.Err() != nil || gen != g.timerGen {
		return
	}

	switch g.phase {
	case PhaseRoundSetup:
		o.advanceLocked(g, PhaseSelection)
	case PhaseSelection:
		logger.Info("selection window closed",
			"code", g.Code, "round", g.round, "submitted", len(g.selections))
		o.advanceLocked(g, PhaseSelectionDone)
	case PhaseSelectionDone:
		o.advanceLocked(g, PhaseImageGen)
	case PhaseImageGenDone:
		o.advanceLocked(g, PhaseJudging)
	case PhaseJudging:
		logger.Info("judge timed out, picking by submission order",
			"code", g.Code, "round", g.round)
		o.autoJudgeLocked(g)
	case PhaseJudgingDone:
		o.advanceLocked(g, PhaseResults)
	case PhaseResults:
		if g.round >= g.maxRounds {
			o.advanceLocked(g, PhaseGameEnd)
		} else {
			o.advanceLocked(g, PhaseRoundSetup)
		}
	}
}
