package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"promptparty/internal/imagegen"
	"promptparty/internal/logger"
)

const persistTimeout = 5 * time.Second

// Config tunes the round loop. Zero values fall back to defaults.
type Config struct {
	HandSize          int
	FirstPlacePoints  int
	SecondPlacePoints int
	ImageBudget       time.Duration
	MaxImageJobs      int
	Timeouts          Timeouts
}

func DefaultConfig() Config {
	return Config{
		HandSize:          8,
		FirstPlacePoints:  3,
		SecondPlacePoints: 1,
		ImageBudget:       60 * time.Second,
		MaxImageJobs:      4,
		Timeouts:          DefaultTimeouts(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HandSize <= 0 {
		c.HandSize = d.HandSize
	}
	if c.FirstPlacePoints <= 0 {
		c.FirstPlacePoints = d.FirstPlacePoints
	}
	if c.SecondPlacePoints < 0 {
		c.SecondPlacePoints = d.SecondPlacePoints
	}
	if c.ImageBudget <= 0 {
		c.ImageBudget = d.ImageBudget
	}
	if c.MaxImageJobs <= 0 {
		c.MaxImageJobs = d.MaxImageJobs
	}
	if c.Timeouts == (Timeouts{}) {
		c.Timeouts = d.Timeouts
	}
	return c
}

// RoundRecord is what gets persisted after each round.
type RoundRecord struct {
	GameID   string
	Code     string
	Round    int
	Sentence string
	Decision *JudgeDecision
	Images   []ImageResult
	PlayedAt time.Time
}

// GameRecord is the final summary persisted at GAME_END.
type GameRecord struct {
	GameID     string
	Code       string
	Rounds     int
	WinnerID   string
	WinnerName string
	Players    []Player
	FinishedAt time.Time
}

// ResultSink receives finished rounds and games. A nil sink disables
// persistence.
type ResultSink interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
	RecordGame(ctx context.Context, rec GameRecord) error
}

// Orchestrator drives instances through the phase loop. It owns no
// state of its own beyond collaborators, so one orchestrator serves
// every session in the process.
type Orchestrator struct {
	cfg       Config
	broadcast Broadcaster
	images    imagegen.Generator
	results   ResultSink
}

// NewOrchestrator wires the round loop to its collaborators. The
// Broadcaster must not block: socket writes happen on the hub's own
// goroutines.
func NewOrchestrator(cfg Config, b Broadcaster, gen imagegen.Generator, sink ResultSink) *Orchestrator {
	if b == nil {
		b = NopBroadcaster{}
	}
	if gen == nil {
		gen = imagegen.NewPlaceholder()
	}
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		broadcast: b,
		images:    gen,
		results:   sink,
	}
}

// StartGame begins the round loop. Host only, lobby only. With a single
// player the judge role is disabled for the whole game.
func (o *Orchestrator) StartGame(g *Instance, playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase.Terminal() {
		return ErrGameOver
	}
	if g.phase != PhaseLobby {
		return ErrGameInProgress
	}
	if playerID != g.hostID {
		return ErrNotHost
	}
	if len(g.players) == 0 {
		return ErrNotEnoughPlayers
	}

	g.hasJudge = len(g.players) > 1
	g.judgeIdx = g.rng.Intn(len(g.players))
	gamesStartedTotal.Inc()
	logger.Info("game started",
		"code", g.Code, "players", len(g.players), "rounds", g.maxRounds, "has_judge", g.hasJudge)

	o.advanceLocked(g, PhaseRoundSetup)
	return nil
}

// advanceLocked is the single phase transition gate. Illegal or stale
// requests are dropped silently, which is what makes racing timers and
// duplicate submissions harmless. Caller holds g.mu.
func (o *Orchestrator) advanceLocked(g *Instance, to Phase) {
	if !g.phase.CanTransitionTo(to) {
		return
	}
	from := g.phase
	g.phase = to
	g.recordTransition(from, to)
	g.touchLocked()
	g.timerGen++
	if g.phaseTimer != nil {
		g.phaseTimer.Stop()
		g.phaseTimer = nil
	}
	phaseTransitionsTotal.WithLabelValues(string(to)).Inc()
	logger.Debug("phase transition", "code", g.Code, "from", from, "to", to, "round", g.round)

	switch to {
	case PhaseRoundSetup:
		o.enterRoundSetup(g)
	case PhaseSelection:
		o.enterTimed(g, o.cfg.Timeouts.Selection)
	case PhaseSelectionDone:
		o.enterTimed(g, o.cfg.Timeouts.SelectionComplete)
	case PhaseImageGen:
		o.enterImageGen(g)
	case PhaseImageGenDone:
		o.enterTimed(g, o.cfg.Timeouts.ImageGenComplete)
	case PhaseJudging:
		o.enterJudging(g)
	case PhaseJudgingDone:
		o.enterJudgingDone(g)
	case PhaseResults:
		o.enterResults(g)
	case PhaseGameEnd:
		o.enterGameEnd(g)
	}
}

// enterTimed covers the phases whose only job is to show something for
// a fixed window before the timer moves on.
func (o *Orchestrator) enterTimed(g *Instance, d time.Duration) {
	o.broadcastPhaseLocked(g, d)
	o.scheduleLocked(g, d)
}

func (o *Orchestrator) enterRoundSetup(g *Instance) {
	g.round++
	if g.hasJudge {
		if g.round > 1 {
			g.judgeIdx = (g.judgeIdx + 1) % len(g.players)
		}
		g.judgeID = g.players[g.judgeIdx].ID
	}
	g.template = pickTemplate(g.rng)
	g.selections = make(map[string]*Selection)
	g.images = make(map[string]*ImageResult)
	g.decision = nil
	g.votes = make(map[string]string)

	for _, p := range g.players {
		if need := o.cfg.HandSize - len(p.Hand); need > 0 {
			p.Hand = append(p.Hand, g.deck.drawN(need)...)
		}
	}

	o.broadcastPhaseLocked(g, o.cfg.Timeouts.RoundSetup)
	for _, p := range g.players {
		cards := make([]Card, len(p.Hand))
		copy(cards, p.Hand)
		o.broadcast.SendToPlayer(g.Code, p.ID, Event{Type: EventHand, Payload: HandPayload{Cards: cards}})
	}
	o.scheduleLocked(g, o.cfg.Timeouts.RoundSetup)
}

func (o *Orchestrator) enterImageGen(g *Instance) {
	o.broadcastPhaseLocked(g, o.cfg.Timeouts.ImageDisplay)

	jobs := make([]imageJob, 0, len(g.selections))
	for pid, sel := range g.selections {
		jobs = append(jobs, imageJob{
			playerID: pid,
			prompt:   fillTemplate(g.template, sel.Cards),
		})
	}
	// No phase timer here: the gather goroutine advances once every
	// job has resolved and the display window has passed.
	gen := g.timerGen
	go o.runImageGen(g, gen, jobs)
}

type imageJob struct {
	playerID string
	prompt   string
}

// runImageGen fans out one generation job per submitted selection,
// bounded by the concurrency cap and the overall budget. Failures are
// recorded on the result, never allowed to stall the round.
func (o *Orchestrator) runImageGen(g *Instance, gen uint64, jobs []imageJob) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(g.ctx, o.cfg.ImageBudget)
	defer cancel()

	results := make([]*ImageResult, len(jobs))
	sem := make(chan struct{}, o.cfg.MaxImageJobs)
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job imageJob) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				imageJobsTotal.WithLabelValues("timeout").Inc()
				results[i] = &ImageResult{PlayerID: job.playerID, Prompt: job.prompt, Error: "image generation timed out"}
				return
			}

			t0 := time.Now()
			art, err := o.images.Generate(ctx, job.prompt)
			res := &ImageResult{
				PlayerID:  job.playerID,
				Prompt:    job.prompt,
				ElapsedMS: time.Since(t0).Milliseconds(),
			}
			if err != nil {
				imageJobsTotal.WithLabelValues("error").Inc()
				logger.Error("image generation failed", "code", g.Code, "player_id", job.playerID, "error", err)
				res.Error = err.Error()
			} else {
				imageJobsTotal.WithLabelValues("ok").Inc()
				res.ArtifactID = art.ID
				res.URL = art.URL
			}
			results[i] = res
		}(i, job)
	}
	wg.Wait()

	g.mu.Lock()
	if g.ctx.Err() != nil || gen != g.timerGen || g.phase != PhaseImageGen {
		g.mu.Unlock()
		return
	}
	for _, r := range results {
		if r != nil {
			g.images[r.PlayerID] = r
		}
	}
	g.mu.Unlock()

	// Hold the phase for the rest of the display window even when the
	// images came back fast.
	if rem := o.cfg.Timeouts.ImageDisplay - time.Since(start); rem > 0 {
		select {
		case <-time.After(rem):
		case <-g.ctx.Done():
			return
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx.Err() != nil || gen != g.timerGen {
		return
	}
	o.advanceLocked(g, PhaseImageGenDone)
}

func (o *Orchestrator) enterJudging(g *Instance) {
	o.broadcastPhaseLocked(g, o.cfg.Timeouts.Judging)
	o.broadcast.BroadcastEvent(g.Code, Event{
		Type:    EventGallery,
		Payload: GalleryPayload{Entries: o.galleryLocked(g)},
	})

	// Nothing to judge with no judge or no submissions.
	if !g.hasJudge || len(g.selections) == 0 {
		o.autoJudgeLocked(g)
		return
	}
	o.scheduleLocked(g, o.cfg.Timeouts.Judging)
}

// galleryLocked pairs each submitted sentence with its image result,
// shuffled so the display order leaks nothing about submission order.
func (o *Orchestrator) galleryLocked(g *Instance) []GalleryEntry {
	entries := make([]GalleryEntry, 0, len(g.selections))
	for pid, sel := range g.selections {
		e := GalleryEntry{
			PlayerID: pid,
			Sentence: fillTemplate(g.template, sel.Cards),
		}
		if img := g.images[pid]; img != nil {
			e.URL = img.URL
			e.Error = img.Error
		} else {
			e.Error = "no image"
		}
		entries = append(entries, e)
	}
	g.rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
	return entries
}

// autoJudgeLocked synthesizes a decision from submission arrival order:
// earliest submission takes first place, the next distinct player takes
// second. Runs when there is no judge or the judge never answered.
func (o *Orchestrator) autoJudgeLocked(g *Instance) {
	ordered := make([]*Selection, 0, len(g.selections))
	for _, sel := range g.selections {
		ordered = append(ordered, sel)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	if len(ordered) > 0 {
		d := &JudgeDecision{
			FirstPlaceID: ordered[0].PlayerID,
			AutoPicked:   true,
			DecidedAt:    time.Now(),
		}
		if len(ordered) > 1 {
			d.SecondPlaceID = ordered[1].PlayerID
		}
		g.decision = d
	}
	o.advanceLocked(g, PhaseJudgingDone)
}

func (o *Orchestrator) enterJudgingDone(g *Instance) {
	if d := g.decision; d != nil {
		if p := g.playerByID(d.FirstPlaceID); p != nil {
			p.Score += o.cfg.FirstPlacePoints
		}
		if d.SecondPlaceID != "" {
			if p := g.playerByID(d.SecondPlaceID); p != nil {
				p.Score += o.cfg.SecondPlacePoints
			}
		}
	}
	o.enterTimed(g, o.cfg.Timeouts.JudgingComplete)
}

func (o *Orchestrator) enterResults(g *Instance) {
	o.broadcastPhaseLocked(g, o.cfg.Timeouts.Results)

	tally := make(map[string]int)
	for _, votee := range g.votes {
		tally[votee]++
	}
	var decision *JudgeDecision
	if g.decision != nil {
		d := *g.decision
		decision = &d
	}
	o.broadcast.BroadcastEvent(g.Code, Event{
		Type: EventRoundResults,
		Payload: RoundResultsPayload{
			Round:    g.round,
			Decision: decision,
			Gallery:  o.galleryLocked(g),
			Votes:    tally,
			Players:  g.rosterLocked(),
		},
	})

	if o.results != nil {
		go o.persistRound(o.roundRecordLocked(g))
	}
	o.scheduleLocked(g, o.cfg.Timeouts.Results)
}

func (o *Orchestrator) enterGameEnd(g *Instance) {
	winner := winnerLocked(g)
	gamesCompletedTotal.Inc()
	logger.Info("game over", "code", g.Code, "rounds", g.round, "winner_id", winner.ID)

	o.broadcastPhaseLocked(g, 0)
	o.broadcast.BroadcastEvent(g.Code, Event{
		Type: EventFinalResults,
		Payload: FinalResultsPayload{
			WinnerID: winner.ID,
			Players:  g.rosterLocked(),
			Rounds:   g.round,
		},
	})

	if o.results != nil {
		go o.persistGame(GameRecord{
			GameID:     g.ID,
			Code:       g.Code,
			Rounds:     g.round,
			WinnerID:   winner.ID,
			WinnerName: winner.Name,
			Players:    g.rosterLocked(),
			FinishedAt: time.Now(),
		})
	}
	g.cancel()
}

// winnerLocked picks the highest score; roster order breaks ties.
func winnerLocked(g *Instance) Player {
	var best *Player
	for _, p := range g.players {
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	if best == nil {
		return Player{}
	}
	return *best
}

func (o *Orchestrator) roundRecordLocked(g *Instance) RoundRecord {
	rec := RoundRecord{
		GameID:   g.ID,
		Code:     g.Code,
		Round:    g.round,
		Sentence: g.template.Text,
		PlayedAt: time.Now(),
	}
	if g.decision != nil {
		d := *g.decision
		rec.Decision = &d
	}
	for _, img := range g.images {
		rec.Images = append(rec.Images, *img)
	}
	return rec
}

func (o *Orchestrator) persistRound(rec RoundRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := o.results.RecordRound(ctx, rec); err != nil {
		logger.Error("failed to record round", "code", rec.Code, "round", rec.Round, "error", err)
	}
}

func (o *Orchestrator) persistGame(rec GameRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := o.results.RecordGame(ctx, rec); err != nil {
		logger.Error("failed to record game", "code", rec.Code, "error", err)
	}
}

func (o *Orchestrator) broadcastPhaseLocked(g *Instance, window time.Duration) {
	payload := PhaseChangedPayload{
		Phase:     g.phase,
		Round:     g.round,
		MaxRounds: g.maxRounds,
		JudgeID:   g.judgeID,
	}
	if g.round > 0 && !g.phase.Terminal() {
		tpl := g.template
		payload.Template = &tpl
	}
	if window > 0 {
		deadline := time.Now().Add(window)
		payload.Deadline = &deadline
	}
	o.broadcast.BroadcastEvent(g.Code, Event{Type: EventPhaseChanged, Payload: payload})
}

// SubmitSelection plays cards from the player's hand into the current
// sentence. Cards are referenced by ID. When every connected eligible
// player is in, the phase advances early.
func (o *Orchestrator) SubmitSelection(g *Instance, playerID string, cardIDs []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase.Terminal() {
		return ErrGameOver
	}
	if g.phase != PhaseSelection {
		return ErrWrongPhase
	}
	p := g.playerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if g.hasJudge && playerID == g.judgeID {
		return ErrJudgeCannotPlay
	}
	if _, dup := g.selections[playerID]; dup {
		return ErrAlreadySubmitted
	}
	if len(cardIDs) != g.template.Blanks {
		return ErrWrongCardCount
	}

	cards, err := takeFromHand(p, cardIDs)
	if err != nil {
		return err
	}
	g.deck.toDiscard(cards...)
	g.selections[playerID] = &Selection{
		PlayerID:    playerID,
		Cards:       cards,
		SubmittedAt: time.Now(),
	}
	g.touchLocked()
	logger.Debug("selection in", "code", g.Code, "player_id", playerID, "round", g.round)

	if o.allSelectionsInLocked(g) {
		o.advanceLocked(g, PhaseSelectionDone)
	}
	return nil
}

// takeFromHand removes the picked cards, keeping selection order.
// Duplicate or unknown IDs reject the whole selection.
func takeFromHand(p *Player, cardIDs []int) ([]Card, error) {
	picked := make([]Card, 0, len(cardIDs))
	used := make(map[int]bool, len(cardIDs))
	for _, id := range cardIDs {
		if used[id] {
			return nil, ErrCardNotInHand
		}
		used[id] = true
		found := false
		for _, c := range p.Hand {
			if c.ID == id {
				picked = append(picked, c)
				found = true
				break
			}
		}
		if !found {
			return nil, ErrCardNotInHand
		}
	}

	kept := p.Hand[:0]
	for _, c := range p.Hand {
		if !used[c.ID] {
			kept = append(kept, c)
		}
	}
	p.Hand = kept
	return picked, nil
}

// allSelectionsInLocked reports whether every connected non-judge
// player has submitted. Disconnected players don't hold the round
// hostage; the phase timer still bounds the wait either way.
func (o *Orchestrator) allSelectionsInLocked(g *Instance) bool {
	if len(g.selections) == 0 {
		return false
	}
	for _, p := range g.players {
		if g.hasJudge && p.ID == g.judgeID {
			continue
		}
		if !p.Connected {
			continue
		}
		if _, ok := g.selections[p.ID]; !ok {
			return false
		}
	}
	return true
}

// SubmitJudgeDecision records the judge's pick and moves to scoring.
// Second place may be omitted.
func (o *Orchestrator) SubmitJudgeDecision(g *Instance, playerID, firstID, secondID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase.Terminal() {
		return ErrGameOver
	}
	if g.phase != PhaseJudging {
		return ErrWrongPhase
	}
	if !g.hasJudge || playerID != g.judgeID {
		return ErrNotJudge
	}
	if g.decision != nil {
		return ErrAlreadySubmitted
	}
	if _, ok := g.selections[firstID]; !ok {
		return ErrInvalidWinner
	}
	if secondID != "" {
		if secondID == firstID {
			return ErrInvalidWinner
		}
		if _, ok := g.selections[secondID]; !ok {
			return ErrInvalidWinner
		}
	}

	g.decision = &JudgeDecision{
		FirstPlaceID:  firstID,
		SecondPlaceID: secondID,
		DecidedAt:     time.Now(),
	}
	g.touchLocked()
	o.advanceLocked(g, PhaseJudgingDone)
	return nil
}

// SubmitAudienceVote records a non-scoring crowd favorite during
// judging. One vote per player per round; re-voting overwrites.
func (o *Orchestrator) SubmitAudienceVote(g *Instance, voterID, forID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase.Terminal() {
		return ErrGameOver
	}
	if g.phase != PhaseJudging {
		return ErrWrongPhase
	}
	if g.playerByID(voterID) == nil {
		return ErrPlayerNotFound
	}
	if voterID == forID {
		return ErrSelfVote
	}
	if _, ok := g.selections[forID]; !ok {
		return ErrInvalidWinner
	}

	g.votes[voterID] = forID
	g.touchLocked()
	return nil
}

// HandleDisconnect marks the player away and tells the room. Game state
// is untouched so a reconnect resumes cleanly.
func (o *Orchestrator) HandleDisconnect(g *Instance, playerID string) {
	g.mu.Lock()
	p := g.playerByID(playerID)
	if p == nil || !p.Connected {
		g.mu.Unlock()
		return
	}
	p.Connected = false
	g.touchLocked()
	g.mu.Unlock()

	o.broadcast.BroadcastEvent(g.Code, Event{
		Type:    EventPresence,
		Payload: PresencePayload{PlayerID: playerID},
	})
}

// HandleReconnect flips presence back and replays the player's private
// view: current phase and hand.
func (o *Orchestrator) HandleReconnect(g *Instance, playerID string) {
	g.mu.Lock()
	p := g.playerByID(playerID)
	if p == nil {
		g.mu.Unlock()
		return
	}
	p.Connected = true
	g.touchLocked()
	cards := make([]Card, len(p.Hand))
	copy(cards, p.Hand)
	phase := g.phase
	g.mu.Unlock()

	o.broadcast.BroadcastEvent(g.Code, Event{
		Type:    EventPresence,
		Payload: PresencePayload{PlayerID: playerID, Connected: true},
	})
	if phase != PhaseLobby && !phase.Terminal() {
		o.broadcast.SendToPlayer(g.Code, playerID, Event{Type: EventHand, Payload: HandPayload{Cards: cards}})
	}
}
