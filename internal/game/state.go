package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const historyLimit = 50

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Score     int       `json:"score"`
	Connected bool      `json:"connected"`
	IsHost    bool      `json:"is_host"`
	JoinedAt  time.Time `json:"joined_at"`
	Hand      []Card    `json:"-"`
}

// Selection is one player's cards for the current sentence.
type Selection struct {
	PlayerID    string
	Cards       []Card
	SubmittedAt time.Time
}

// ImageResult is the outcome of one generation job. Either URL or
// Error is set.
type ImageResult struct {
	PlayerID   string `json:"player_id"`
	ArtifactID string `json:"artifact_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Prompt     string `json:"prompt"`
	Error      string `json:"error,omitempty"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

type JudgeDecision struct {
	FirstPlaceID  string    `json:"first_place"`
	SecondPlaceID string    `json:"second_place,omitempty"`
	AutoPicked    bool      `json:"auto_picked"`
	DecidedAt     time.Time `json:"decided_at"`
}

// Transition is one phase change, kept in a bounded history for the
// state export endpoint.
type Transition struct {
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
	At   time.Time `json:"at"`
}

// Instance is the full state of one session's game. ID, Code and
// CreatedAt are immutable; everything else is guarded by mu. Multi-step
// game logic lives on Orchestrator; the exported methods here cover the
// lobby operations the session registry needs.
type Instance struct {
	ID        string
	Code      string
	CreatedAt time.Time

	mu           sync.Mutex
	hostID       string
	lastActivity time.Time
	phase        Phase
	round        int
	maxRounds    int
	hasJudge     bool
	judgeIdx     int
	judgeID      string
	template     SentenceTemplate
	players      []*Player
	deck         *deck
	selections   map[string]*Selection
	images       map[string]*ImageResult
	decision     *JudgeDecision
	votes        map[string]string
	history      []Transition
	phaseTimer   *time.Timer
	timerGen     uint64
	rng          *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
}

func NewInstance(code string, maxRounds int) *Instance {
	ctx, cancel := context.WithCancel(context.Background())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Instance{
		ID:           uuid.NewString(),
		Code:         code,
		CreatedAt:    time.Now(),
		lastActivity: time.Now(),
		phase:        PhaseLobby,
		maxRounds:    maxRounds,
		deck:         newDeck(rng),
		selections:   make(map[string]*Selection),
		images:       make(map[string]*ImageResult),
		votes:        make(map[string]string),
		rng:          rng,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// AddPlayer admits a player to the lobby. The first player becomes the
// host. Names are de-duplicated within the session.
func (g *Instance) AddPlayer(name, avatar string, maxPlayers int) (Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseLobby {
		return Player{}, ErrGameInProgress
	}
	if len(g.players) >= maxPlayers {
		return Player{}, ErrSessionFull
	}

	p := &Player{
		ID:        uuid.NewString(),
		Name:      g.dedupeName(name),
		Avatar:    avatar,
		Connected: true,
		JoinedAt:  time.Now(),
	}
	if len(g.players) == 0 {
		p.IsHost = true
		g.hostID = p.ID
	}
	g.players = append(g.players, p)
	g.touchLocked()
	return *p, nil
}

func (g *Instance) dedupeName(name string) string {
	taken := func(n string) bool {
		for _, p := range g.players {
			if p.Name == n {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s %d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Leave removes a player. In the lobby the player is dropped and the
// host role is handed to the longest-joined remaining player; once the
// game has started the player is only marked disconnected so scores,
// hands and judge rotation stay intact.
func (g *Instance) Leave(playerID string) (Player, []Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerByID(playerID)
	if p == nil {
		return Player{}, nil, ErrPlayerNotFound
	}
	left := *p
	g.touchLocked()

	if g.phase != PhaseLobby {
		p.Connected = false
		return left, g.rosterLocked(), nil
	}

	for i, q := range g.players {
		if q.ID == playerID {
			g.players = append(g.players[:i], g.players[i+1:]...)
			break
		}
	}
	if g.hostID == playerID && len(g.players) > 0 {
		g.players[0].IsHost = true
		g.hostID = g.players[0].ID
	}
	return left, g.rosterLocked(), nil
}

func (g *Instance) playerByID(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Instance) rosterLocked() []Player {
	out := make([]Player, len(g.players))
	for i, p := range g.players {
		out[i] = *p
		out[i].Hand = nil
	}
	return out
}

func (g *Instance) touchLocked() {
	g.lastActivity = time.Now()
}

func (g *Instance) recordTransition(from, to Phase) {
	g.history = append(g.history, Transition{From: from, To: to, At: time.Now()})
	if len(g.history) > historyLimit {
		g.history = g.history[len(g.history)-historyLimit:]
	}
}

func (g *Instance) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Instance) HostID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hostID
}

func (g *Instance) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

// Players returns a copy of the roster without hands.
func (g *Instance) Players() []Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rosterLocked()
}

func (g *Instance) PlayerByID(id string) (Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.playerByID(id); p != nil {
		cp := *p
		cp.Hand = nil
		return cp, true
	}
	return Player{}, false
}

// Hand returns a copy of one player's current hand.
func (g *Instance) Hand(playerID string) ([]Card, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.playerByID(playerID)
	if p == nil {
		return nil, false
	}
	out := make([]Card, len(p.Hand))
	copy(out, p.Hand)
	return out, true
}

// Close stops the phase timer and cancels all async work for this
// instance. Safe to call more than once.
func (g *Instance) Close() {
	g.mu.Lock()
	if g.phaseTimer != nil {
		g.phaseTimer.Stop()
		g.phaseTimer = nil
	}
	g.timerGen++
	g.mu.Unlock()
	g.cancel()
}

// Snapshot is a deep copy of the observable instance state.
type Snapshot struct {
	ID         string            `json:"id"`
	Code       string            `json:"code"`
	Phase      Phase             `json:"phase"`
	Round      int               `json:"round"`
	MaxRounds  int               `json:"max_rounds"`
	HasJudge   bool              `json:"has_judge"`
	JudgeID    string            `json:"judge_id,omitempty"`
	HostID     string            `json:"host_id"`
	Template   *SentenceTemplate `json:"template,omitempty"`
	Players    []Player          `json:"players"`
	Submitted  []string          `json:"submitted,omitempty"`
	Images     []ImageResult     `json:"images,omitempty"`
	Decision   *JudgeDecision    `json:"decision,omitempty"`
	History    []Transition      `json:"history"`
	CreatedAt  time.Time         `json:"created_at"`
	LastActive time.Time         `json:"last_active"`
}

func (g *Instance) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		ID:         g.ID,
		Code:       g.Code,
		Phase:      g.phase,
		Round:      g.round,
		MaxRounds:  g.maxRounds,
		HasJudge:   g.hasJudge,
		JudgeID:    g.judgeID,
		HostID:     g.hostID,
		Players:    g.rosterLocked(),
		History:    append([]Transition(nil), g.history...),
		CreatedAt:  g.CreatedAt,
		LastActive: g.lastActivity,
	}
	if g.round > 0 && !g.phase.Terminal() {
		tpl := g.template
		s.Template = &tpl
	}
	for id := range g.selections {
		s.Submitted = append(s.Submitted, id)
	}
	for _, img := range g.images {
		s.Images = append(s.Images, *img)
	}
	if g.decision != nil {
		d := *g.decision
		s.Decision = &d
	}
	return s
}
