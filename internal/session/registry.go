package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"promptparty/internal/game"
	"promptparty/internal/logger"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrCapacityExhausted = errors.New("no free session codes, try again later")
)

// Options tunes the registry. Zero values fall back to defaults.
type Options struct {
	MaxPlayers    int
	MaxRounds     int // default when the host doesn't pick
	SweepInterval time.Duration
	IdleTimeout   time.Duration
}

// Registry owns every live session in the process, keyed by join code.
// A code maps to at most one instance; eviction frees it for reuse.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*game.Instance
	opts      Options
	broadcast game.Broadcaster
}

func NewRegistry(opts Options, b game.Broadcaster) *Registry {
	if b == nil {
		b = game.NopBroadcaster{}
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 8
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 5
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Hour
	}
	return &Registry{
		sessions:  make(map[string]*game.Instance),
		opts:      opts,
		broadcast: b,
	}
}

// Create allocates a fresh code, builds the instance and admits the
// host as its first player.
func (r *Registry) Create(hostName, avatar string, maxRounds int) (*game.Instance, game.Player, error) {
	if maxRounds <= 0 {
		maxRounds = r.opts.MaxRounds
	}

	r.mu.Lock()
	var code string
	for i := 0; ; i++ {
		if i == maxCodeAttempts {
			r.mu.Unlock()
			return nil, game.Player{}, ErrCapacityExhausted
		}
		c := randomCode()
		if _, taken := r.sessions[c]; !taken {
			code = c
			break
		}
	}
	inst := game.NewInstance(code, maxRounds)
	r.sessions[code] = inst
	r.mu.Unlock()

	host, err := inst.AddPlayer(hostName, avatar, r.opts.MaxPlayers)
	if err != nil {
		r.Remove(code)
		return nil, game.Player{}, err
	}
	sessionsCreatedTotal.Inc()
	logger.Info("session created", "code", code, "host", host.Name, "rounds", maxRounds)
	return inst, host, nil
}

func (r *Registry) Get(code string) (*game.Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return inst, nil
}

// Join admits a player to a lobby and announces the new roster.
func (r *Registry) Join(code, name, avatar string) (*game.Instance, game.Player, error) {
	inst, err := r.Get(code)
	if err != nil {
		return nil, game.Player{}, err
	}
	p, err := inst.AddPlayer(name, avatar, r.opts.MaxPlayers)
	if err != nil {
		return nil, game.Player{}, err
	}
	r.broadcast.BroadcastEvent(code, game.Event{
		Type:    game.EventPlayerJoined,
		Payload: game.RosterPayload{Players: inst.Players()},
	})
	return inst, p, nil
}

// Leave takes a player out of the session. An emptied lobby is removed
// right away instead of waiting for the sweeper.
func (r *Registry) Leave(code, playerID string) error {
	inst, err := r.Get(code)
	if err != nil {
		return err
	}
	left, roster, err := inst.Leave(playerID)
	if err != nil {
		return err
	}
	r.broadcast.BroadcastEvent(code, game.Event{
		Type:    game.EventPlayerLeft,
		Payload: game.PlayerLeftPayload{PlayerID: left.ID, Players: roster},
	})
	if len(roster) == 0 && inst.Phase() == game.PhaseLobby {
		r.Remove(code)
	}
	return nil
}

// Remove closes the instance, tears down its room and frees the code.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	inst, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	inst.Close()
	r.broadcast.CloseRoom(code)
}

// Count is the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StartSweeper evicts idle and finished sessions until ctx ends.
func (r *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.opts.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *Registry) sweep() {
	type victim struct {
		code   string
		reason string
	}

	now := time.Now()
	r.mu.RLock()
	var victims []victim
	for code, inst := range r.sessions {
		idle := now.Sub(inst.LastActivity())
		switch {
		case inst.Phase().Terminal() && idle > r.opts.SweepInterval:
			victims = append(victims, victim{code, "finished"})
		case idle > r.opts.IdleTimeout:
			victims = append(victims, victim{code, "idle"})
		}
	}
	r.mu.RUnlock()

	for _, v := range victims {
		r.broadcast.BroadcastEvent(v.code, game.Event{
			Type:    game.EventSessionClosed,
			Payload: map[string]string{"reason": v.reason},
		})
		r.Remove(v.code)
		sessionsEvictedTotal.WithLabelValues(v.reason).Inc()
		logger.Info("session evicted", "code", v.code, "reason", v.reason)
	}
}
