package game

import "time"

// Event is a message pushed to session clients over the broadcast
// boundary. Payloads are JSON-ready structs or gin.H-style maps.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventPhaseChanged  = "phase_changed"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventPresence      = "presence"
	EventHand          = "hand"
	EventGallery       = "gallery"
	EventRoundResults  = "round_results"
	EventFinalResults  = "final_results"
	EventSessionClosed = "session_closed"
)

// Broadcaster delivers events to the clients of one session. The ws hub
// implements it; game logic never touches sockets directly.
type Broadcaster interface {
	BroadcastEvent(code string, ev Event)
	SendToPlayer(code, playerID string, ev Event)
	CloseRoom(code string)
}

// NopBroadcaster drops everything. Used when a session has no live
// room yet and in tests that don't care about fan-out.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastEvent(string, Event)       {}
func (NopBroadcaster) SendToPlayer(string, string, Event) {}
func (NopBroadcaster) CloseRoom(string)                   {}

type PhaseChangedPayload struct {
	Phase     Phase             `json:"phase"`
	Round     int               `json:"round"`
	MaxRounds int               `json:"max_rounds"`
	JudgeID   string            `json:"judge_id,omitempty"`
	Template  *SentenceTemplate `json:"template,omitempty"`
	Deadline  *time.Time        `json:"deadline,omitempty"`
}

type RosterPayload struct {
	Players []Player `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerID string   `json:"player_id"`
	Players  []Player `json:"players"`
}

type PresencePayload struct {
	PlayerID  string `json:"player_id"`
	Connected bool   `json:"connected"`
}

type HandPayload struct {
	Cards []Card `json:"cards"`
}

type GalleryEntry struct {
	PlayerID string `json:"player_id"`
	Sentence string `json:"sentence"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type GalleryPayload struct {
	Entries []GalleryEntry `json:"entries"`
}

type RoundResultsPayload struct {
	Round    int            `json:"round"`
	Decision *JudgeDecision `json:"decision,omitempty"`
	Gallery  []GalleryEntry `json:"gallery"`
	Votes    map[string]int `json:"votes,omitempty"`
	Players  []Player       `json:"players"`
}

type FinalResultsPayload struct {
	WinnerID string   `json:"winner_id,omitempty"`
	Players  []Player `json:"players"`
	Rounds   int      `json:"rounds"`
}
