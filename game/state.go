package game

import "time"

// Phase describes where a room's game currently is in its lifecycle.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseResults  Phase = "results"
	PhaseFinished Phase = "finished"
)

// Settings is a free-form settings bag. The coordination engine merges
// host-supplied updates into it but assigns no meaning to individual keys;
// interpretation belongs to the game adapter.
type Settings map[string]any

// Merge copies every key from other into s, overwriting existing keys.
func (s Settings) Merge(other Settings) {
	for k, v := range other {
		s[k] = v
	}
}

// Clone returns a shallow copy of s. A nil receiver yields an empty bag.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// PlayerState is the per-player slice of the state envelope. Order within
// State.Players is join order and is what host migration relies on.
type PlayerState struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IsHost       bool      `json:"isHost"`
	IsConnected  bool      `json:"isConnected"`
	LastActivity time.Time `json:"lastActivity"`
}

// ChatMessage is a chat line with the server-assigned timestamp.
type ChatMessage struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// State is the ephemeral, process-local game state for one room. It is lost
// on process restart; only the room/player roster survives in the store.
type State struct {
	RoomID   string         `json:"roomId"`
	GameType string         `json:"gameType"`
	Phase    Phase          `json:"phase"`
	Round    int            `json:"round"`
	Players  []PlayerState  `json:"players"`
	Scores   map[string]int `json:"scores"`
	Chat     []ChatMessage  `json:"chat"`
	Settings Settings       `json:"settings"`

	// Data is the engine-owned payload. Opaque to the coordination engine.
	Data any `json:"gameData,omitempty"`
}

// Player returns a pointer into Players for the given ID, or nil.
func (s *State) Player(playerID string) *PlayerState {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}

// SetConnected flips a roster member's connectivity flag and stamps their
// activity time. Unknown IDs are ignored.
func (s *State) SetConnected(playerID string, connected bool) {
	if p := s.Player(playerID); p != nil {
		p.IsConnected = connected
		p.LastActivity = time.Now()
	}
}

// RemovePlayer drops a member from the roster and their score entry.
func (s *State) RemovePlayer(playerID string) {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}
	delete(s.Scores, playerID)
}

// SetHost marks exactly one roster member as host.
func (s *State) SetHost(playerID string) {
	for i := range s.Players {
		s.Players[i].IsHost = s.Players[i].ID == playerID
	}
}
