// Package wordduel is a small built-in game engine: each round every player
// submits one word, longer words score more, and the highest total after the
// configured number of rounds wins. It exists to exercise the adapter
// contract end to end; real games plug into the same interface.
package wordduel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"partyhub/game"
)

const (
	msgSubmitWord = "submit-word"
	msgPass       = "pass"

	defaultRounds        = 3
	defaultMinWordLength = 3
)

var (
	ErrNotPlaying   = errors.New("wordduel: game is not in play")
	ErrNotInRound   = errors.New("wordduel: player not part of this round")
	ErrWordTooShort = errors.New("wordduel: word is too short")
	ErrAlreadyActed = errors.New("wordduel: player already acted this round")
)

// roundData is the engine-owned payload stored in State.Data.
type roundData struct {
	Rounds        int               `json:"rounds"`
	MinWordLength int               `json:"minWordLength"`
	Submitted     map[string]bool   `json:"submitted"`
	Words         map[string]string `json:"words"`
}

// Engine implements game.Adapter for the wordduel game type.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) DefaultSettings() game.Settings {
	return game.Settings{
		"rounds":        defaultRounds,
		"minWordLength": defaultMinWordLength,
	}
}

func (e *Engine) InitializeGame(roomID string, players []game.PlayerState, settings game.Settings) (*game.State, error) {
	if len(players) == 0 {
		return nil, errors.New("wordduel: cannot start with no players")
	}

	scores := make(map[string]int, len(players))
	for _, p := range players {
		scores[p.ID] = 0
	}

	return &game.State{
		RoomID:   roomID,
		GameType: "wordduel",
		Phase:    game.PhaseWaiting,
		Round:    0,
		Players:  players,
		Scores:   scores,
		Settings: settings,
		Data: &roundData{
			Rounds:        settingInt(settings, "rounds", defaultRounds),
			MinWordLength: settingInt(settings, "minWordLength", defaultMinWordLength),
			Submitted:     make(map[string]bool),
			Words:         make(map[string]string),
		},
	}, nil
}

func (e *Engine) StartGame(state *game.State) (*game.State, error) {
	state.Phase = game.PhasePlaying
	state.Round = 1
	return state, nil
}

func (e *Engine) EndGame(state *game.State) (*game.State, error) {
	state.Phase = game.PhaseResults
	return state, nil
}

func (e *Engine) HandleClientMessage(state *game.State, msg game.ClientMessage) (*game.State, []game.ServerMessage, error) {
	switch msg.Type {
	case msgSubmitWord:
		return e.handleSubmit(state, msg)
	case msgPass:
		return e.handlePass(state, msg)
	default:
		return state, nil, fmt.Errorf("wordduel: unknown message type %q", msg.Type)
	}
}

func (e *Engine) handleSubmit(state *game.State, msg game.ClientMessage) (*game.State, []game.ServerMessage, error) {
	data, err := e.round(state, msg.PlayerID)
	if err != nil {
		return state, nil, err
	}

	var payload struct {
		Word string `json:"word"`
	}
	if len(msg.Data) > 0 {
		json.Unmarshal(msg.Data, &payload)
	}
	word := strings.TrimFunc(payload.Word, unicode.IsSpace)
	if len(word) < data.MinWordLength {
		return state, nil, ErrWordTooShort
	}

	data.Submitted[msg.PlayerID] = true
	data.Words[msg.PlayerID] = word
	state.Scores[msg.PlayerID] += len(word)

	return e.advance(state, data, game.ServerMessage{
		Type: "word-accepted",
		Data: map[string]any{"playerId": msg.PlayerID, "length": len(word), "round": state.Round},
	})
}

func (e *Engine) handlePass(state *game.State, msg game.ClientMessage) (*game.State, []game.ServerMessage, error) {
	data, err := e.round(state, msg.PlayerID)
	if err != nil {
		return state, nil, err
	}
	data.Submitted[msg.PlayerID] = true

	return e.advance(state, data, game.ServerMessage{
		Type: "player-passed",
		Data: map[string]any{"playerId": msg.PlayerID, "round": state.Round},
	})
}

// round validates the message against the current round and returns the
// payload.
func (e *Engine) round(state *game.State, playerID string) (*roundData, error) {
	if state.Phase != game.PhasePlaying {
		return nil, ErrNotPlaying
	}
	data, ok := state.Data.(*roundData)
	if !ok {
		return nil, errors.New("wordduel: state payload missing")
	}
	if state.Player(playerID) == nil {
		return nil, ErrNotInRound
	}
	if data.Submitted[playerID] {
		return nil, ErrAlreadyActed
	}
	return data, nil
}

// advance moves to the next round once every player has acted, ending the
// game after the final round.
func (e *Engine) advance(state *game.State, data *roundData, event game.ServerMessage) (*game.State, []game.ServerMessage, error) {
	out := []game.ServerMessage{event}

	if len(data.Submitted) < len(state.Players) {
		return state, out, nil
	}

	words := data.Words
	data.Submitted = make(map[string]bool)
	data.Words = make(map[string]string)

	if state.Round >= data.Rounds {
		state.Phase = game.PhaseResults
		out = append(out, game.ServerMessage{
			Type: "game-state",
			Data: state,
		})
		return state, out, nil
	}

	state.Round++
	out = append(out, game.ServerMessage{
		Type: "round-finished",
		Data: map[string]any{"round": state.Round - 1, "words": words, "scores": state.Scores, "nextRound": state.Round},
	})
	return state, out, nil
}

func settingInt(settings game.Settings, key string, fallback int) int {
	switch v := settings[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
