package wordduel

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partyhub/game"
)

func newRunningGame(t *testing.T, settings game.Settings) *game.State {
	t.Helper()
	e := New()
	state, err := e.InitializeGame("r1", []game.PlayerState{
		{ID: "p1", Name: "Alice", IsHost: true},
		{ID: "p2", Name: "Bob"},
	}, settings)
	require.NoError(t, err)
	state, err = e.StartGame(state)
	require.NoError(t, err)
	return state
}

func submit(playerID, word string) game.ClientMessage {
	data, _ := json.Marshal(map[string]string{"word": word})
	return game.ClientMessage{Type: msgSubmitWord, RoomID: "r1", PlayerID: playerID, Data: data}
}

func TestInitializeGame(t *testing.T) {
	e := New()

	state, err := e.InitializeGame("r1", []game.PlayerState{{ID: "p1", Name: "Alice"}}, e.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, game.PhaseWaiting, state.Phase)
	assert.Equal(t, 0, state.Scores["p1"])

	data, ok := state.Data.(*roundData)
	require.True(t, ok)
	assert.Equal(t, defaultRounds, data.Rounds)
	assert.Equal(t, defaultMinWordLength, data.MinWordLength)

	_, err = e.InitializeGame("r1", nil, nil)
	assert.Error(t, err)
}

func TestSettingsFromWire(t *testing.T) {
	// Settings merged from JSON arrive as float64.
	e := New()
	state, err := e.InitializeGame("r1", []game.PlayerState{{ID: "p1"}}, game.Settings{
		"rounds":        float64(5),
		"minWordLength": float64(4),
	})
	require.NoError(t, err)

	data := state.Data.(*roundData)
	assert.Equal(t, 5, data.Rounds)
	assert.Equal(t, 4, data.MinWordLength)
}

func TestSubmitWordScoring(t *testing.T) {
	e := New()
	state := newRunningGame(t, e.DefaultSettings())

	state, out, err := e.HandleClientMessage(state, submit("p1", "banana"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "word-accepted", out[0].Type)
	assert.Equal(t, 6, state.Scores["p1"])
	assert.Equal(t, 1, state.Round, "round holds until everyone acts")

	state, out, err = e.HandleClientMessage(state, submit("p2", "kiwi"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "round-finished", out[1].Type)
	assert.Equal(t, 2, state.Round)
	assert.Equal(t, 4, state.Scores["p2"])
}

func TestSubmitWordRejections(t *testing.T) {
	e := New()
	state := newRunningGame(t, e.DefaultSettings())

	t.Run("too short", func(t *testing.T) {
		_, _, err := e.HandleClientMessage(state, submit("p1", "ab"))
		assert.ErrorIs(t, err, ErrWordTooShort)
	})

	t.Run("whitespace does not count", func(t *testing.T) {
		_, _, err := e.HandleClientMessage(state, submit("p1", "  ab  "))
		assert.ErrorIs(t, err, ErrWordTooShort)
	})

	t.Run("unknown player", func(t *testing.T) {
		_, _, err := e.HandleClientMessage(state, submit("stranger", "banana"))
		assert.ErrorIs(t, err, ErrNotInRound)
	})

	t.Run("double act", func(t *testing.T) {
		updated, _, err := e.HandleClientMessage(state, submit("p1", "banana"))
		require.NoError(t, err)
		_, _, err = e.HandleClientMessage(updated, submit("p1", "orange"))
		assert.ErrorIs(t, err, ErrAlreadyActed)
	})

	t.Run("not playing", func(t *testing.T) {
		waiting, err := e.InitializeGame("r1", []game.PlayerState{{ID: "p1"}}, nil)
		require.NoError(t, err)
		_, _, err = e.HandleClientMessage(waiting, submit("p1", "banana"))
		assert.ErrorIs(t, err, ErrNotPlaying)
	})

	t.Run("unknown message type", func(t *testing.T) {
		_, _, err := e.HandleClientMessage(state, game.ClientMessage{Type: "dance"})
		assert.Error(t, err)
	})
}

func TestPass(t *testing.T) {
	e := New()
	state := newRunningGame(t, e.DefaultSettings())

	state, out, err := e.HandleClientMessage(state, game.ClientMessage{Type: msgPass, PlayerID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "player-passed", out[0].Type)
	assert.Equal(t, 0, state.Scores["p1"])
}

func TestGameEndsAfterFinalRound(t *testing.T) {
	e := New()
	state := newRunningGame(t, game.Settings{"rounds": 2, "minWordLength": 3})

	var err error
	for round := 1; round <= 2; round++ {
		for _, pid := range []string{"p1", "p2"} {
			state, _, err = e.HandleClientMessage(state, submit(pid, fmt.Sprintf("word%d", round)))
			require.NoError(t, err)
		}
	}

	assert.Equal(t, game.PhaseResults, state.Phase)
	assert.Equal(t, 10, state.Scores["p1"])
	assert.Equal(t, 10, state.Scores["p2"])

	_, _, err = e.HandleClientMessage(state, submit("p1", "extra"))
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestEndGame(t *testing.T) {
	e := New()
	state := newRunningGame(t, e.DefaultSettings())

	state, err := e.EndGame(state)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseResults, state.Phase)
}
