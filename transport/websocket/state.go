package websocket

import (
	"sort"
	"sync"

	"partyhub/game"
)

// StateTable is the process-local map from room ID to ephemeral game state,
// plus the per-room pending settings applied at the next game start. It is
// authoritative only while this process is alive.
//
// Unlike the registry, the state table carries its own lock: the REST
// surface and the room coordinator read phases outside hub handler turns.
// Hub handler turns mutate the stored *game.State in place under the hub
// mutex, so those outside readers must never dereference it; Phase answers
// from a snapshot recorded at Set time instead.
type StateTable struct {
	mu      sync.RWMutex
	states  map[string]*game.State
	phases  map[string]game.Phase
	pending map[string]game.Settings
}

func NewStateTable() *StateTable {
	return &StateTable{
		states:  make(map[string]*game.State),
		phases:  make(map[string]game.Phase),
		pending: make(map[string]game.Settings),
	}
}

// Get returns the state for a room.
func (t *StateTable) Get(roomID string) (*game.State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.states[roomID]
	return state, ok
}

// Set stores a room's state, replacing any prior entry, and publishes its
// phase. An in-place phase change is not visible to Phase until the state
// is Set again.
func (t *StateTable) Set(state *game.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[state.RoomID] = state
	t.phases[state.RoomID] = state.Phase
}

// Delete discards a room's state, phase, and pending settings.
func (t *StateTable) Delete(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, roomID)
	delete(t.phases, roomID)
	delete(t.pending, roomID)
}

// Phase implements room.PhaseSource. It reads the snapshot published by the
// last Set, never the live state.
func (t *StateTable) Phase(roomID string) (game.Phase, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	phase, ok := t.phases[roomID]
	return phase, ok
}

// RoomIDs lists the rooms with in-process state, sorted.
func (t *StateTable) RoomIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.states))
	for roomID := range t.states {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

// Pending returns the settings accumulated for a room before game start.
func (t *StateTable) Pending(roomID string) game.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pending[roomID].Clone()
}

// MergePending folds settings into a room's pending defaults.
func (t *StateTable) MergePending(roomID string, settings game.Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.pending[roomID]
	if !ok {
		current = make(game.Settings)
		t.pending[roomID] = current
	}
	current.Merge(settings)
}
