package game

import (
	"errors"
	"sort"
	"sync"
)

var ErrAdapterNotFound = errors.New("no game engine registered for game type")

// Adapter is the contract a game engine implements per game type. The
// coordination engine calls it on host actions and on any client message
// type it does not handle itself. Adapters must treat the State envelope as
// read-mostly: return the updated state rather than sharing mutable
// references with callers.
type Adapter interface {
	// InitializeGame builds the initial state for a room, including the
	// engine's opaque Data payload. Phase is expected to be waiting.
	InitializeGame(roomID string, players []PlayerState, settings Settings) (*State, error)

	// StartGame transitions a waiting state into play.
	StartGame(state *State) (*State, error)

	// EndGame finalizes a running game (scoring, phase results/finished).
	EndGame(state *State) (*State, error)

	// HandleClientMessage processes a delegated message and returns the
	// updated state plus any messages to broadcast to the room.
	HandleClientMessage(state *State, msg ClientMessage) (*State, []ServerMessage, error)

	// DefaultSettings returns the engine's baseline settings bag.
	DefaultSettings() Settings
}

// Registry maps game types to adapters. Registration happens at process
// start; lookups happen on every delegated message.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to a game type, replacing any prior binding.
func (r *Registry) Register(gameType string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[gameType] = adapter
}

// Get returns the adapter for a game type.
func (r *Registry) Get(gameType string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[gameType]
	if !ok {
		return nil, ErrAdapterNotFound
	}
	return adapter, nil
}

// Types lists the registered game types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
