// Package game defines the ephemeral game state envelope and the contract
// between the coordination engine and pluggable game engines.
//
// The game package implements:
//   - The State envelope (phase, roster, scores, chat, settings)
//   - The inbound/outbound message envelopes shared with the transport
//   - The Adapter interface implemented by per-game-type engines
//   - A Registry mapping game types to adapters
//
// State Ownership:
//
// State lives only in process memory while a room is active. The fixed
// envelope (phase, players, scores, settings) is owned by the coordination
// engine; the Data field is an opaque payload owned entirely by the adapter
// that produced it. The engine never inspects Data.
//
// Message Delegation:
//
// Message types the coordination engine does not recognize are forwarded to
// the adapter registered for the room's game type together with the current
// State. The adapter returns the updated State plus zero or more server
// messages to broadcast.
//
// Usage:
//
//	registry := game.NewRegistry()
//	registry.Register("wordduel", wordduel.New())
//
//	adapter, err := registry.Get("wordduel")
//	if err != nil {
//		log.Fatal(err)
//	}
//	state, err := adapter.InitializeGame(roomID, roster, settings)
package game
