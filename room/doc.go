// Package room implements the room coordinator: validated create, join,
// leave, host transfer, lookup, and cleanup operations against the room
// store.
//
// The coordinator is the only component that mutates Room and Player
// records. It enforces capacity, name-length, and name-uniqueness rules,
// and it re-establishes the single-host invariant synchronously whenever a
// host's record is removed.
//
// Joinability is a cross-layer question: a persisted room can look open
// while its in-process game is mid-round. The coordinator therefore takes a
// PhaseSource so summaries and CanJoinRoom can consult the live game phase
// without importing the transport layer.
package room
