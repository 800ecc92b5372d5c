// Package store provides durable room and player persistence behind the
// RoomStore interface.
//
// Three implementations are included:
//   - Memory: mutex-guarded maps, the default backend and the one tests use
//   - Postgres: database/sql over lib/pq with schema bootstrap
//   - Badger: embedded key-value storage with JSON-encoded values
//
// Durability is best effort across the board: the coordination engine treats
// the store as the source of truth for rosters but tolerates a crash losing
// in-flight writes. Player listings are always returned in join order, which
// the host-migration rules depend on.
package store
