// Package websocket is the realtime transport and coordination engine for
// partyhub rooms.
//
// The websocket package implements:
//   - Connection lifecycle (upgrade, read loop, buffered write pump)
//   - The connection registry mapping players to sockets and rooms
//   - The message router for the built-in protocol plus game delegation
//   - Room broadcast fan-out tolerant of slow or dead sockets
//   - Lobby subscriptions for the global room list
//   - The reconciliation monitor that reaps abandoned rooms
//
// Concurrency:
//
// Every inbound message is handled as one turn under the Hub's mutex, so
// the registry and state table need no locking of their own and no two
// handler turns interleave. Messages from one socket are processed in
// receipt order by its read loop; there is no ordering guarantee across
// sockets. Outbound delivery never blocks a handler turn: frames are
// enqueued on per-connection buffered channels drained by write pumps.
//
// Reconnection:
//
// Identity wins over socket. A new socket presenting a known player ID, or
// a known name for the room, is re-bound to the existing player rather than
// joined as a new one. The superseded socket is not force-closed; its own
// close handler finds it is no longer the bound connection and skips the
// leave path.
//
// Usage:
//
//	states := websocket.NewStateTable()
//	hub := websocket.NewHub(coordinator, games, states, logger)
//	mux.HandleFunc("/ws", hub.ServeWS)
//
//	monitor := websocket.NewMonitor(hub, 30*time.Second, 0, logger)
//	go monitor.Run()
//	defer monitor.Stop()
package websocket
