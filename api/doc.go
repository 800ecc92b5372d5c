// Package api exposes the HTTP surface: a small REST API for room
// management, the websocket upgrade endpoint, and an admin cleanup hook.
//
// Routes:
//
//	POST   /api/rooms              create a room (returns roomId/playerId)
//	GET    /api/rooms              list active, joinable rooms
//	GET    /api/rooms/{id}         composite room summary
//	POST   /api/admin/cleanup      run a reconciliation sweep on demand
//	GET    /ws                     websocket upgrade (?room= joins a room
//	                               path, absent means lobby subscription)
//
// The REST handlers return JSON bodies and map coordinator sentinel errors
// onto HTTP status codes; everything stateful is delegated to the room
// coordinator and the websocket hub.
package api
