package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrDuplicateName  = errors.New("player name already taken in room")
)

// Room is the persisted room record. HostID always references a Player in
// the room whenever the room has at least one player.
type Room struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HostID     string    `json:"hostId"`
	MaxPlayers int       `json:"maxPlayers"`
	IsActive   bool      `json:"isActive"`
	GameType   string    `json:"gameType"`
	IsPrivate  bool      `json:"isPrivate"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Player is the persisted participant record, scoped to exactly one room.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	RoomID   string    `json:"roomId"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomUpdate is a partial room mutation; nil fields are left untouched.
type RoomUpdate struct {
	Name       *string
	HostID     *string
	MaxPlayers *int
	IsActive   *bool
}

// PlayerUpdate is a partial player mutation; nil fields are left untouched.
type PlayerUpdate struct {
	Name   *string
	IsHost *bool
}

// RoomStore is the persistence contract consumed by the coordination
// engine. Expected failures (not found, duplicate name) surface as sentinel
// errors so callers can branch without string matching.
//
// GetPlayersByRoom must return players in join order.
type RoomStore interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoomByID(ctx context.Context, id string) (Room, error)
	GetActiveRooms(ctx context.Context, limit int) ([]Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	UpdateRoom(ctx context.Context, id string, update RoomUpdate) (Room, error)
	DeleteRoom(ctx context.Context, id string) error

	CreatePlayer(ctx context.Context, player Player) (Player, error)
	GetPlayerByID(ctx context.Context, id string) (Player, error)
	GetPlayersByRoom(ctx context.Context, roomID string) ([]Player, error)
	UpdatePlayer(ctx context.Context, id string, update PlayerUpdate) (Player, error)
	RemovePlayer(ctx context.Context, id string) error

	Close() error
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// Helpers for building partial updates without local temporaries.
var (
	Activate   = RoomUpdate{IsActive: boolPtr(true)}
	Deactivate = RoomUpdate{IsActive: boolPtr(false)}
)

// SetHost returns a RoomUpdate that repoints the room's host reference.
func SetHost(hostID string) RoomUpdate {
	return RoomUpdate{HostID: strPtr(hostID)}
}

// PromoteHost returns a PlayerUpdate flipping the host flag.
func PromoteHost(isHost bool) PlayerUpdate {
	return PlayerUpdate{IsHost: boolPtr(isHost)}
}
