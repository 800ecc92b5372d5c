package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process RoomStore backed by maps. It is the default
// backend and the implementation the test suites run against.
type Memory struct {
	mu          sync.RWMutex
	rooms       map[string]Room
	players     map[string]Player
	roomPlayers map[string][]string // roomID -> player IDs in join order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms:       make(map[string]Room),
		players:     make(map[string]Player),
		roomPlayers: make(map[string][]string),
	}
}

func (m *Memory) CreateRoom(ctx context.Context, room Room) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	m.rooms[room.ID] = room
	return room, nil
}

func (m *Memory) GetRoomByID(ctx context.Context, id string) (Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	return room, nil
}

func (m *Memory) GetActiveRooms(ctx context.Context, limit int) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if room.IsActive {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListRooms(ctx context.Context) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateRoom(ctx context.Context, id string, update RoomUpdate) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if update.Name != nil {
		room.Name = *update.Name
	}
	if update.HostID != nil {
		room.HostID = *update.HostID
	}
	if update.MaxPlayers != nil {
		room.MaxPlayers = *update.MaxPlayers
	}
	if update.IsActive != nil {
		room.IsActive = *update.IsActive
	}
	room.UpdatedAt = time.Now().UTC()
	m.rooms[id] = room
	return room, nil
}

func (m *Memory) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[id]; !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, id)
	for _, pid := range m.roomPlayers[id] {
		delete(m.players, pid)
	}
	delete(m.roomPlayers, id)
	return nil
}

// CreatePlayer appends a player to the room roster. Duplicate names within
// a room are rejected case-insensitively here as well, so the uniqueness
// check is a conditional insert rather than read-then-write only.
func (m *Memory) CreatePlayer(ctx context.Context, player Player) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pid := range m.roomPlayers[player.RoomID] {
		if strings.EqualFold(m.players[pid].Name, player.Name) {
			return Player{}, ErrDuplicateName
		}
	}
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now().UTC()
	}
	m.players[player.ID] = player
	m.roomPlayers[player.RoomID] = append(m.roomPlayers[player.RoomID], player.ID)
	return player, nil
}

func (m *Memory) GetPlayerByID(ctx context.Context, id string) (Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	player, ok := m.players[id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return player, nil
}

func (m *Memory) GetPlayersByRoom(ctx context.Context, roomID string) ([]Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.roomPlayers[roomID]
	out := make([]Player, 0, len(ids))
	for _, pid := range ids {
		if player, ok := m.players[pid]; ok {
			out = append(out, player)
		}
	}
	return out, nil
}

func (m *Memory) UpdatePlayer(ctx context.Context, id string, update PlayerUpdate) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, ok := m.players[id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	if update.Name != nil {
		player.Name = *update.Name
	}
	if update.IsHost != nil {
		player.IsHost = *update.IsHost
	}
	m.players[id] = player
	return player, nil
}

func (m *Memory) RemovePlayer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	delete(m.players, id)

	ids := m.roomPlayers[player.RoomID]
	for i, pid := range ids {
		if pid == id {
			m.roomPlayers[player.RoomID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
