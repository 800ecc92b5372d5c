package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/samber/lo"

	"partyhub/game"
	"partyhub/store"
)

var (
	ErrRoomNotFound   = errors.New("room not found or inactive")
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("player name already taken")
	ErrNotInRoom      = errors.New("player is not a member of the room")
	ErrGameInProgress = errors.New("game in progress")
	ErrNotHost        = errors.New("player is not the room host")
	ErrValidation     = errors.New("invalid input")
)

const DefaultMaxPlayers = 8

// Joinability reason codes reported by CanJoinRoom and RoomSummary.
const (
	ReasonNotFound       = "room-not-found"
	ReasonInactive       = "room-inactive"
	ReasonFull           = "room-full"
	ReasonGameInProgress = "game-in-progress"
)

// PhaseSource answers whether a room currently has in-process game state and
// which phase it is in. Implemented by the transport layer's state table.
type PhaseSource interface {
	Phase(roomID string) (game.Phase, bool)
}

// Coordinator validates and executes room lifecycle operations against the
// store. All methods return sentinel errors for expected failures so the
// message router can map them to outbound error frames.
type Coordinator struct {
	store    store.RoomStore
	phases   PhaseSource
	validate *validator.Validate
	log      log15.Logger
}

// NewCoordinator wires a coordinator to a store. phases may be nil, in which
// case joinability ignores the in-process game phase.
func NewCoordinator(st store.RoomStore, phases PhaseSource, logger log15.Logger) *Coordinator {
	if logger == nil {
		logger = log15.New("module", "room")
	}
	return &Coordinator{
		store:    st,
		phases:   phases,
		validate: validator.New(),
		log:      logger,
	}
}

// SetPhaseSource installs the phase source after construction. The transport
// layer owns the state table but is constructed after the coordinator.
func (c *Coordinator) SetPhaseSource(phases PhaseSource) {
	c.phases = phases
}

// CreateRoomParams carries the validated input for CreateRoom.
type CreateRoomParams struct {
	Name       string `validate:"required,min=1,max=50"`
	HostName   string `validate:"required,min=1,max=30"`
	GameType   string `validate:"required"`
	MaxPlayers int    `validate:"omitempty,min=2,max=16"`
	IsPrivate  bool
}

// CreateRoomResult identifies the created room and its host player.
type CreateRoomResult struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// CreateRoom persists a Room and its host Player. If the host write fails
// after the room row exists, the room is left behind for the reconciliation
// sweep rather than rolled back.
func (c *Coordinator) CreateRoom(ctx context.Context, params CreateRoomParams) (CreateRoomResult, error) {
	if err := c.validate.Struct(params); err != nil {
		return CreateRoomResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if params.MaxPlayers == 0 {
		params.MaxPlayers = DefaultMaxPlayers
	}

	hostID := uuid.NewString()
	room := store.Room{
		ID:         uuid.NewString(),
		Name:       params.Name,
		HostID:     hostID,
		MaxPlayers: params.MaxPlayers,
		IsActive:   true,
		GameType:   params.GameType,
		IsPrivate:  params.IsPrivate,
	}

	if _, err := c.store.CreateRoom(ctx, room); err != nil {
		return CreateRoomResult{}, fmt.Errorf("create room: %w", err)
	}

	host := store.Player{
		ID:       hostID,
		Name:     params.HostName,
		RoomID:   room.ID,
		IsHost:   true,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := c.store.CreatePlayer(ctx, host); err != nil {
		// Orphaned room row is collected by the next cleanup sweep.
		c.log.Warn("host player write failed, leaving room for sweep", "room", room.ID, "err", err)
		return CreateRoomResult{}, fmt.Errorf("create host player: %w", err)
	}

	c.log.Info("room created", "room", room.ID, "name", room.Name, "gameType", room.GameType, "host", hostID)
	return CreateRoomResult{RoomID: room.ID, PlayerID: hostID}, nil
}

// JoinRoom persists a new non-host player in an active room. The
// reconnection short-circuit lives in the message router, not here: by the
// time JoinRoom runs, the caller has already established the identity is new.
func (c *Coordinator) JoinRoom(ctx context.Context, roomID, playerName string) (store.Player, error) {
	if err := c.validate.Var(playerName, "required,min=1,max=30"); err != nil {
		return store.Player{}, fmt.Errorf("%w: player name must be 1-30 characters", ErrValidation)
	}

	room, err := c.store.GetRoomByID(ctx, roomID)
	if err != nil || !room.IsActive {
		return store.Player{}, ErrRoomNotFound
	}

	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return store.Player{}, fmt.Errorf("load roster: %w", err)
	}
	if len(players) >= room.MaxPlayers {
		return store.Player{}, ErrRoomFull
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, playerName) {
			return store.Player{}, ErrNameTaken
		}
	}

	player := store.Player{
		ID:       uuid.NewString(),
		Name:     playerName,
		RoomID:   roomID,
		IsHost:   false,
		JoinedAt: time.Now().UTC(),
	}
	created, err := c.store.CreatePlayer(ctx, player)
	if errors.Is(err, store.ErrDuplicateName) {
		return store.Player{}, ErrNameTaken
	}
	if err != nil {
		return store.Player{}, fmt.Errorf("create player: %w", err)
	}

	c.log.Info("player joined", "room", roomID, "player", created.ID, "name", created.Name)
	return created, nil
}

// FindMember locates an existing member of a room by player ID or, failing
// that, by case-insensitive name. Used by the router's reconnection path.
func (c *Coordinator) FindMember(ctx context.Context, roomID, playerID, playerName string) (store.Player, bool, error) {
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return store.Player{}, false, fmt.Errorf("load roster: %w", err)
	}
	if playerID != "" {
		for _, p := range players {
			if p.ID == playerID {
				return p, true, nil
			}
		}
	}
	if playerName != "" {
		for _, p := range players {
			if strings.EqualFold(p.Name, playerName) {
				return p, true, nil
			}
		}
	}
	return store.Player{}, false, nil
}

// LeaveResult reports the side effects of a departure.
type LeaveResult struct {
	WasHost     bool   `json:"wasHost"`
	NewHostID   string `json:"newHostId,omitempty"`
	RoomDeleted bool   `json:"roomDeleted"`
}

// LeaveRoom removes a player. A departing host with members remaining hands
// host privileges to the earliest-joined survivor; the last player leaving
// deactivates the room, whose row is collected later by the cleanup sweep.
func (c *Coordinator) LeaveRoom(ctx context.Context, roomID, playerID string) (LeaveResult, error) {
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return LeaveResult{}, fmt.Errorf("load roster: %w", err)
	}

	var leaving *store.Player
	for i := range players {
		if players[i].ID == playerID {
			leaving = &players[i]
			break
		}
	}
	if leaving == nil {
		return LeaveResult{}, ErrNotInRoom
	}

	if err := c.store.RemovePlayer(ctx, playerID); err != nil {
		return LeaveResult{}, fmt.Errorf("remove player: %w", err)
	}

	remaining := lo.Filter(players, func(p store.Player, _ int) bool { return p.ID != playerID })
	result := LeaveResult{WasHost: leaving.IsHost}

	if len(remaining) == 0 {
		if _, err := c.store.UpdateRoom(ctx, roomID, store.Deactivate); err != nil {
			return result, fmt.Errorf("deactivate room: %w", err)
		}
		result.RoomDeleted = true
		c.log.Info("room deactivated", "room", roomID)
		return result, nil
	}

	if leaving.IsHost {
		// Roster order is join order, so index zero is the longest-tenured.
		successor := remaining[0]
		if _, err := c.store.UpdatePlayer(ctx, successor.ID, store.PromoteHost(true)); err != nil {
			return result, fmt.Errorf("promote successor: %w", err)
		}
		if _, err := c.store.UpdateRoom(ctx, roomID, store.SetHost(successor.ID)); err != nil {
			return result, fmt.Errorf("update room host: %w", err)
		}
		result.NewHostID = successor.ID
		c.log.Info("host migrated", "room", roomID, "from", playerID, "to", successor.ID)
	}

	return result, nil
}

// TransferHost is the explicit handoff requested by the current host.
func (c *Coordinator) TransferHost(ctx context.Context, roomID, currentHostID, newHostID string) error {
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	var current, next *store.Player
	for i := range players {
		switch players[i].ID {
		case currentHostID:
			current = &players[i]
		case newHostID:
			next = &players[i]
		}
	}
	if current == nil || !current.IsHost {
		return ErrNotHost
	}
	if next == nil {
		return ErrNotInRoom
	}

	if _, err := c.store.UpdatePlayer(ctx, current.ID, store.PromoteHost(false)); err != nil {
		return fmt.Errorf("demote host: %w", err)
	}
	if _, err := c.store.UpdatePlayer(ctx, next.ID, store.PromoteHost(true)); err != nil {
		return fmt.Errorf("promote host: %w", err)
	}
	if _, err := c.store.UpdateRoom(ctx, roomID, store.SetHost(next.ID)); err != nil {
		return fmt.Errorf("update room host: %w", err)
	}

	c.log.Info("host transferred", "room", roomID, "from", currentHostID, "to", newHostID)
	return nil
}

// HostOf returns the current host player of a room.
func (c *Coordinator) HostOf(ctx context.Context, roomID string) (store.Player, error) {
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return store.Player{}, fmt.Errorf("load roster: %w", err)
	}
	for _, p := range players {
		if p.IsHost {
			return p, nil
		}
	}
	return store.Player{}, ErrNotInRoom
}

// CanJoinRoom combines the persisted room record with the live game phase.
// The empty reason string means the room is joinable.
func (c *Coordinator) CanJoinRoom(ctx context.Context, roomID string) (bool, string) {
	room, err := c.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, ReasonNotFound
	}
	if !room.IsActive {
		return false, ReasonInactive
	}
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err == nil && len(players) >= room.MaxPlayers {
		return false, ReasonFull
	}
	if c.phases != nil {
		if phase, ok := c.phases.Phase(roomID); ok && phase == game.PhasePlaying {
			return false, ReasonGameInProgress
		}
	}
	return true, ""
}

// PlayerSummary is the roster slice of a room summary.
type PlayerSummary struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Summary is the composite read model for one room.
type Summary struct {
	RoomID     string          `json:"roomId"`
	Name       string          `json:"name"`
	GameType   string          `json:"gameType"`
	HostID     string          `json:"hostId"`
	MaxPlayers int             `json:"maxPlayers"`
	IsActive   bool            `json:"isActive"`
	IsPrivate  bool            `json:"isPrivate"`
	Phase      game.Phase      `json:"phase"`
	Players    []PlayerSummary `json:"players"`
	CanJoin    bool            `json:"canJoin"`
	Reason     string          `json:"reason,omitempty"`
}

// RoomSummary builds the composite room view sent on room-update frames and
// from the REST surface.
func (c *Coordinator) RoomSummary(ctx context.Context, roomID string) (Summary, error) {
	room, err := c.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return Summary{}, ErrRoomNotFound
	}
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return Summary{}, fmt.Errorf("load roster: %w", err)
	}

	phase := game.PhaseWaiting
	if c.phases != nil {
		if p, ok := c.phases.Phase(roomID); ok {
			phase = p
		}
	}
	canJoin, reason := c.CanJoinRoom(ctx, roomID)

	return Summary{
		RoomID:     room.ID,
		Name:       room.Name,
		GameType:   room.GameType,
		HostID:     room.HostID,
		MaxPlayers: room.MaxPlayers,
		IsActive:   room.IsActive,
		IsPrivate:  room.IsPrivate,
		Phase:      phase,
		Players: lo.Map(players, func(p store.Player, _ int) PlayerSummary {
			return PlayerSummary{ID: p.ID, Name: p.Name, IsHost: p.IsHost, JoinedAt: p.JoinedAt}
		}),
		CanJoin: canJoin,
		Reason:  reason,
	}, nil
}

// LobbyRoom is the compact per-room view pushed to lobby subscribers.
type LobbyRoom struct {
	RoomID      string     `json:"roomId"`
	Name        string     `json:"name"`
	GameType    string     `json:"gameType"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	Phase       game.Phase `json:"phase"`
	CanJoin     bool       `json:"canJoin"`
}

// ActiveRooms lists active, non-private rooms for the lobby view.
func (c *Coordinator) ActiveRooms(ctx context.Context, limit int) ([]LobbyRoom, error) {
	rooms, err := c.store.GetActiveRooms(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	out := make([]LobbyRoom, 0, len(rooms))
	for _, room := range rooms {
		if room.IsPrivate {
			continue
		}
		players, err := c.store.GetPlayersByRoom(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("load roster: %w", err)
		}
		phase := game.PhaseWaiting
		if c.phases != nil {
			if p, ok := c.phases.Phase(room.ID); ok {
				phase = p
			}
		}
		canJoin, _ := c.CanJoinRoom(ctx, room.ID)
		out = append(out, LobbyRoom{
			RoomID:      room.ID,
			Name:        room.Name,
			GameType:    room.GameType,
			PlayerCount: len(players),
			MaxPlayers:  room.MaxPlayers,
			Phase:       phase,
			CanJoin:     canJoin,
		})
	}
	return out, nil
}

// RoomAlive reports whether a room is active with at least one persisted
// player. The reconciliation monitor retires in-process resources for rooms
// that are not.
func (c *Coordinator) RoomAlive(ctx context.Context, roomID string) (bool, error) {
	room, err := c.store.GetRoomByID(ctx, roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !room.IsActive {
		return false, nil
	}
	players, err := c.store.GetPlayersByRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	return len(players) > 0, nil
}

// Cleanup deletes rooms with zero persisted players and removes stale
// players from inactive rooms. Returns counts for the sweep report.
func (c *Coordinator) Cleanup(ctx context.Context) (roomsCleaned, playersCleaned int, err error) {
	rooms, err := c.store.ListRooms(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list rooms: %w", err)
	}

	for _, room := range rooms {
		players, err := c.store.GetPlayersByRoom(ctx, room.ID)
		if err != nil {
			c.log.Error("cleanup roster load failed", "room", room.ID, "err", err)
			continue
		}
		switch {
		case len(players) == 0:
			if err := c.store.DeleteRoom(ctx, room.ID); err != nil {
				c.log.Error("cleanup room delete failed", "room", room.ID, "err", err)
				continue
			}
			roomsCleaned++
		case !room.IsActive:
			for _, p := range players {
				if err := c.store.RemovePlayer(ctx, p.ID); err == nil {
					playersCleaned++
				}
			}
			if err := c.store.DeleteRoom(ctx, room.ID); err == nil {
				roomsCleaned++
			}
		}
	}

	if roomsCleaned > 0 || playersCleaned > 0 {
		c.log.Info("cleanup sweep finished", "rooms", roomsCleaned, "players", playersCleaned)
	}
	return roomsCleaned, playersCleaned, nil
}
