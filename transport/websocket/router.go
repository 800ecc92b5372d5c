package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"partyhub/game"
	"partyhub/room"
)

var errNoActiveGame = errors.New("no active game for room")

// dispatch is the router boundary: it parses the envelope, runs exactly one
// handler turn under the hub mutex, and converts any failure into an error
// frame. Malformed input never closes the connection.
func (h *Hub) dispatch(c *Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panic recovered", "err", fmt.Sprint(r))
			h.reject(c, codeInternal, "internal error")
		}
	}()

	var msg game.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reject(c, codeProtocol, "malformed message")
		return
	}
	if msg.Type == "" {
		h.reject(c, codeProtocol, "missing message type")
		return
	}
	if msg.RoomID == "" && msg.Type != game.TypePing && msg.Type != game.TypeSubscribeLobby {
		h.reject(c, codeProtocol, "missing roomId")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c.lastActivity = time.Now()
	ctx := context.Background()

	var err error
	switch msg.Type {
	case game.TypeJoinRoom:
		err = h.handleJoinRoom(ctx, c, msg)
	case game.TypeLeaveRoom:
		err = h.handleLeaveRoom(ctx, c, msg)
	case game.TypeChat:
		err = h.handleChat(ctx, c, msg)
	case game.TypeStartGame:
		err = h.handleStartGame(ctx, c, msg)
	case game.TypeEndGame:
		err = h.handleEndGame(ctx, c, msg)
	case game.TypeUpdateSettings:
		err = h.handleUpdateSettings(ctx, c, msg)
	case game.TypeSubscribeLobby:
		h.subscribeLobby(ctx, c)
	case game.TypePing:
		h.sendTo(c, game.ServerMessage{
			Type:   game.TypePong,
			RoomID: msg.RoomID,
			Data:   map[string]any{"timestamp": time.Now().UnixMilli()},
		})
	default:
		err = h.handleGameMessage(ctx, c, msg)
	}

	if err != nil {
		h.log.Debug("message rejected", "type", msg.Type, "room", msg.RoomID, "err", err)
		h.sendError(c, msg.RoomID, errorCode(err), err.Error())
	}
}

// handleJoinRoom attaches the socket to a room. If the requesting identity
// already exists among the room's persisted players (by ID, else by
// case-insensitive name) the join is a reconnection: the existing player is
// re-bound to this socket and no new Player row is written.
func (h *Hub) handleJoinRoom(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	var payload struct {
		PlayerName string `json:"playerName"`
	}
	if len(msg.Data) > 0 {
		json.Unmarshal(msg.Data, &payload)
	}

	member, found, err := h.coord.FindMember(ctx, msg.RoomID, msg.PlayerID, payload.PlayerName)
	if err != nil {
		return err
	}

	if found {
		h.registry.Bind(member.ID, msg.RoomID, c)
		if state, ok := h.states.Get(msg.RoomID); ok {
			state.SetConnected(member.ID, true)
		}
		summary, err := h.coord.RoomSummary(ctx, msg.RoomID)
		if err != nil {
			return err
		}
		h.log.Info("player reconnected", "room", msg.RoomID, "player", member.ID)
		h.sendTo(c, game.ServerMessage{
			Type:   game.TypeRoomUpdate,
			RoomID: msg.RoomID,
			Data:   map[string]any{"room": summary, "playerId": member.ID, "reconnected": true},
		})
		h.broadcastRoomUpdate(ctx, msg.RoomID, map[string]any{"playerId": member.ID, "reconnected": true})
		return nil
	}

	if ok, reason := h.coord.CanJoinRoom(ctx, msg.RoomID); !ok && reason == room.ReasonGameInProgress {
		return room.ErrGameInProgress
	}

	player, err := h.coord.JoinRoom(ctx, msg.RoomID, payload.PlayerName)
	if err != nil {
		return err
	}

	h.registry.Bind(player.ID, msg.RoomID, c)
	if state, ok := h.states.Get(msg.RoomID); ok && state.Player(player.ID) == nil {
		state.Players = append(state.Players, game.PlayerState{
			ID:           player.ID,
			Name:         player.Name,
			IsConnected:  true,
			LastActivity: time.Now(),
		})
	}

	h.broadcastRoomUpdate(ctx, msg.RoomID, map[string]any{"playerId": player.ID, "joined": true})
	h.notifyLobbyLocked(ctx)
	return nil
}

// handleLeaveRoom removes the player, migrates host privileges if needed,
// and closes the socket once the farewell broadcast is queued.
func (h *Hub) handleLeaveRoom(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	playerID := msg.PlayerID
	if playerID == "" {
		playerID = c.playerID
	}
	if playerID == "" {
		return room.ErrNotInRoom
	}

	result, err := h.coord.LeaveRoom(ctx, msg.RoomID, playerID)
	if err != nil {
		return err
	}

	h.registry.Unbind(playerID)
	if state, ok := h.states.Get(msg.RoomID); ok {
		state.RemovePlayer(playerID)
		if result.NewHostID != "" {
			state.SetHost(result.NewHostID)
		}
	}
	if result.RoomDeleted {
		h.states.Delete(msg.RoomID)
	}

	h.broadcastRoomUpdate(ctx, msg.RoomID, map[string]any{
		"playerId":  playerID,
		"wasHost":   result.WasHost,
		"newHostId": result.NewHostID,
	})
	h.notifyLobbyLocked(ctx)

	c.shutdown()
	return nil
}

// handleChat relays a chat line with a server-assigned timestamp. If the
// sender's socket is not yet indexed under the room (chat raced the join
// bookkeeping) the message is additionally unicast back to the sender so
// they see their own line.
func (h *Hub) handleChat(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	playerID := msg.PlayerID
	if playerID == "" {
		playerID = c.playerID
	}
	member, found, err := h.coord.FindMember(ctx, msg.RoomID, playerID, "")
	if err != nil {
		return err
	}
	if !found {
		return room.ErrNotInRoom
	}

	var payload struct {
		Text string `json:"text"`
	}
	if len(msg.Data) > 0 {
		json.Unmarshal(msg.Data, &payload)
	}
	if payload.Text == "" {
		return fmt.Errorf("%w: empty chat message", room.ErrValidation)
	}

	chat := game.ChatMessage{
		PlayerID: member.ID,
		Name:     member.Name,
		Text:     payload.Text,
		SentAt:   time.Now().UTC(),
	}
	if state, ok := h.states.Get(msg.RoomID); ok {
		state.Chat = append(state.Chat, chat)
	}

	out := game.ServerMessage{Type: game.TypeChatMessage, RoomID: msg.RoomID, Data: chat}
	h.broadcastRoom(msg.RoomID, out)

	if bound, ok := h.registry.Connection(member.ID); !ok || bound != c {
		h.sendTo(c, out)
	}
	return nil
}

// handleStartGame builds the initial game state through the adapter for the
// room's game type and broadcasts it. Host only.
func (h *Hub) handleStartGame(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	summary, err := h.requireHost(ctx, c, msg)
	if err != nil {
		return err
	}

	adapter, err := h.games.Get(summary.GameType)
	if err != nil {
		return err
	}

	roster := make([]game.PlayerState, 0, len(summary.Players))
	for _, p := range summary.Players {
		_, connected := h.registry.Connection(p.ID)
		roster = append(roster, game.PlayerState{
			ID:           p.ID,
			Name:         p.Name,
			IsHost:       p.IsHost,
			IsConnected:  connected,
			LastActivity: time.Now(),
		})
	}

	settings := adapter.DefaultSettings().Clone()
	settings.Merge(h.states.Pending(msg.RoomID))

	state, err := adapter.InitializeGame(msg.RoomID, roster, settings)
	if err != nil {
		return err
	}
	state.RoomID = msg.RoomID
	state.GameType = summary.GameType

	state, err = adapter.StartGame(state)
	if err != nil {
		return err
	}
	state.Phase = game.PhasePlaying
	h.states.Set(state)

	h.log.Info("game started", "room", msg.RoomID, "gameType", summary.GameType, "players", len(roster))
	h.broadcastRoom(msg.RoomID, game.ServerMessage{Type: game.TypeGameState, RoomID: msg.RoomID, Data: state})
	h.notifyLobbyLocked(ctx)
	return nil
}

// handleEndGame finalizes the running game. Host only.
func (h *Hub) handleEndGame(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	if _, err := h.requireHost(ctx, c, msg); err != nil {
		return err
	}
	state, ok := h.states.Get(msg.RoomID)
	if !ok {
		return errNoActiveGame
	}

	adapter, err := h.games.Get(state.GameType)
	if err != nil {
		return err
	}
	state, err = adapter.EndGame(state)
	if err != nil {
		return err
	}
	if state.Phase != game.PhaseResults {
		state.Phase = game.PhaseFinished
	}
	h.states.Set(state)

	h.log.Info("game ended", "room", msg.RoomID, "phase", state.Phase)
	h.broadcastRoom(msg.RoomID, game.ServerMessage{Type: game.TypeGameState, RoomID: msg.RoomID, Data: state})
	h.notifyLobbyLocked(ctx)
	return nil
}

// handleUpdateSettings merges settings into the live game state (if any)
// and into the defaults applied at the next start. Host only.
func (h *Hub) handleUpdateSettings(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	if _, err := h.requireHost(ctx, c, msg); err != nil {
		return err
	}

	var settings game.Settings
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &settings); err != nil {
			return fmt.Errorf("%w: settings must be an object", room.ErrValidation)
		}
	}
	if len(settings) == 0 {
		return fmt.Errorf("%w: no settings supplied", room.ErrValidation)
	}

	h.states.MergePending(msg.RoomID, settings)
	applied := h.states.Pending(msg.RoomID)
	if state, ok := h.states.Get(msg.RoomID); ok {
		if state.Settings == nil {
			state.Settings = make(game.Settings)
		}
		state.Settings.Merge(settings)
		applied = state.Settings
	}

	h.broadcastRoom(msg.RoomID, game.ServerMessage{
		Type:   game.TypeSettingsUpdated,
		RoomID: msg.RoomID,
		Data:   map[string]any{"settings": applied},
	})
	return nil
}

// handleGameMessage delegates an unrecognized message type to the game
// adapter and applies whatever it returns.
func (h *Hub) handleGameMessage(ctx context.Context, c *Conn, msg game.ClientMessage) error {
	state, ok := h.states.Get(msg.RoomID)
	if !ok {
		return errNoActiveGame
	}
	adapter, err := h.games.Get(state.GameType)
	if err != nil {
		return err
	}

	if msg.PlayerID == "" {
		msg.PlayerID = c.playerID
	}

	updated, outbound, err := adapter.HandleClientMessage(state, msg)
	if err != nil {
		return err
	}
	if updated != nil {
		h.states.Set(updated)
	}
	for _, out := range outbound {
		if out.RoomID == "" {
			out.RoomID = msg.RoomID
		}
		h.broadcastRoom(out.RoomID, out)
	}
	return nil
}

// requireHost verifies the sender is the room's current host and returns
// the room summary used by the host-gated handlers.
func (h *Hub) requireHost(ctx context.Context, c *Conn, msg game.ClientMessage) (room.Summary, error) {
	playerID := msg.PlayerID
	if playerID == "" {
		playerID = c.playerID
	}
	host, err := h.coord.HostOf(ctx, msg.RoomID)
	if err != nil {
		return room.Summary{}, err
	}
	if host.ID != playerID {
		return room.Summary{}, room.ErrNotHost
	}
	return h.coord.RoomSummary(ctx, msg.RoomID)
}

// errorCode maps sentinel errors onto stable outbound codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrValidation):
		return codeValidation
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, errNoActiveGame),
		errors.Is(err, game.ErrAdapterNotFound):
		return codeNotFound
	case errors.Is(err, room.ErrRoomFull):
		return codeRoomFull
	case errors.Is(err, room.ErrGameInProgress):
		return codeGameInProgress
	case errors.Is(err, room.ErrNameTaken):
		return codeNameTaken
	case errors.Is(err, room.ErrNotHost):
		return codeNotHost
	case errors.Is(err, room.ErrNotInRoom):
		return codeNotInRoom
	default:
		return codeInternal
	}
}
