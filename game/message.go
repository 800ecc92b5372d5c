package game

import "encoding/json"

// Built-in client message types handled by the coordination engine itself.
// Anything else is delegated to the game adapter for the room.
const (
	TypeJoinRoom       = "join-room"
	TypeLeaveRoom      = "leave-room"
	TypeChat           = "chat"
	TypeStartGame      = "start-game"
	TypeEndGame        = "end-game"
	TypeUpdateSettings = "update-settings"
	TypeSubscribeLobby = "subscribe-lobby"
	TypePing           = "ping"
)

// Canonical outbound message types.
const (
	TypeRoomUpdate      = "room-update"
	TypeGameState       = "game-state"
	TypeChatMessage     = "chat-message"
	TypeSettingsUpdated = "settings-updated"
	TypeLobbyUpdate     = "lobby-update"
	TypeLobbyData       = "lobby-data"
	TypePong            = "pong"
	TypeError           = "error"
)

// ClientMessage is the inbound wire envelope. RoomID and PlayerID are
// optional for the lobby-scoped types (subscribe-lobby, ping).
type ClientMessage struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	PlayerID string          `json:"playerId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the outbound wire envelope.
type ServerMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data"`
}
