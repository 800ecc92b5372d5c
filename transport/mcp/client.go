package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"partyhub/room"
)

// Client is a thin MCP client that proxies admin operations to the REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates an MCP client pointed at a running partyhub server.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"partyhub admin",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`partyhub - room coordination admin interface

AVAILABLE TOOLS:
- list_rooms: List active, joinable rooms
- room_summary: Inspect one room (roster, phase, joinability)
- create_room: Create a room with a named host
- cleanup_rooms: Run the reconciliation sweep now`),
	)
	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all active rooms with player counts and joinability",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_summary",
		Description: "Get the composite summary of a single room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to inspect",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleRoomSummary)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a new room with the given host",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Room name (1-50 characters)",
				},
				"host_name": map[string]interface{}{
					"type":        "string",
					"description": "Host player name (1-30 characters)",
				},
				"game_type": map[string]interface{}{
					"type":        "string",
					"description": "Game type, e.g. wordduel",
				},
				"max_players": map[string]interface{}{
					"type":        "number",
					"description": "Capacity 2-16 (default 8)",
				},
			},
			Required: []string{"name", "host_name", "game_type"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cleanup_rooms",
		Description: "Run the reconciliation sweep and report cleanup counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCleanup)
}

// GetMCPServer returns the underlying MCP server for stdio serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio runs the MCP server over stdin/stdout until EOF.
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int              `json:"count"`
		Rooms []room.LobbyRoom `json:"rooms"`
	}
	if err := c.apiCall("GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Rooms (%d):\n\n", response.Count)
	for _, r := range response.Rooms {
		joinable := "joinable"
		if !r.CanJoin {
			joinable = "closed"
		}
		result += fmt.Sprintf("- %s %q (%s, %d/%d players, phase %s, %s)\n",
			r.RoomID, r.Name, r.GameType, r.PlayerCount, r.MaxPlayers, r.Phase, joinable)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRoomSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var summary room.Summary
	if err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s", roomID), nil, &summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Room %s %q\nGame: %s  Phase: %s  Capacity: %d/%d\nJoinable: %v",
		summary.RoomID, summary.Name, summary.GameType, summary.Phase,
		len(summary.Players), summary.MaxPlayers, summary.CanJoin)
	if summary.Reason != "" {
		result += fmt.Sprintf(" (%s)", summary.Reason)
	}
	result += "\n\nPlayers:\n"
	for _, p := range summary.Players {
		marker := ""
		if p.IsHost {
			marker = " (host)"
		}
		result += fmt.Sprintf("- %s%s joined %s\n", p.Name, marker, p.JoinedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)
	hostName, _ := args["host_name"].(string)
	gameType, _ := args["game_type"].(string)
	maxPlayers := 0
	if n, ok := args["max_players"].(float64); ok {
		maxPlayers = int(n)
	}

	body := map[string]interface{}{
		"name":     name,
		"hostName": hostName,
		"gameType": gameType,
	}
	if maxPlayers > 0 {
		body["maxPlayers"] = maxPlayers
	}

	var created room.CreateRoomResult
	if err := c.apiCall("POST", "/api/rooms", body, &created); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created room: %s\nHost player: %s\n", created.RoomID, created.PlayerID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCleanup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var counts struct {
		RoomsCleaned   int `json:"roomsCleaned"`
		PlayersCleaned int `json:"playersCleaned"`
	}
	if err := c.apiCall("POST", "/api/admin/cleanup", nil, &counts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Cleanup sweep finished: %d rooms, %d players removed\n",
		counts.RoomsCleaned, counts.PlayersCleaned)
	return mcp.NewToolResultText(result), nil
}
