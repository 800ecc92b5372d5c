package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/inconshreveable/log15"

	"partyhub/game"
	"partyhub/game/wordduel"
	"partyhub/room"
	"partyhub/store"
)

// fakeSocket satisfies the socket interface with no real network behind it.
// Outbound frames are inspected through the connection's send channel, so
// tests never start the write pump.
type fakeSocket struct {
	closed bool
}

func (f *fakeSocket) ReadMessage() (int, []byte, error)      { select {} }
func (f *fakeSocket) WriteMessage(mt int, data []byte) error { return nil }
func (f *fakeSocket) SetReadLimit(limit int64)               {}
func (f *fakeSocket) SetReadDeadline(t time.Time) error      { return nil }
func (f *fakeSocket) SetWriteDeadline(t time.Time) error     { return nil }
func (f *fakeSocket) SetPongHandler(h func(string) error)    {}
func (f *fakeSocket) Close() error {
	f.closed = true
	return nil
}

func newTestHub(t *testing.T) (*Hub, *room.Coordinator) {
	t.Helper()
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	states := NewStateTable()
	coord := room.NewCoordinator(store.NewMemory(), states, logger)
	games := game.NewRegistry()
	games.Register("wordduel", wordduel.New())

	return NewHub(coord, games, states, logger), coord
}

// connect registers a fresh unbound connection with the hub.
func connect(h *Hub) *Conn {
	c := newConn(&fakeSocket{})
	h.mu.Lock()
	h.registry.Register(c)
	h.mu.Unlock()
	return c
}

func sendMsg(h *Hub, c *Conn, msg map[string]any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	h.dispatch(c, raw)
}

// frame is the decoded outbound envelope.
type frame struct {
	Type   string         `json:"type"`
	RoomID string         `json:"roomId"`
	Data   map[string]any `json:"data"`
}

// takeFrames drains everything queued on the connection.
func takeFrames(t *testing.T, c *Conn) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case raw := <-c.send:
			var f frame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("Failed to decode outbound frame: %v", err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

// lastFrame drains the queue and returns the final frame.
func lastFrame(t *testing.T, c *Conn) frame {
	t.Helper()
	out := takeFrames(t, c)
	if len(out) == 0 {
		t.Fatal("Expected at least one outbound frame")
	}
	return out[len(out)-1]
}

// makeRoom creates a room through the coordinator, as the REST API would.
func makeRoom(t *testing.T, coord *room.Coordinator, maxPlayers int) room.CreateRoomResult {
	t.Helper()
	result, err := coord.CreateRoom(context.Background(), room.CreateRoomParams{
		Name:       "Test Room",
		HostName:   "Alice",
		GameType:   "wordduel",
		MaxPlayers: maxPlayers,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	return result
}

// join binds a connection into the room with the given identity.
func join(h *Hub, c *Conn, roomID, playerID, playerName string) {
	msg := map[string]any{"type": game.TypeJoinRoom, "roomId": roomID}
	if playerID != "" {
		msg["playerId"] = playerID
	}
	if playerName != "" {
		msg["data"] = map[string]any{"playerName": playerName}
	}
	sendMsg(h, c, msg)
}

func TestDispatchPing(t *testing.T) {
	h, _ := newTestHub(t)
	c := connect(h)

	sendMsg(h, c, map[string]any{"type": game.TypePing})

	f := lastFrame(t, c)
	if f.Type != game.TypePong {
		t.Errorf("Expected pong, got %s", f.Type)
	}
	if _, ok := f.Data["timestamp"]; !ok {
		t.Error("Expected timestamp in pong data")
	}
}

func TestDispatchProtocolErrors(t *testing.T) {
	h, _ := newTestHub(t)

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", "{not json"},
		{"missing type", `{"roomId":"r1"}`},
		{"missing roomId", `{"type":"chat"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := connect(h)
			h.dispatch(c, []byte(tt.raw))

			f := lastFrame(t, c)
			if f.Type != game.TypeError {
				t.Fatalf("Expected error frame, got %s", f.Type)
			}
			if f.Data["code"] != codeProtocol {
				t.Errorf("Expected code %s, got %v", codeProtocol, f.Data["code"])
			}
			if c.Closed() {
				t.Error("Protocol errors must not close the connection")
			}
		})
	}
}

func TestJoinRoomNewPlayer(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	takeFrames(t, host)

	bob := connect(h)
	join(h, bob, created.RoomID, "", "Bob")

	f := lastFrame(t, bob)
	if f.Type != game.TypeRoomUpdate {
		t.Fatalf("Expected room-update, got %s", f.Type)
	}
	if f.Data["joined"] != true {
		t.Error("Expected joined flag on the update")
	}

	// The host sees the same broadcast.
	hf := lastFrame(t, host)
	if hf.Type != game.TypeRoomUpdate {
		t.Errorf("Expected host to receive room-update, got %s", hf.Type)
	}

	players, err := coord.RoomSummary(context.Background(), created.RoomID)
	if err != nil {
		t.Fatalf("RoomSummary failed: %v", err)
	}
	if len(players.Players) != 2 {
		t.Errorf("Expected 2 players, got %d", len(players.Players))
	}
	if bob.RoomID() != created.RoomID {
		t.Error("Expected connection to be bound to the room")
	}
}

func TestJoinRoomReconnection(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	first := connect(h)
	join(h, first, created.RoomID, created.PlayerID, "")

	f := lastFrame(t, first)
	if f.Type != game.TypeRoomUpdate || f.Data["reconnected"] != true {
		t.Fatalf("Expected reconnected room-update, got %+v", f)
	}

	// The same identity on a new socket takes over without a new player row.
	second := connect(h)
	join(h, second, created.RoomID, "", "alice")

	f = lastFrame(t, second)
	if f.Data["reconnected"] != true {
		t.Errorf("Expected reconnected flag, got %+v", f.Data)
	}

	summary, err := coord.RoomSummary(context.Background(), created.RoomID)
	if err != nil {
		t.Fatalf("RoomSummary failed: %v", err)
	}
	if len(summary.Players) != 1 {
		t.Errorf("Reconnection must not add a player row, got %d players", len(summary.Players))
	}

	h.mu.Lock()
	bound, ok := h.registry.Connection(created.PlayerID)
	h.mu.Unlock()
	if !ok || bound != second {
		t.Error("Expected the new socket to be the bound connection")
	}
}

func TestJoinRoomFull(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 2)

	bob := connect(h)
	join(h, bob, created.RoomID, "", "Bob")

	carol := connect(h)
	join(h, carol, created.RoomID, "", "Carol")

	f := lastFrame(t, carol)
	if f.Type != game.TypeError {
		t.Fatalf("Expected error frame, got %s", f.Type)
	}
	if f.Data["code"] != codeRoomFull {
		t.Errorf("Expected code %s, got %v", codeRoomFull, f.Data["code"])
	}
}

func TestJoinRoomDuringGame(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	h.states.Set(&game.State{RoomID: created.RoomID, GameType: "wordduel", Phase: game.PhasePlaying})

	carol := connect(h)
	join(h, carol, created.RoomID, "", "Carol")

	f := lastFrame(t, carol)
	if f.Data["code"] != codeGameInProgress {
		t.Errorf("Expected code %s, got %v", codeGameInProgress, f.Data["code"])
	}
}

func TestChat(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	bob := connect(h)
	join(h, bob, created.RoomID, "", "Bob")
	takeFrames(t, host)
	takeFrames(t, bob)

	sendMsg(h, bob, map[string]any{
		"type":   game.TypeChat,
		"roomId": created.RoomID,
		"data":   map[string]any{"text": "hello"},
	})

	for name, c := range map[string]*Conn{"host": host, "bob": bob} {
		f := lastFrame(t, c)
		if f.Type != game.TypeChatMessage {
			t.Errorf("Expected %s to receive chat-message, got %s", name, f.Type)
			continue
		}
		if f.Data["text"] != "hello" {
			t.Errorf("Expected text hello, got %v", f.Data["text"])
		}
		if f.Data["name"] != "Bob" {
			t.Errorf("Expected sender name Bob, got %v", f.Data["name"])
		}
		if _, ok := f.Data["sentAt"]; !ok {
			t.Error("Expected server-assigned timestamp")
		}
	}

	t.Run("empty text rejected", func(t *testing.T) {
		sendMsg(h, bob, map[string]any{
			"type":   game.TypeChat,
			"roomId": created.RoomID,
			"data":   map[string]any{"text": ""},
		})
		f := lastFrame(t, bob)
		if f.Data["code"] != codeValidation {
			t.Errorf("Expected code %s, got %v", codeValidation, f.Data["code"])
		}
	})

	t.Run("non-member rejected", func(t *testing.T) {
		stranger := connect(h)
		sendMsg(h, stranger, map[string]any{
			"type":   game.TypeChat,
			"roomId": created.RoomID,
			"data":   map[string]any{"text": "let me in"},
		})
		f := lastFrame(t, stranger)
		if f.Data["code"] != codeNotInRoom {
			t.Errorf("Expected code %s, got %v", codeNotInRoom, f.Data["code"])
		}
	})
}

func TestStartGame(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	bob := connect(h)
	join(h, bob, created.RoomID, "", "Bob")
	takeFrames(t, host)
	takeFrames(t, bob)

	t.Run("non-host rejected", func(t *testing.T) {
		sendMsg(h, bob, map[string]any{"type": game.TypeStartGame, "roomId": created.RoomID})
		f := lastFrame(t, bob)
		if f.Data["code"] != codeNotHost {
			t.Errorf("Expected code %s, got %v", codeNotHost, f.Data["code"])
		}
	})

	t.Run("host starts the game", func(t *testing.T) {
		sendMsg(h, host, map[string]any{"type": game.TypeStartGame, "roomId": created.RoomID})

		f := lastFrame(t, host)
		if f.Type != game.TypeGameState {
			t.Fatalf("Expected game-state, got %s", f.Type)
		}
		if f.Data["phase"] != string(game.PhasePlaying) {
			t.Errorf("Expected phase playing, got %v", f.Data["phase"])
		}

		state, ok := h.states.Get(created.RoomID)
		if !ok {
			t.Fatal("Expected game state to be stored")
		}
		if state.Phase != game.PhasePlaying {
			t.Errorf("Expected stored phase playing, got %s", state.Phase)
		}
		if len(state.Players) != 2 {
			t.Errorf("Expected roster of 2, got %d", len(state.Players))
		}
	})

	t.Run("joins are blocked while playing", func(t *testing.T) {
		carol := connect(h)
		join(h, carol, created.RoomID, "", "Carol")
		f := lastFrame(t, carol)
		if f.Data["code"] != codeGameInProgress {
			t.Errorf("Expected code %s, got %v", codeGameInProgress, f.Data["code"])
		}
	})
}

func TestGameMessageDelegation(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	sendMsg(h, host, map[string]any{"type": game.TypeStartGame, "roomId": created.RoomID})
	takeFrames(t, host)

	sendMsg(h, host, map[string]any{
		"type":   "submit-word",
		"roomId": created.RoomID,
		"data":   map[string]any{"word": "banana"},
	})

	found := false
	for _, f := range takeFrames(t, host) {
		if f.Type == "word-accepted" {
			found = true
			if f.RoomID != created.RoomID {
				t.Errorf("Expected adapter frame stamped with room %s, got %s", created.RoomID, f.RoomID)
			}
		}
	}
	if !found {
		t.Error("Expected word-accepted frame from the adapter")
	}

	t.Run("no active game", func(t *testing.T) {
		other := makeRoom(t, coord, 4)
		c := connect(h)
		join(h, c, other.RoomID, other.PlayerID, "")
		takeFrames(t, c)

		sendMsg(h, c, map[string]any{"type": "submit-word", "roomId": other.RoomID})
		f := lastFrame(t, c)
		if f.Data["code"] != codeNotFound {
			t.Errorf("Expected code %s, got %v", codeNotFound, f.Data["code"])
		}
	})
}

func TestEndGame(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")

	t.Run("nothing to end", func(t *testing.T) {
		sendMsg(h, host, map[string]any{"type": game.TypeEndGame, "roomId": created.RoomID})
		f := lastFrame(t, host)
		if f.Data["code"] != codeNotFound {
			t.Errorf("Expected code %s, got %v", codeNotFound, f.Data["code"])
		}
	})

	t.Run("end running game", func(t *testing.T) {
		sendMsg(h, host, map[string]any{"type": game.TypeStartGame, "roomId": created.RoomID})
		takeFrames(t, host)

		sendMsg(h, host, map[string]any{"type": game.TypeEndGame, "roomId": created.RoomID})
		f := lastFrame(t, host)
		if f.Type != game.TypeGameState {
			t.Fatalf("Expected game-state, got %s", f.Type)
		}
		if f.Data["phase"] != string(game.PhaseResults) {
			t.Errorf("Expected phase results, got %v", f.Data["phase"])
		}
	})
}

func TestUpdateSettings(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	takeFrames(t, host)

	sendMsg(h, host, map[string]any{
		"type":   game.TypeUpdateSettings,
		"roomId": created.RoomID,
		"data":   map[string]any{"rounds": 1},
	})

	f := lastFrame(t, host)
	if f.Type != game.TypeSettingsUpdated {
		t.Fatalf("Expected settings-updated, got %s", f.Type)
	}

	// The pending settings survive until game start and override defaults.
	sendMsg(h, host, map[string]any{"type": game.TypeStartGame, "roomId": created.RoomID})
	state, ok := h.states.Get(created.RoomID)
	if !ok {
		t.Fatal("Expected game state after start")
	}
	if state.Settings["rounds"] != float64(1) {
		t.Errorf("Expected rounds setting 1, got %v", state.Settings["rounds"])
	}

	t.Run("empty settings rejected", func(t *testing.T) {
		takeFrames(t, host)
		sendMsg(h, host, map[string]any{
			"type":   game.TypeUpdateSettings,
			"roomId": created.RoomID,
			"data":   map[string]any{},
		})
		f := lastFrame(t, host)
		if f.Data["code"] != codeValidation {
			t.Errorf("Expected code %s, got %v", codeValidation, f.Data["code"])
		}
	})
}

func TestLeaveRoom(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	bob := connect(h)
	join(h, bob, created.RoomID, "", "Bob")
	takeFrames(t, host)
	takeFrames(t, bob)

	// Host leaves: Bob is promoted and told about it, host socket closes.
	sendMsg(h, host, map[string]any{"type": game.TypeLeaveRoom, "roomId": created.RoomID})

	f := lastFrame(t, bob)
	if f.Type != game.TypeRoomUpdate {
		t.Fatalf("Expected room-update, got %s", f.Type)
	}
	if f.Data["wasHost"] != true {
		t.Error("Expected wasHost flag")
	}
	if f.Data["newHostId"] == "" || f.Data["newHostId"] == nil {
		t.Error("Expected newHostId to identify the successor")
	}
	if !host.Closed() {
		t.Error("Expected the leaving socket to be closed")
	}

	summary, err := coord.RoomSummary(context.Background(), created.RoomID)
	if err != nil {
		t.Fatalf("RoomSummary failed: %v", err)
	}
	if summary.HostID != f.Data["newHostId"] {
		t.Errorf("Expected persisted host %v, got %s", f.Data["newHostId"], summary.HostID)
	}

	// Last player leaves: room deactivates and its state is dropped.
	sendMsg(h, bob, map[string]any{"type": game.TypeLeaveRoom, "roomId": created.RoomID})
	if _, ok := h.states.Get(created.RoomID); ok {
		t.Error("Expected room state to be discarded")
	}
	alive, err := coord.RoomAlive(context.Background(), created.RoomID)
	if err != nil {
		t.Fatalf("RoomAlive failed: %v", err)
	}
	if alive {
		t.Error("Expected room to be dead after the last leave")
	}
}

func TestDisconnect(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	host := connect(h)
	join(h, host, created.RoomID, created.PlayerID, "")
	bob := connect(h)
	join(h, bob, created.RoomID, "", "Bob")

	t.Run("superseded socket drops silently", func(t *testing.T) {
		replacement := connect(h)
		join(h, replacement, created.RoomID, "", "Bob")

		h.Disconnect(bob)

		summary, err := coord.RoomSummary(context.Background(), created.RoomID)
		if err != nil {
			t.Fatalf("RoomSummary failed: %v", err)
		}
		if len(summary.Players) != 2 {
			t.Errorf("Stale socket close must not remove the player, got %d players", len(summary.Players))
		}
		bob = replacement
	})

	t.Run("bound socket close runs the leave path", func(t *testing.T) {
		h.Disconnect(bob)

		summary, err := coord.RoomSummary(context.Background(), created.RoomID)
		if err != nil {
			t.Fatalf("RoomSummary failed: %v", err)
		}
		if len(summary.Players) != 1 {
			t.Errorf("Expected 1 player after disconnect, got %d", len(summary.Players))
		}
	})
}
