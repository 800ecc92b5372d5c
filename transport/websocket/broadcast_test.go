package websocket

import (
	"testing"

	"partyhub/game"
)

func TestBroadcastRoomSkipsClosed(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	alive := connect(h)
	join(h, alive, created.RoomID, created.PlayerID, "")
	dead := connect(h)
	join(h, dead, created.RoomID, "", "Bob")
	takeFrames(t, alive)
	takeFrames(t, dead)

	dead.shutdown()

	h.mu.Lock()
	h.broadcastRoom(created.RoomID, game.ServerMessage{Type: "announcement", RoomID: created.RoomID})
	h.mu.Unlock()

	if len(takeFrames(t, alive)) != 1 {
		t.Error("Expected the live connection to receive the frame")
	}
	if len(takeFrames(t, dead)) != 0 {
		t.Error("Expected nothing queued for the closed connection")
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	h, coord := newTestHub(t)
	created := makeRoom(t, coord, 4)

	slow := connect(h)
	join(h, slow, created.RoomID, created.PlayerID, "")
	takeFrames(t, slow)

	for i := 0; i < sendBuffer; i++ {
		if !slow.enqueue([]byte("{}")) {
			t.Fatalf("Expected enqueue %d to succeed", i)
		}
	}

	// The overflowing frame is dropped, not blocked on.
	h.mu.Lock()
	h.broadcastRoom(created.RoomID, game.ServerMessage{Type: "announcement", RoomID: created.RoomID})
	h.mu.Unlock()

	if len(slow.send) != sendBuffer {
		t.Errorf("Expected buffer to stay at %d frames, got %d", sendBuffer, len(slow.send))
	}
}

func TestSendError(t *testing.T) {
	h, _ := newTestHub(t)
	c := connect(h)

	h.sendError(c, "r1", codeNotHost, "player is not the room host")

	f := lastFrame(t, c)
	if f.Type != game.TypeError {
		t.Fatalf("Expected error frame, got %s", f.Type)
	}
	if f.RoomID != "r1" {
		t.Errorf("Expected roomId r1, got %s", f.RoomID)
	}
	if f.Data["code"] != codeNotHost {
		t.Errorf("Expected code %s, got %v", codeNotHost, f.Data["code"])
	}
	if f.Data["message"] == "" {
		t.Error("Expected human-readable message")
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	c := newConn(&fakeSocket{})
	if !c.enqueue([]byte("{}")) {
		t.Error("Expected enqueue to succeed on an open connection")
	}

	c.shutdown()
	if c.enqueue([]byte("{}")) {
		t.Error("Expected enqueue to fail after shutdown")
	}
	if !c.Closed() {
		t.Error("Expected Closed to report true")
	}

	// Idempotent.
	c.shutdown()
}
