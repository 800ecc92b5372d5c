package websocket

import "testing"

func TestRegistryBind(t *testing.T) {
	r := NewRegistry()
	c := newConn(&fakeSocket{})

	r.Register(c)
	if r.CountAll() != 1 {
		t.Errorf("Expected 1 tracked connection, got %d", r.CountAll())
	}

	r.Bind("p1", "r1", c)
	if c.PlayerID() != "p1" || c.RoomID() != "r1" {
		t.Error("Bind must stamp the connection with its identity")
	}

	bound, ok := r.Connection("p1")
	if !ok || bound != c {
		t.Error("Expected the bound connection to be retrievable")
	}
	if roomID, ok := r.RoomOf("p1"); !ok || roomID != "r1" {
		t.Errorf("Expected room r1, got %q", roomID)
	}

	members := r.MembersInRoom("r1")
	if len(members) != 1 || members[0] != "p1" {
		t.Errorf("Expected members [p1], got %v", members)
	}
}

func TestRegistryRebind(t *testing.T) {
	r := NewRegistry()
	old := newConn(&fakeSocket{})
	replacement := newConn(&fakeSocket{})
	r.Register(old)
	r.Register(replacement)

	r.Bind("p1", "r1", old)
	r.Bind("p1", "r1", replacement)

	bound, _ := r.Connection("p1")
	if bound != replacement {
		t.Error("Rebind must point the player at the new connection")
	}

	// Removing the superseded connection leaves the binding alone.
	r.Remove(old)
	if bound, ok := r.Connection("p1"); !ok || bound != replacement {
		t.Error("Removing a stale connection must not unbind the player")
	}
	if len(r.MembersInRoom("r1")) != 1 {
		t.Errorf("Expected 1 member, got %d", len(r.MembersInRoom("r1")))
	}

	// Removing the live connection unbinds.
	r.Remove(replacement)
	if _, ok := r.Connection("p1"); ok {
		t.Error("Expected player to be unbound")
	}
	if len(r.MembersInRoom("r1")) != 0 {
		t.Error("Expected empty room")
	}
}

func TestRegistryUnbind(t *testing.T) {
	r := NewRegistry()
	c := newConn(&fakeSocket{})
	r.Register(c)
	r.Bind("p1", "r1", c)

	got, ok := r.Unbind("p1")
	if !ok || got != c {
		t.Error("Expected Unbind to return the bound connection")
	}
	if c.PlayerID() != "" || c.RoomID() != "" {
		t.Error("Unbind must clear the connection's identity")
	}
	if _, ok := r.RoomOf("p1"); ok {
		t.Error("Expected player-room entry to be gone")
	}
	if len(r.RoomIDs()) != 0 {
		t.Errorf("Expected no rooms, got %v", r.RoomIDs())
	}
	if r.CountAll() != 1 {
		t.Error("Unbind must keep the raw connection tracked")
	}

	if _, ok := r.Unbind("p1"); ok {
		t.Error("Unbinding twice must report no connection")
	}
}

func TestRegistryRoomMove(t *testing.T) {
	r := NewRegistry()
	c := newConn(&fakeSocket{})
	r.Register(c)

	r.Bind("p1", "r1", c)
	r.Bind("p1", "r2", c)

	if len(r.MembersInRoom("r1")) != 0 {
		t.Error("Expected the old room to be empty after the move")
	}
	if members := r.MembersInRoom("r2"); len(members) != 1 || members[0] != "p1" {
		t.Errorf("Expected members [p1] in r2, got %v", members)
	}
	if ids := r.RoomIDs(); len(ids) != 1 || ids[0] != "r2" {
		t.Errorf("Expected room list [r2], got %v", ids)
	}
}

func TestRegistryMembersSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"zz", "aa", "mm"} {
		c := newConn(&fakeSocket{})
		r.Register(c)
		r.Bind(id, "r1", c)
	}

	members := r.MembersInRoom("r1")
	want := []string{"aa", "mm", "zz"}
	for i, id := range want {
		if members[i] != id {
			t.Fatalf("Expected sorted members %v, got %v", want, members)
		}
	}

	if len(r.ConnectionsInRoom("r1")) != 3 {
		t.Errorf("Expected 3 connections, got %d", len(r.ConnectionsInRoom("r1")))
	}
}
