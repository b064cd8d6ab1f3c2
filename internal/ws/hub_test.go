package ws

import (
	"testing"
	"time"

	"github.com/manpreetbhatti/lattice/whiteboard/internal/protocol"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func readFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatalf("Send channel of %s closed", c.id)
		}
		return data
	case <-time.After(time.Second):
		t.Fatalf("Client %s received nothing", c.id)
	}
	return nil
}

func expectNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Errorf("Client %s should not have received %s", c.id, data)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCreation(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("Hub should not be nil")
	}
	if hub.rooms == nil {
		t.Error("Hub rooms map should be initialized")
	}
	if hub.GetRoomCount() != 0 {
		t.Errorf("Expected 0 rooms, got %d", hub.GetRoomCount())
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
	if len(hub.GetActiveRooms()) != 0 {
		t.Error("Expected no active rooms")
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := startHub(t)

	a := newClient(nil, "room-1", "a", nil)
	b := newClient(nil, "room-1", "b", nil)
	c := newClient(nil, "room-2", "c", nil)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	waitFor(t, "three clients", func() bool { return hub.GetClientCount() == 3 })
	if hub.GetRoomCount() != 2 {
		t.Errorf("Expected 2 rooms, got %d", hub.GetRoomCount())
	}
	if got := hub.GetActiveRooms()["room-1"]; got != 2 {
		t.Errorf("Expected 2 clients in room-1, got %d", got)
	}

	hub.Unregister(c)
	waitFor(t, "room-2 to close", func() bool { return hub.GetRoomCount() == 1 })

	if _, ok := <-c.send; ok {
		t.Error("Unregister should close the send channel")
	}

	// A second unregister is ignored
	hub.Unregister(c)
	hub.Unregister(a)
	waitFor(t, "one client", func() bool { return hub.GetClientCount() == 1 })
}

func TestHubAudience(t *testing.T) {
	hub := startHub(t)

	a := newClient(nil, "room", "a", nil)
	b := newClient(nil, "room", "b", nil)
	other := newClient(nil, "elsewhere", "x", nil)
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.Broadcast(&Message{RoomID: "room", Data: []byte("others"), Sender: a, Audience: protocol.Others})
	if got := string(readFrame(t, b)); got != "others" {
		t.Errorf("Expected 'others', got '%s'", got)
	}
	expectNoFrame(t, a)

	hub.Broadcast(&Message{RoomID: "room", Data: []byte("everyone"), Sender: a, Audience: protocol.Everyone})
	if got := string(readFrame(t, a)); got != "everyone" {
		t.Errorf("Sender expected 'everyone', got '%s'", got)
	}
	if got := string(readFrame(t, b)); got != "everyone" {
		t.Errorf("Peer expected 'everyone', got '%s'", got)
	}

	hub.Broadcast(&Message{RoomID: "room", Data: []byte("origin"), Sender: b, Audience: protocol.Origin})
	if got := string(readFrame(t, b)); got != "origin" {
		t.Errorf("Expected 'origin', got '%s'", got)
	}
	expectNoFrame(t, a)

	expectNoFrame(t, other)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := &Client{send: make(chan []byte, 1), roomID: "room", id: "slow"}
	fast := newClient(nil, "room", "fast", nil)
	hub.Register(slow)
	hub.Register(fast)

	for i := 0; i < 3; i++ {
		hub.Broadcast(&Message{RoomID: "room", Data: []byte{byte('0' + i)}, Audience: protocol.Everyone})
	}

	waitFor(t, "slow client eviction", func() bool { return hub.GetClientCount() == 1 })

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("Slow client's send channel should be closed")
	}
	for i := 0; i < 3; i++ {
		if got := readFrame(t, fast); got[0] != byte('0'+i) {
			t.Errorf("Expected frame %d in order, got %s", i, got)
		}
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newClient(nil, "room", "a", nil)
	hub.Register(a)
	hub.Stop()

	select {
	case _, ok := <-a.send:
		if ok {
			t.Error("Expected closed send channel after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not close client send channels")
	}

	// Calls after Stop return instead of blocking
	hub.Broadcast(&Message{RoomID: "room", Data: []byte("late")})
	hub.Register(newClient(nil, "room", "b", nil))
	hub.Stop()
}
