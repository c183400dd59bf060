package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testClient(username, roomID string, buf int) *Client {
	return &Client{
		userID:   uuid.New(),
		username: username,
		roomID:   roomID,
		send:     make(chan []byte, buf),
	}
}

func TestRegistry_RegisterFirstConnection(t *testing.T) {
	r := NewRegistry()

	c1 := testClient("alice", "general", 4)
	if first := r.Register(c1); !first {
		t.Error("Expected first connection flag for alice")
	}

	// Second tab for the same user
	c2 := testClient("alice", "general", 4)
	if first := r.Register(c2); first {
		t.Error("Expected non-first flag for alice's second connection")
	}

	c3 := testClient("bob", "general", 4)
	if first := r.Register(c3); !first {
		t.Error("Expected first connection flag for bob")
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry()

	c1 := testClient("alice", "general", 4)
	c2 := testClient("alice", "general", 4)
	r.Register(c1)
	r.Register(c2)

	if last := r.Unregister(c1); last {
		t.Error("Alice still has a live connection, last should be false")
	}
	if last := r.Unregister(c1); last {
		t.Error("Repeated unregister must be a no-op")
	}
	if last := r.Unregister(c2); !last {
		t.Error("Expected last-connection flag when alice's final connection goes")
	}

	if n := r.ConnectionCount(); n != 0 {
		t.Errorf("Expected no connections, got %d", n)
	}
	if n := r.RoomCount(); n != 0 {
		t.Errorf("Expected empty room to be dropped, got %d rooms", n)
	}
}

func TestRegistry_BroadcastOrderAndScope(t *testing.T) {
	r := NewRegistry()

	c1 := testClient("alice", "general", 8)
	c2 := testClient("bob", "general", 8)
	c3 := testClient("carol", "lobby", 8)
	r.Register(c1)
	r.Register(c2)
	r.Register(c3)

	r.Broadcast("general", map[string]string{"seq": "one"})
	r.Broadcast("general", map[string]string{"seq": "two"})

	for _, c := range []*Client{c1, c2} {
		for _, want := range []string{"one", "two"} {
			select {
			case b := <-c.send:
				var got map[string]string
				json.Unmarshal(b, &got)
				if got["seq"] != want {
					t.Fatalf("Client %s: expected seq %q, got %q", c.username, want, got["seq"])
				}
			case <-time.After(100 * time.Millisecond):
				t.Fatalf("Client %s: timed out waiting for broadcast", c.username)
			}
		}
	}

	select {
	case b := <-c3.send:
		t.Fatalf("Client in another room received broadcast: %s", b)
	default:
	}
}

func TestRegistry_BroadcastDropsOverflowedConnection(t *testing.T) {
	r := NewRegistry()

	slow := testClient("alice", "general", 1)
	r.Register(slow)

	r.Broadcast("general", map[string]string{"n": "1"})
	r.Broadcast("general", map[string]string{"n": "2"}) // overflows, severs the connection

	// The send channel is closed: one buffered frame, then closed.
	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Fatal("Expected overflowed connection's send channel to be closed")
	}

	// The connection stays registered until its read pump tears it down,
	// so the disconnect path still observes the last-connection flag.
	if n := r.ConnectionCount(); n != 1 {
		t.Fatalf("Expected connection to remain registered until unregister, got %d", n)
	}
	if last := r.Unregister(slow); !last {
		t.Error("Expected last-connection flag for alice's overflowed connection")
	}
	if users := r.ListUsers("general"); len(users) != 0 {
		t.Errorf("Expected empty room after unregister, got %v", users)
	}

	// Broadcasting again with the dead connection half-removed must not
	// panic or resurrect it.
	r.Broadcast("general", map[string]string{"n": "3"})
}

func TestRegistry_BroadcastSkipsClosedConnection(t *testing.T) {
	r := NewRegistry()

	dead := testClient("alice", "general", 1)
	live := testClient("bob", "general", 4)
	r.Register(dead)
	r.Register(live)
	dead.closeSend()

	r.Broadcast("general", map[string]string{"n": "1"})

	select {
	case b := <-live.send:
		var got map[string]string
		json.Unmarshal(b, &got)
		if got["n"] != "1" {
			t.Fatalf("Unexpected payload: %v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Live connection should still receive broadcasts")
	}
}

func TestRegistry_SendToUserReachesAllTabs(t *testing.T) {
	r := NewRegistry()

	c1 := testClient("alice", "general", 4)
	c2 := testClient("alice", "general", 4)
	c3 := testClient("bob", "general", 4)
	r.Register(c1)
	r.Register(c2)
	r.Register(c3)

	r.SendToUser("general", "alice", map[string]string{"hello": "world"})

	for _, c := range []*Client{c1, c2} {
		select {
		case b := <-c.send:
			var got map[string]string
			json.Unmarshal(b, &got)
			if got["hello"] != "world" {
				t.Fatalf("Unexpected payload: %v", got)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Timed out waiting for unicast")
		}
	}

	select {
	case b := <-c3.send:
		t.Fatalf("Unicast leaked to another user: %s", b)
	default:
	}
}

func TestRegistry_ListUsersAndRoomInfos(t *testing.T) {
	r := NewRegistry()

	r.Register(testClient("bob", "general", 1))
	r.Register(testClient("alice", "general", 1))
	r.Register(testClient("alice", "general", 1))
	r.Register(testClient("carol", "lobby", 1))

	users := r.ListUsers("general")
	if len(users) != 2 {
		t.Fatalf("Expected 2 distinct users, got %v", users)
	}
	if users[0] != "alice" || users[1] != "bob" {
		t.Errorf("Expected sorted [alice bob], got %v", users)
	}

	infos := r.RoomInfos()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(infos))
	}
	if infos[0].RoomID != "general" || infos[0].UserCount != 2 {
		t.Errorf("Unexpected room info: %+v", infos[0])
	}
	if infos[1].RoomID != "lobby" || infos[1].UserCount != 1 {
		t.Errorf("Unexpected room info: %+v", infos[1])
	}
}
