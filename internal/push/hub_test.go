package push

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeConn struct {
	mu     sync.Mutex
	events []Event
	closed bool
	wrote  chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{wrote: make(chan struct{}, 16)}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := v.(Event); ok {
		c.events = append(c.events, event)
	}
	c.wrote <- struct{}{}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func waitForWrite(t *testing.T, c *fakeConn) {
	t.Helper()
	select {
	case <-c.wrote:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write")
	}
}

func TestNotifyDeliversToRegisteredOwner(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := newFakeConn()
	hub.Register("alice", conn)

	if !hub.Notify("alice", Event{Type: EventTrainingStatus, Status: "succeeded"}) {
		t.Fatal("expected delivery to registered owner")
	}
	waitForWrite(t, conn)

	events := conn.received()
	if len(events) != 1 || events[0].Status != "succeeded" {
		t.Fatalf("unexpected events: %#v", events)
	}
}

func TestNotifyDropsWhenOwnerAbsent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	if hub.Notify("nobody", Event{Type: EventTrainingStatus}) {
		t.Fatal("expected drop for unregistered owner")
	}
}

func TestRegisterSupersedesOlderConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	old := newFakeConn()
	hub.Register("alice", old)

	replacement := newFakeConn()
	hub.Register("alice", replacement)

	if !old.isClosed() {
		t.Fatal("superseded connection must be closed")
	}
	if hub.Len() != 1 {
		t.Fatalf("expected one registration, got %d", hub.Len())
	}

	hub.Notify("alice", Event{Type: EventTrainingStatus, Status: "failed"})
	waitForWrite(t, replacement)
	if len(old.received()) != 0 {
		t.Fatal("old connection must not receive events")
	}
	if len(replacement.received()) != 1 {
		t.Fatal("newest connection must receive the event")
	}
}

func TestUnregisterStaleClientKeepsNewerRegistration(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	stale := hub.Register("alice", newFakeConn())
	fresh := newFakeConn()
	hub.Register("alice", fresh)

	// Disconnect callback for the superseded handle must not evict the
	// replacement.
	hub.Unregister(stale)

	if !hub.Notify("alice", Event{Type: EventTrainingStatus}) {
		t.Fatal("newer registration must survive stale unregister")
	}
}

func TestUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Unregister(nil)

	client := hub.Register("bob", newFakeConn())
	hub.Unregister(client)
	hub.Unregister(client)

	if hub.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", hub.Len())
	}
}
