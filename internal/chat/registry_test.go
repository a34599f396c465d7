package chat

import (
	"sync"
	"testing"
)

// fakeReceiver collects delivered events for assertions.
type fakeReceiver struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeReceiver) Deliver(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return true
}

func (f *fakeReceiver) all() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeReceiver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeReceiver) last() (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return Event{}, false
	}
	return f.events[len(f.events)-1], true
}

func TestRegistryRegisterJoinsDerivedRooms(t *testing.T) {
	reg := NewRegistry()

	first := reg.Register("c1", Identity{UserID: "u1", Role: RoleUser}, &fakeReceiver{})
	if !first {
		t.Error("expected first registration to report first connection")
	}

	rooms := reg.RoomsOf("c1")
	if len(rooms) != 1 || rooms[0] != UserRoom("u1") {
		t.Errorf("expected user in room %q only, got %v", UserRoom("u1"), rooms)
	}
	if n := len(reg.MembersOf(UserRoom("u1"))); n != 1 {
		t.Errorf("expected 1 member in user room, got %d", n)
	}
	if n := len(reg.MembersOf(AdminRoom)); n != 0 {
		t.Errorf("expected empty admin room, got %d members", n)
	}
}

func TestRegistryAdminJoinsAdminRoom(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a1", Identity{UserID: "admin", Role: RoleAdmin}, &fakeReceiver{})

	rooms := reg.RoomsOf("a1")
	if len(rooms) != 1 || rooms[0] != AdminRoom {
		t.Errorf("expected admin in room %q only, got %v", AdminRoom, rooms)
	}
}

func TestRegistryDuplicateRegisterIsNoOp(t *testing.T) {
	reg := NewRegistry()
	id := Identity{UserID: "u1", Role: RoleUser}
	reg.Register("c1", id, &fakeReceiver{})

	if reg.Register("c1", id, &fakeReceiver{}) {
		t.Error("expected re-registration to report false")
	}
	if reg.Count() != 1 {
		t.Errorf("expected 1 connection, got %d", reg.Count())
	}
	if reg.ConnCount(id) != 1 {
		t.Errorf("expected conn count 1, got %d", reg.ConnCount(id))
	}
}

func TestRegistryMultipleConnectionsSameIdentity(t *testing.T) {
	reg := NewRegistry()
	id := Identity{UserID: "u1", Role: RoleUser}

	if !reg.Register("c1", id, &fakeReceiver{}) {
		t.Error("expected first connection to report first")
	}
	if reg.Register("c2", id, &fakeReceiver{}) {
		t.Error("expected second connection to report not-first")
	}
	if reg.ConnCount(id) != 2 {
		t.Errorf("expected conn count 2, got %d", reg.ConnCount(id))
	}

	if _, last, ok := reg.Unregister("c1"); !ok || last {
		t.Errorf("expected ok and not-last, got ok=%v last=%v", ok, last)
	}
	identity, last, ok := reg.Unregister("c2")
	if !ok || !last {
		t.Errorf("expected ok and last, got ok=%v last=%v", ok, last)
	}
	if identity != id {
		t.Errorf("expected identity %v, got %v", id, identity)
	}
	if reg.ConnCount(id) != 0 {
		t.Errorf("expected conn count 0, got %d", reg.ConnCount(id))
	}
}

func TestRegistryUnregisterUnknownIsSafe(t *testing.T) {
	reg := NewRegistry()
	if _, _, ok := reg.Unregister("ghost"); ok {
		t.Error("expected unregister of unknown connection to report not-ok")
	}
}

func TestRegistryUnregisterLeavesRooms(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", Identity{UserID: "u1", Role: RoleUser}, &fakeReceiver{})
	reg.Unregister("c1")

	if n := len(reg.MembersOf(UserRoom("u1"))); n != 0 {
		t.Errorf("expected empty room after unregister, got %d members", n)
	}
	if reg.RoomsOf("c1") != nil {
		t.Error("expected no rooms for unregistered connection")
	}
}

func TestRegistryMembersExcept(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a1", Identity{UserID: "admin1", Role: RoleAdmin}, &fakeReceiver{})
	reg.Register("a2", Identity{UserID: "admin2", Role: RoleAdmin}, &fakeReceiver{})

	if n := len(reg.MembersExcept(AdminRoom, "a1")); n != 1 {
		t.Errorf("expected 1 member excluding a1, got %d", n)
	}
	if n := len(reg.MembersExcept(AdminRoom, "other")); n != 2 {
		t.Errorf("expected 2 members excluding unknown conn, got %d", n)
	}
}

func TestRegistryAllExcept(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1", Identity{UserID: "u1", Role: RoleUser}, &fakeReceiver{})
	reg.Register("c2", Identity{UserID: "u2", Role: RoleUser}, &fakeReceiver{})
	reg.Register("a1", Identity{UserID: "admin", Role: RoleAdmin}, &fakeReceiver{})

	if n := len(reg.AllExcept("c1")); n != 2 {
		t.Errorf("expected 2 receivers excluding sender, got %d", n)
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := Identity{UserID: "u1", Role: RoleUser}
			connID := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				reg.Register(connID, id, &fakeReceiver{})
				reg.MembersOf(UserRoom("u1"))
				reg.Unregister(connID)
			}
		}(i)
	}
	wg.Wait()

	if reg.Count() != 0 {
		t.Errorf("expected empty registry after churn, got %d", reg.Count())
	}
	if n := len(reg.MembersOf(UserRoom("u1"))); n != 0 {
		t.Errorf("expected empty room after churn, got %d members", n)
	}
}
