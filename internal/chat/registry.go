package chat

import "sync"

// conn is one registered connection.
type conn struct {
	id       string
	identity Identity
	recv     Receiver
}

// Registry tracks live connections, their bound identities and their room
// memberships. All mutation is serialized behind one mutex so fan-out
// snapshots never observe a half-applied change.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*conn
	rooms  map[string]map[string]*conn
	counts map[Identity]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*conn),
		rooms:  make(map[string]map[string]*conn),
		counts: make(map[Identity]int),
	}
}

// Register binds a connection to an identity and joins it to the rooms
// the identity implies. Re-registering a known connection is a no-op.
// It reports whether this was the identity's first live connection.
func (r *Registry) Register(connID string, identity Identity, recv Receiver) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return false
	}

	c := &conn{id: connID, identity: identity, recv: recv}
	r.conns[connID] = c
	for _, room := range identity.Rooms() {
		if r.rooms[room] == nil {
			r.rooms[room] = make(map[string]*conn)
		}
		r.rooms[room][connID] = c
	}
	r.counts[identity]++
	return r.counts[identity] == 1
}

// Unregister removes a connection from every room it belongs to. It is
// safe to call for connections that never registered. It reports the
// bound identity and whether this was the identity's last connection.
func (r *Registry) Unregister(connID string) (identity Identity, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return Identity{}, false, false
	}

	delete(r.conns, connID)
	for _, room := range c.identity.Rooms() {
		if members, ok := r.rooms[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}

	r.counts[c.identity]--
	if r.counts[c.identity] <= 0 {
		delete(r.counts, c.identity)
		return c.identity, true, true
	}
	return c.identity, false, true
}

// MembersOf returns the receivers currently in a room. The slice is a
// snapshot; delivery happens outside the lock.
func (r *Registry) MembersOf(room string) []Receiver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	result := make([]Receiver, 0, len(members))
	for _, c := range members {
		result = append(result, c.recv)
	}
	return result
}

// MembersExcept returns the receivers in a room, excluding one connection.
func (r *Registry) MembersExcept(room, exceptConnID string) []Receiver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	result := make([]Receiver, 0, len(members))
	for id, c := range members {
		if id == exceptConnID {
			continue
		}
		result = append(result, c.recv)
	}
	return result
}

// AllExcept returns every registered receiver except the given connection.
func (r *Registry) AllExcept(connID string) []Receiver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Receiver, 0, len(r.conns))
	for id, c := range r.conns {
		if id == connID {
			continue
		}
		result = append(result, c.recv)
	}
	return result
}

// Receiver returns the receiver bound to a connection.
func (r *Registry) Receiver(connID string) (Receiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return c.recv, true
}

// RoomsOf returns the rooms a connection currently belongs to.
func (r *Registry) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return c.identity.Rooms()
}

// ConnCount returns the number of live connections for an identity.
func (r *Registry) ConnCount(identity Identity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[identity]
}

// Count returns the total number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
