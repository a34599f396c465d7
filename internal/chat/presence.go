package chat

import (
	"sync"
	"time"
)

// Status is a user's presence state as seen by administrators.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// PresenceRecord holds the last known presence for one user.
type PresenceRecord struct {
	Status    Status
	Activity  string
	ChangedAt time.Time
}

// Presence tracks per-user online state and free-text activity
// descriptions. Administrators receive incremental diffs only; a newly
// connected administrator fetches the full roster from the user
// directory over HTTP and reconciles it against the diffs it receives,
// last change wins.
type Presence struct {
	mu      sync.Mutex
	records map[string]PresenceRecord
	notify  func(Event)
}

// NewPresence creates a tracker that emits status-change events through
// notify. The callback must not block.
func NewPresence(notify func(Event)) *Presence {
	return &Presence{
		records: make(map[string]PresenceRecord),
		notify:  notify,
	}
}

// Online marks a user online. Call only when the user's first live
// connection registers; additional connections must not re-emit.
func (p *Presence) Online(userID string) {
	p.transition(userID, StatusOnline)
}

// Offline marks a user offline. Call only when the user's last live
// connection goes away.
func (p *Presence) Offline(userID string) {
	p.transition(userID, StatusOffline)
}

func (p *Presence) transition(userID string, status Status) {
	p.mu.Lock()
	rec := p.records[userID]
	rec.Status = status
	rec.ChangedAt = time.Now().UTC()
	p.records[userID] = rec
	ev := Event{Type: EventStatusChange, Payload: StatusChange{
		UserID:    userID,
		Status:    rec.Status,
		Activity:  rec.Activity,
		Timestamp: rec.ChangedAt,
	}}
	p.mu.Unlock()

	p.notify(ev)
}

// Update sets the activity description without changing online state.
// Online/offline is derived from the live-connection count, not from
// client-supplied status.
func (p *Presence) Update(userID, activity string) {
	p.mu.Lock()
	rec := p.records[userID]
	if rec.Status == "" {
		// An update can only arrive over a live connection.
		rec.Status = StatusOnline
	}
	rec.Activity = activity
	rec.ChangedAt = time.Now().UTC()
	p.records[userID] = rec
	ev := Event{Type: EventStatusChange, Payload: StatusChange{
		UserID:    userID,
		Status:    rec.Status,
		Activity:  rec.Activity,
		Timestamp: rec.ChangedAt,
	}}
	p.mu.Unlock()

	p.notify(ev)
}

// Record returns the last known presence for a user.
func (p *Presence) Record(userID string) (PresenceRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[userID]
	return rec, ok
}

// OnlineCount returns the number of users currently marked online.
func (p *Presence) OnlineCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, rec := range p.records {
		if rec.Status == StatusOnline {
			n++
		}
	}
	return n
}
