package chat

import "time"

// EventType names an outbound notification pushed to connected clients.
type EventType string

const (
	EventNewMessage     EventType = "new_message"
	EventMessageSent    EventType = "message_sent"
	EventAdminBroadcast EventType = "admin_broadcast"
	EventStatusChange   EventType = "user_status_change"
	EventUserTyping     EventType = "user_typing"
	EventAdminTyping    EventType = "admin_typing"
)

// Event is a single outbound notification.
type Event struct {
	Type    EventType
	Payload any
}

// Receiver consumes outbound events for one connection. Deliver must not
// block; it reports whether the event was queued. Delivery is best-effort
// and at-most-once: a false return is never retried.
type Receiver interface {
	Deliver(ev Event) bool
}

// Message is the transient value routed between a user and an
// administrator. It is never persisted; a newly joined connection starts
// with no history.
type Message struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	To          string    `json:"to,omitempty"`
	FromRole    Role      `json:"from_role"`
	ToRole      Role      `json:"to_role,omitempty"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	IsBroadcast bool      `json:"is_broadcast,omitempty"`
}

// StatusChange is pushed to the administrators room when a user's
// presence changes.
type StatusChange struct {
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Activity  string    `json:"activity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingSignal is pushed to the party opposite the one composing.
type TypingSignal struct {
	UserID   string `json:"user_id,omitempty"`
	IsTyping bool   `json:"is_typing"`
}
