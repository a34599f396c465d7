package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Router resolves the target room for one-to-one messages and fans
// administrative broadcasts out to every connection. Delivery is
// fire-and-forget and at-most-once: an empty target room means the
// message is silently dropped, and the sender is never told.
type Router struct {
	reg *Registry
}

// NewRouter creates a Router over the given registry.
func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// SendPrivate routes a one-to-one message to every connection in the
// recipient's room and echoes a sent confirmation back to the
// originating connection only. The originating connection never receives
// the room copy, even when it belongs to the target room.
func (rt *Router) SendPrivate(senderConn, from string, fromRole Role, to string, toRole Role, body string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		FromRole:  fromRole,
		ToRole:    toRole,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}

	room := UserRoom(to)
	if toRole == RoleAdmin {
		room = AdminRoom
	}

	members := rt.reg.MembersExcept(room, senderConn)
	for _, r := range members {
		r.Deliver(Event{Type: EventNewMessage, Payload: msg})
	}
	if len(members) == 0 {
		log.Debug().Str("room", room).Str("from", from).Msg("chat: recipient room empty, message dropped")
	}

	if recv, ok := rt.reg.Receiver(senderConn); ok {
		recv.Deliver(Event{Type: EventMessageSent, Payload: msg})
	}
	return msg
}

// Broadcast fans an administrative announcement out to every registered
// connection except the originating one, regardless of role or room.
// The origin renders its own copy locally and receives nothing from the
// server.
func (rt *Router) Broadcast(senderConn, adminID, body string) Message {
	msg := Message{
		ID:          uuid.NewString(),
		From:        adminID,
		FromRole:    RoleAdmin,
		Body:        body,
		Timestamp:   time.Now().UTC(),
		IsBroadcast: true,
	}

	for _, r := range rt.reg.AllExcept(senderConn) {
		r.Deliver(Event{Type: EventAdminBroadcast, Payload: msg})
	}
	return msg
}
