package chat

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Op is the closed set of inbound operations a connection can submit.
type Op interface{ isOp() }

// Join binds the connection to an identity and joins its derived rooms.
// The identity is trusted; the auth layer has already resolved it.
type Join struct {
	UserID string
	Role   Role
}

// PrivateMessage routes a one-to-one message between a user and an
// administrator.
type PrivateMessage struct {
	From     string
	To       string
	FromRole Role
	ToRole   Role
	Body     string
}

// Broadcast fans an administrative announcement out to everyone except
// the sender.
type Broadcast struct {
	AdminID string
	Body    string
}

// PresenceUpdate sets the sender's activity description. The Status
// field is accepted on the wire but ignored: online/offline is derived
// from the live-connection count.
type PresenceUpdate struct {
	UserID   string
	Status   string
	Activity string
}

// TypingChange flips the sender's composing indicator.
type TypingChange struct {
	UserID   string
	IsTyping bool
	ToRole   Role
}

// Leave tears the connection's registration down.
type Leave struct{}

func (Join) isOp()           {}
func (PrivateMessage) isOp() {}
func (Broadcast) isOp()      {}
func (PresenceUpdate) isOp() {}
func (TypingChange) isOp()   {}
func (Leave) isOp()          {}

// Gateway owns the registry, presence tracker, typing indicator and
// router, and dispatches inbound operations to them. It is the single
// in-process authority over all realtime state.
type Gateway struct {
	reg      *Registry
	presence *Presence
	typing   *Typing
	router   *Router
}

// NewGateway wires a gateway with the given typing expiry. A
// non-positive expiry selects DefaultTypingExpiry.
func NewGateway(typingExpiry time.Duration) *Gateway {
	g := &Gateway{reg: NewRegistry()}
	g.router = NewRouter(g.reg)
	g.presence = NewPresence(g.notifyAdmins)
	g.typing = NewTyping(typingExpiry, g.notifyTyping)
	return g
}

// Registry exposes the connection registry.
func (g *Gateway) Registry() *Registry { return g.reg }

// Presence exposes the presence tracker.
func (g *Gateway) Presence() *Presence { return g.presence }

// Close cancels pending typing timers. Registered connections are torn
// down by their own transports.
func (g *Gateway) Close() {
	g.typing.Stop()
}

// notifyAdmins delivers an event to every administrator connection.
func (g *Gateway) notifyAdmins(ev Event) {
	for _, r := range g.reg.MembersOf(AdminRoom) {
		r.Deliver(ev)
	}
}

// notifyTyping delivers a typing signal to the room opposite the
// composing party.
func (g *Gateway) notifyTyping(userID string, toRole Role, isTyping bool) {
	if toRole == RoleAdmin {
		ev := Event{Type: EventUserTyping, Payload: TypingSignal{UserID: userID, IsTyping: isTyping}}
		for _, r := range g.reg.MembersOf(AdminRoom) {
			r.Deliver(ev)
		}
		return
	}
	ev := Event{Type: EventAdminTyping, Payload: TypingSignal{IsTyping: isTyping}}
	for _, r := range g.reg.MembersOf(UserRoom(userID)) {
		r.Deliver(ev)
	}
}

// Dispatch applies one inbound operation for a connection. Malformed
// operations are dropped and logged; nothing here surfaces an error to
// the caller. recv is only consulted for Join.
func (g *Gateway) Dispatch(connID string, recv Receiver, op Op) {
	switch op := op.(type) {
	case Join:
		if op.UserID == "" || !op.Role.Valid() || recv == nil {
			log.Warn().Str("conn", connID).Msg("chat: malformed join dropped")
			return
		}
		first := g.reg.Register(connID, Identity{UserID: op.UserID, Role: op.Role}, recv)
		// Presence tracks users as seen by administrators; admin
		// connections never emit status changes.
		if first && op.Role == RoleUser {
			g.presence.Online(op.UserID)
		}
		log.Debug().Str("conn", connID).Str("user", op.UserID).Str("role", string(op.Role)).Msg("chat: joined")

	case PrivateMessage:
		if op.From == "" || op.To == "" || op.Body == "" || !op.ToRole.Valid() {
			log.Warn().Str("conn", connID).Msg("chat: malformed private message dropped")
			return
		}
		g.router.SendPrivate(connID, op.From, op.FromRole, op.To, op.ToRole, op.Body)

	case Broadcast:
		if op.AdminID == "" || op.Body == "" {
			log.Warn().Str("conn", connID).Msg("chat: malformed broadcast dropped")
			return
		}
		g.router.Broadcast(connID, op.AdminID, op.Body)

	case PresenceUpdate:
		if op.UserID == "" {
			log.Warn().Str("conn", connID).Msg("chat: malformed status update dropped")
			return
		}
		g.presence.Update(op.UserID, op.Activity)

	case TypingChange:
		if op.UserID == "" || !op.ToRole.Valid() {
			log.Warn().Str("conn", connID).Msg("chat: malformed typing change dropped")
			return
		}
		g.typing.Set(op.UserID, op.ToRole, op.IsTyping)

	case Leave:
		if identity, last, ok := g.reg.Unregister(connID); ok && last && identity.Role == RoleUser {
			g.presence.Offline(identity.UserID)
		}

	default:
		log.Warn().Str("conn", connID).Msg("chat: unknown operation dropped")
	}
}
