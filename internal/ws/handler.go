package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/evanmorse/careertrack/internal/chat"
)

// joinTimeout is the max time a client has to send its join event after
// the WebSocket handshake completes.
const joinTimeout = 10 * time.Second

// Handler upgrades HTTP requests to WebSocket connections and pumps
// inbound operations into the chat gateway.
type Handler struct {
	gateway *chat.Gateway
	conns   *ConnManager
}

// NewHandler creates a WebSocket Handler over the given gateway and
// connection manager.
func NewHandler(gateway *chat.Gateway, conns *ConnManager) *Handler {
	return &Handler{
		gateway: gateway,
		conns:   conns,
	}
}

// ConnMgr returns the connection manager.
func (h *Handler) ConnMgr() *ConnManager { return h.conns }

// ServeHTTP upgrades the HTTP connection to a WebSocket and runs the
// read loop for the client.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow all origins in dev; tighten in production.
	})
	if err != nil {
		log.Warn().Err(err).Msg("ws: accept error")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	client := &Client{
		conn: conn,
		id:   uuid.NewString(),
		mgr:  h.conns,
	}

	connCtx := h.conns.Add(client)
	defer h.conns.Remove(client)

	if !h.handleJoin(r.Context(), client) {
		return
	}
	defer h.gateway.Dispatch(client.id, nil, chat.Leave{})

	h.readLoop(r.Context(), connCtx, client)
}

// handleJoin reads the first event from the client, which must be a
// "join" envelope carrying the identity the auth layer resolved. The
// identity is trusted here; there is no re-validation.
func (h *Handler) handleJoin(ctx context.Context, client *Client) bool {
	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	_, data, err := client.conn.Read(joinCtx)
	if err != nil {
		log.Debug().Err(err).Str("conn", client.id).Msg("ws: read join error")
		return false
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		closeWithError(client.conn, "invalid JSON")
		return false
	}
	if env.Type != "join" {
		closeWithError(client.conn, "first event must be type 'join'")
		return false
	}

	var payload joinPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		closeWithError(client.conn, "invalid join payload")
		return false
	}
	role := chat.Role(payload.Role)
	if payload.UserID == "" || !role.Valid() {
		closeWithError(client.conn, "user_id and a valid role are required")
		return false
	}

	client.identity = chat.Identity{UserID: payload.UserID, Role: role}
	h.gateway.Dispatch(client.id, client, chat.Join{UserID: payload.UserID, Role: role})
	return true
}

// readLoop reads events from the client until the connection closes or
// the connection manager cancels connCtx. Malformed events are dropped;
// nothing is reported back to the client.
func (h *Handler) readLoop(ctx context.Context, connCtx context.Context, client *Client) {
	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		_, data, err := client.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancelled.
			return
		}

		// Mark activity so idle reaping doesn't close active connections.
		h.conns.TouchActivity(client)

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Str("conn", client.id).Msg("ws: invalid JSON dropped")
			continue
		}

		op, err := decodeOp(env)
		if err != nil {
			log.Warn().Err(err).Str("conn", client.id).Str("type", env.Type).Msg("ws: malformed event dropped")
			continue
		}

		h.gateway.Dispatch(client.id, client, op)
	}
}

// Inbound payloads.

type joinPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type privateMessagePayload struct {
	From     string `json:"from"`
	To       string `json:"to"`
	FromRole string `json:"from_role"`
	ToRole   string `json:"to_role"`
	Body     string `json:"body"`
}

type broadcastPayload struct {
	AdminID string `json:"admin_id"`
	Body    string `json:"body"`
}

type statusUpdatePayload struct {
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
	Activity string `json:"activity"`
}

type typingPayload struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
	ToRole   string `json:"to_role"`
}

var errMissingField = errors.New("missing required field")

// decodeOp maps a wire envelope onto the closed set of chat operations.
// A join after the handshake is decoded too; the registry treats the
// redundant registration as a no-op.
func decodeOp(env Envelope) (chat.Op, error) {
	switch env.Type {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.UserID == "" || !chat.Role(p.Role).Valid() {
			return nil, errMissingField
		}
		return chat.Join{UserID: p.UserID, Role: chat.Role(p.Role)}, nil

	case "private_message":
		var p privateMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.From == "" || p.To == "" || p.Body == "" || !chat.Role(p.ToRole).Valid() {
			return nil, errMissingField
		}
		return chat.PrivateMessage{
			From:     p.From,
			To:       p.To,
			FromRole: chat.Role(p.FromRole),
			ToRole:   chat.Role(p.ToRole),
			Body:     p.Body,
		}, nil

	case "admin_broadcast":
		var p broadcastPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.AdminID == "" || p.Body == "" {
			return nil, errMissingField
		}
		return chat.Broadcast{AdminID: p.AdminID, Body: p.Body}, nil

	case "user_status_update":
		var p statusUpdatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.UserID == "" {
			return nil, errMissingField
		}
		return chat.PresenceUpdate{UserID: p.UserID, Status: p.Status, Activity: p.Activity}, nil

	case "typing":
		var p typingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.UserID == "" || !chat.Role(p.ToRole).Valid() {
			return nil, errMissingField
		}
		return chat.TypingChange{UserID: p.UserID, IsTyping: p.IsTyping, ToRole: chat.Role(p.ToRole)}, nil

	default:
		return nil, errors.New("unknown event type")
	}
}

func closeWithError(conn *websocket.Conn, reason string) {
	conn.Close(websocket.StatusPolicyViolation, reason)
}
