package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"liveboard-sync-server/domain"
)

const submitTimeout = 15 * time.Second

// Membership is the part of the hub the handler needs.
type Membership interface {
	Join(roomCode string, conn domain.Connection, userID string) bool
	Leave(roomCode string, conn domain.Connection)
	LeaveAll(conn domain.Connection) []string
	IsMember(roomCode, connID string) bool
	RelayToOthers(roomCode, originatorID string, data []byte)
	SendTo(conn domain.Connection, data []byte)
}

// Rooms serializes board operations per room.
type Rooms interface {
	Submit(ctx context.Context, roomCode, originatorID string, op domain.Operation) (domain.Effect, error)
	Join(ctx context.Context, roomCode string, attach func(domain.Snapshot)) (domain.Snapshot, error)
}

// Handler decodes client events and routes them. Handle is called from a
// connection's read loop, so one connection's events are handled in order.
type Handler struct {
	members Membership
	rooms   Rooms
}

func NewHandler(members Membership, rooms Rooms) *Handler {
	return &Handler{members: members, rooms: rooms}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid message", "clientId", conn.ID(), "error", err)
		h.fail(conn, "", "invalid message")
		return
	}

	switch msg.Type {
	case TypePing:
		pong := domain.Message{Type: TypePong, Timestamp: msg.Timestamp, ClientID: conn.ID()}
		if resp, err := json.Marshal(pong); err == nil {
			h.members.SendTo(conn, resp)
		}
	case TypeJoinRoom:
		h.join(conn, msg)
	case TypeLeaveRoom:
		if msg.RoomCode == "" {
			h.fail(conn, "", domain.ErrMissingRoomCode.Error())
			return
		}
		h.members.Leave(msg.RoomCode, conn)
	case TypeCursor:
		h.cursor(conn, msg)
	case TypeDraw:
		if msg.Element == nil {
			h.fail(conn, msg.RoomCode, "element is required")
			return
		}
		h.submit(conn, msg.RoomCode, domain.Draw(*msg.Element))
	case TypeText:
		if msg.TextLabel == nil {
			h.fail(conn, msg.RoomCode, "textLabel is required")
			return
		}
		h.submit(conn, msg.RoomCode, domain.Text(*msg.TextLabel))
	case TypeUndo:
		h.submit(conn, msg.RoomCode, domain.Undo())
	case TypeRedo:
		h.submit(conn, msg.RoomCode, domain.Redo())
	case TypeClearBoard:
		h.submit(conn, msg.RoomCode, domain.Clear())
	default:
		slog.Debug("unknown message type", "clientId", conn.ID(), "type", msg.Type)
		h.fail(conn, msg.RoomCode, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// Disconnect removes conn from every room it joined.
func (h *Handler) Disconnect(conn domain.Connection) {
	if rooms := h.members.LeaveAll(conn); len(rooms) > 0 {
		slog.Debug("client disconnected", "clientId", conn.ID(), "rooms", rooms)
	}
}

func (h *Handler) join(conn domain.Connection, msg domain.Message) {
	if msg.RoomCode == "" {
		h.fail(conn, "", domain.ErrMissingRoomCode.Error())
		return
	}
	userID := msg.UserID
	if userID == "" {
		userID = conn.ID()
	}

	// attach runs on the room's actor, so the snapshot and the membership
	// change land between the same two mutations.
	attach := func(snap domain.Snapshot) {
		added := h.members.Join(msg.RoomCode, conn, userID)
		frame, err := encodeBoardState(msg.RoomCode, snap)
		if err != nil {
			slog.Error("marshal error", "room", msg.RoomCode, "error", err)
			return
		}
		h.members.SendTo(conn, frame)
		if added {
			joined, _ := json.Marshal(domain.Message{Type: TypeUserJoined, RoomCode: msg.RoomCode, UserID: userID})
			h.members.RelayToOthers(msg.RoomCode, conn.ID(), joined)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if _, err := h.rooms.Join(ctx, msg.RoomCode, attach); err != nil {
		slog.Warn("join failed", "room", msg.RoomCode, "clientId", conn.ID(), "error", err)
		h.fail(conn, msg.RoomCode, errorMessage(err))
	}
}

func (h *Handler) cursor(conn domain.Connection, msg domain.Message) {
	if !h.authorized(conn, msg.RoomCode) {
		return
	}
	if msg.X == nil || msg.Y == nil || !finite(*msg.X) || !finite(*msg.Y) {
		h.fail(conn, msg.RoomCode, "cursor needs finite x and y")
		return
	}
	out := domain.Message{
		Type:     TypeCursor,
		RoomCode: msg.RoomCode,
		UserID:   msg.UserID,
		X:        msg.X,
		Y:        msg.Y,
		ClientID: conn.ID(),
	}
	data, err := json.Marshal(out)
	if err != nil {
		slog.Warn("marshal error", "clientId", conn.ID(), "error", err)
		return
	}
	h.members.RelayToOthers(msg.RoomCode, conn.ID(), data)
}

func (h *Handler) submit(conn domain.Connection, roomCode string, op domain.Operation) {
	if !h.authorized(conn, roomCode) {
		return
	}
	if err := op.Validate(); err != nil {
		h.fail(conn, roomCode, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	effect, err := h.rooms.Submit(ctx, roomCode, conn.ID(), op)
	switch {
	case err != nil:
		reason := effect.Reason
		if reason == "" {
			reason = errorMessage(err)
		}
		h.fail(conn, roomCode, reason)
	case effect.Kind == domain.EffectRejected:
		h.members.SendTo(conn, encodeNotice(TypeInfo, roomCode, effect.Reason))
	}
}

func (h *Handler) authorized(conn domain.Connection, roomCode string) bool {
	if roomCode == "" {
		h.fail(conn, "", domain.ErrMissingRoomCode.Error())
		return false
	}
	if !h.members.IsMember(roomCode, conn.ID()) {
		h.fail(conn, roomCode, domain.ErrNotJoined.Error())
		return false
	}
	return true
}

func (h *Handler) fail(conn domain.Connection, roomCode, message string) {
	h.members.SendTo(conn, encodeNotice(TypeError, roomCode, message))
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return domain.ErrRoomNotFound.Error()
	case errors.Is(err, domain.ErrInvalidElement), errors.Is(err, domain.ErrInvalidText),
		errors.Is(err, domain.ErrMissingRoomCode):
		return err.Error()
	case errors.Is(err, domain.ErrOverloaded):
		return domain.ErrOverloaded.Error()
	case errors.Is(err, domain.ErrClosed):
		return "server shutting down"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	return "could not save board"
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
