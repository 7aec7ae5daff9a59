package protocol

import (
	"encoding/json"

	"liveboard-sync-server/domain"
)

// Event types carried in the "type" field.
const (
	TypeJoinRoom   = "join_room"
	TypeLeaveRoom  = "leave_room"
	TypeDraw       = "draw"
	TypeText       = "text"
	TypeCursor     = "cursor"
	TypeUndo       = "undo"
	TypeRedo       = "redo"
	TypeClearBoard = "clear_board"
	TypePing       = "ping"

	TypePong       = "pong"
	TypeBoardState = "board_state"
	TypeUserJoined = "user_joined"
	TypeError      = "error"
	TypeInfo       = "info"
)

// BoardStateFrame is the full board sent on join and after undo, redo and
// clear. Drawings and texts are always present, even when empty.
type BoardStateFrame struct {
	Type     string                      `json:"type"`
	RoomCode string                      `json:"roomCode"`
	Drawings []domain.Element            `json:"drawings"`
	Texts    map[string]domain.TextLabel `json:"texts"`
}

func encodeBoardState(roomCode string, snap domain.Snapshot) ([]byte, error) {
	snap = snap.Clone()
	return json.Marshal(BoardStateFrame{
		Type:     TypeBoardState,
		RoomCode: roomCode,
		Drawings: snap.Drawings,
		Texts:    snap.Texts,
	})
}

func encodeNotice(kind, roomCode, message string) []byte {
	data, _ := json.Marshal(domain.Message{Type: kind, RoomCode: roomCode, Message: message})
	return data
}
