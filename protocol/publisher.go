package protocol

import (
	"encoding/json"
	"log/slog"

	"liveboard-sync-server/domain"
)

// Publisher encodes committed effects and hands them to the broadcaster.
// Relay effects skip the originator; snapshot effects reach every member.
type Publisher struct {
	broadcaster domain.Broadcaster
}

func NewPublisher(b domain.Broadcaster) *Publisher {
	return &Publisher{broadcaster: b}
}

func (p *Publisher) Publish(roomCode, originatorID string, effect domain.Effect) {
	switch effect.Kind {
	case domain.EffectRelay:
		msg := domain.Message{RoomCode: roomCode, ClientID: originatorID}
		switch {
		case effect.Element != nil:
			msg.Type = TypeDraw
			msg.Element = effect.Element
		case effect.TextLabel != nil:
			msg.Type = TypeText
			msg.TextLabel = effect.TextLabel
		default:
			slog.Warn("empty relay effect", "room", roomCode)
			return
		}
		data, err := json.Marshal(msg)
		if err != nil {
			slog.Error("marshal error", "room", roomCode, "error", err)
			return
		}
		p.broadcaster.RelayToOthers(roomCode, originatorID, data)

	case domain.EffectSnapshot:
		data, err := encodeBoardState(roomCode, effect.Snapshot)
		if err != nil {
			slog.Error("marshal error", "room", roomCode, "error", err)
			return
		}
		p.broadcaster.BroadcastToAll(roomCode, data)
	}
}
