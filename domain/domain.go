package domain

type Message struct {
	Type      string     `json:"type"`
	RoomCode  string     `json:"roomCode,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Element   *Element   `json:"element,omitempty"`
	TextLabel *TextLabel `json:"textLabel,omitempty"`
	X         *float64   `json:"x,omitempty"`
	Y         *float64   `json:"y,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
	ClientID  string     `json:"clientId,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Broadcaster delivers encoded frames to the members of a room.
type Broadcaster interface {
	RelayToOthers(roomCode, originatorID string, data []byte)
	BroadcastToAll(roomCode string, data []byte)
}

// EffectPublisher turns a committed effect into frames for the room.
type EffectPublisher interface {
	Publish(roomCode, originatorID string, effect Effect)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
	Disconnect(conn Connection)
}
