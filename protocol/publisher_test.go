package protocol

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard-sync-server/domain"
)

type mockBroadcaster struct {
	calls []broadcastCall
	mu    sync.Mutex
}

type broadcastCall struct {
	room     string
	senderID string
	toAll    bool
	data     []byte
}

func (m *mockBroadcaster) RelayToOthers(roomCode, originatorID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, broadcastCall{room: roomCode, senderID: originatorID, data: data})
}

func (m *mockBroadcaster) BroadcastToAll(roomCode string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, broadcastCall{room: roomCode, toAll: true, data: data})
}

func (m *mockBroadcaster) getCalls() []broadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestPublisher_Publish(t *testing.T) {
	snap := domain.EmptySnapshot()
	snap.Drawings = append(snap.Drawings, *stroke(3))

	tests := []struct {
		name      string
		effect    domain.Effect
		wantToAll bool
		wantJSON  string
	}{
		{
			name:     "draw relays to others",
			effect:   domain.Effect{Kind: domain.EffectRelay, Element: stroke(1)},
			wantJSON: `{"type":"draw","roomCode":"AB12","clientId":"A","element":{"type":"freehand","points":[{"x":0,"y":0},{"x":1,"y":1}],"color":"#ff0000","thickness":2}}`,
		},
		{
			name:     "text relays to others",
			effect:   domain.Effect{Kind: domain.EffectRelay, TextLabel: &domain.TextLabel{ID: "t1", Content: "hi", Color: "#000"}},
			wantJSON: `{"type":"text","roomCode":"AB12","clientId":"A","textLabel":{"id":"t1","position":{"x":0,"y":0},"content":"hi","color":"#000"}}`,
		},
		{
			name:      "snapshot goes to everyone",
			effect:    domain.Effect{Kind: domain.EffectSnapshot, Snapshot: snap},
			wantToAll: true,
			wantJSON:  `{"type":"board_state","roomCode":"AB12","drawings":[{"type":"freehand","points":[{"x":0,"y":0},{"x":3,"y":3}],"color":"#ff0000","thickness":2}],"texts":{}}`,
		},
		{
			name:      "zero snapshot still has containers",
			effect:    domain.Effect{Kind: domain.EffectSnapshot},
			wantToAll: true,
			wantJSON:  `{"type":"board_state","roomCode":"AB12","drawings":[],"texts":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBroadcaster{}
			NewPublisher(b).Publish("AB12", "A", tt.effect)

			calls := b.getCalls()
			require.Len(t, calls, 1)
			assert.Equal(t, "AB12", calls[0].room)
			assert.Equal(t, tt.wantToAll, calls[0].toAll)
			if !tt.wantToAll {
				assert.Equal(t, "A", calls[0].senderID)
			}
			assert.JSONEq(t, tt.wantJSON, string(calls[0].data))
		})
	}
}

func TestPublisher_IgnoresRejected(t *testing.T) {
	b := &mockBroadcaster{}
	p := NewPublisher(b)

	p.Publish("AB12", "A", domain.Rejected("nothing to undo"))
	p.Publish("AB12", "A", domain.Effect{Kind: domain.EffectRelay})

	assert.Empty(t, b.getCalls())
}

func TestEncodeNotice(t *testing.T) {
	var msg domain.Message
	require.NoError(t, json.Unmarshal(encodeNotice(TypeInfo, "AB12", "nothing to redo"), &msg))
	assert.Equal(t, domain.Message{Type: TypeInfo, RoomCode: "AB12", Message: "nothing to redo"}, msg)
}
