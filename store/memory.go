package store

import (
	"context"
	"sync"

	"liveboard-sync-server/domain"
)

// MemoryStore keeps encoded records in a map. Encoding on every write gives
// it the same copy semantics as the networked backends.
type MemoryStore struct {
	records map[string][]byte
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	m.mu.RLock()
	data, ok := m.records[roomCode]
	m.mu.RUnlock()

	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return Decode(data)
}

func (m *MemoryStore) Create(ctx context.Context, state *domain.BoardState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[state.RoomCode]; ok {
		return domain.ErrRoomExists
	}
	m.records[state.RoomCode] = data
	return nil
}

func (m *MemoryStore) Save(ctx context.Context, state *domain.BoardState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[state.RoomCode]; !ok {
		return domain.ErrRoomNotFound
	}
	m.records[state.RoomCode] = data
	return nil
}

// Delete removes a record. Room expiry lives outside this service; tests use
// it to simulate an external deletion.
func (m *MemoryStore) Delete(roomCode string) {
	m.mu.Lock()
	delete(m.records, roomCode)
	m.mu.Unlock()
}

func (m *MemoryStore) Close() error { return nil }
