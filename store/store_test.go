package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveboard-sync-server/domain"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func sampleState(roomCode string) *domain.BoardState {
	state := domain.NewBoardState(roomCode, epoch)
	state.AppendDrawing(domain.Element{
		Type:      domain.KindFreehand,
		Points:    []domain.Point{{X: 0, Y: 0}, {X: 10.5, Y: 10.25}},
		Color:     "#000000",
		Thickness: 3,
	}, epoch)
	state.AppendDrawing(domain.Element{
		Type:  domain.KindEllipse,
		Start: &domain.Point{X: 4, Y: 4},
		End:   &domain.Point{X: 1, Y: 2},
		Color: "#ff0000",
	}, epoch)
	state.UpsertText(domain.TextLabel{ID: "t1", Position: domain.Point{X: 3, Y: 4}, Content: "hi", Color: "#00f", FontSize: 14}, epoch)
	if _, err := state.Undo(epoch.Add(time.Second)); err != nil {
		panic(err)
	}
	return state
}

func assertSameState(t *testing.T, want, got *domain.BoardState) {
	t.Helper()
	assert.Equal(t, want.RoomCode, got.RoomCode)
	assert.Equal(t, want.Current(), got.Current())
	assert.Equal(t, want.History, got.History)
	assert.Equal(t, want.Future, got.Future)
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated), "lastUpdated %v != %v", want.LastUpdated, got.LastUpdated)
}

// testPersister runs the contract every backend must satisfy.
func testPersister(t *testing.T, p Persister, roomCode string) {
	ctx := context.Background()

	_, err := p.Load(ctx, roomCode)
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	err = p.Save(ctx, domain.NewBoardState(roomCode, epoch))
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	empty := domain.NewBoardState(roomCode, epoch)
	require.NoError(t, p.Create(ctx, empty))
	require.ErrorIs(t, p.Create(ctx, empty), domain.ErrRoomExists)

	loaded, err := p.Load(ctx, roomCode)
	require.NoError(t, err)
	assertSameState(t, empty, loaded)
	assert.NotNil(t, loaded.Drawings)
	assert.NotNil(t, loaded.Texts)

	full := sampleState(roomCode)
	require.NoError(t, p.Save(ctx, full))

	loaded, err = p.Load(ctx, roomCode)
	require.NoError(t, err)
	assertSameState(t, full, loaded)
}

func TestCodec_RoundTrip(t *testing.T) {
	state := sampleState("AB12")

	data, err := Encode(state)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assertSameState(t, state, decoded)
	assert.Equal(t, domain.KindEllipse, decoded.Drawings[1].Type)
}

func TestCodec_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not a record"))
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	testPersister(t, NewMemoryStore(), "AB12")
}

func TestMemoryStore_Delete(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, domain.NewBoardState("AB12", epoch)))

	m.Delete("AB12")

	_, err := m.Load(ctx, "AB12")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "boards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	testPersister(t, s, "AB12")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	roomCode := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { s.rdb.Del(context.Background(), redisKeyPrefix+roomCode) })
	testPersister(t, s, roomCode)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	s, err := NewPostgresStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	roomCode := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() {
		s.pool.Exec(context.Background(), `DELETE FROM board_states WHERE room_code = $1`, roomCode)
	})
	testPersister(t, s, roomCode)
}

func TestOpen(t *testing.T) {
	p, err := Open(context.Background(), Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, p)

	_, err = Open(context.Background(), Options{Backend: "mongo"})
	assert.Error(t, err)
}
