package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"liveboard-sync-server/domain"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS board_states (
	room_code    TEXT PRIMARY KEY,
	state        BLOB NOT NULL,
	last_updated INTEGER NOT NULL
)`

type SQLiteStore struct {
	pool *sqlitex.Pool
	path string
}

// NewSQLiteStore opens a connection pool on path, creating the file and the
// schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    4,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", path, err)
	}
	slog.Info("sqlite store opened", "path", path)
	return &SQLiteStore{pool: pool, path: path}, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		sqliteSchema,
	} {
		if err := sqlitex.ExecuteTransient(conn, stmt, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var data []byte
	found := false
	err = sqlitex.Execute(conn, `SELECT state FROM board_states WHERE room_code = ?`, &sqlitex.ExecOptions{
		Args: []any{roomCode},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			data = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, data)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", roomCode, err)
	}
	if !found {
		return nil, domain.ErrRoomNotFound
	}
	return Decode(data)
}

func (s *SQLiteStore) Create(ctx context.Context, state *domain.BoardState) error {
	return s.write(ctx, state,
		`INSERT INTO board_states (room_code, state, last_updated) VALUES (?, ?, ?)
		 ON CONFLICT (room_code) DO NOTHING`,
		domain.ErrRoomExists)
}

func (s *SQLiteStore) Save(ctx context.Context, state *domain.BoardState) error {
	return s.write(ctx, state,
		`UPDATE board_states SET state = ?2, last_updated = ?3 WHERE room_code = ?1`,
		domain.ErrRoomNotFound)
}

// write runs query with (room_code, state, last_updated) and returns
// unchanged when no row was affected.
func (s *SQLiteStore) write(ctx context.Context, state *domain.BoardState, query string, unchanged error) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{state.RoomCode, data, state.LastUpdated.UnixMilli()},
	})
	if err != nil {
		return fmt.Errorf("sqlite write %s: %w", state.RoomCode, err)
	}
	if conn.Changes() == 0 {
		return unchanged
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	return nil
}
