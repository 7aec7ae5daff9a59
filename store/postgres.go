package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liveboard-sync-server/domain"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS board_states (
	room_code    TEXT PRIMARY KEY,
	state        BYTEA NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL
)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres store: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: create schema: %w", err)
	}
	slog.Info("connected to postgres")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM board_states WHERE room_code = $1`, roomCode).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load %s: %w", roomCode, err)
	}
	return Decode(data)
}

func (s *PostgresStore) Create(ctx context.Context, state *domain.BoardState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO board_states (room_code, state, last_updated) VALUES ($1, $2, $3)
		 ON CONFLICT (room_code) DO NOTHING`,
		state.RoomCode, data, state.LastUpdated)
	if err != nil {
		return fmt.Errorf("postgres create %s: %w", state.RoomCode, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomExists
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, state *domain.BoardState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE board_states SET state = $2, last_updated = $3 WHERE room_code = $1`,
		state.RoomCode, data, state.LastUpdated)
	if err != nil {
		return fmt.Errorf("postgres save %s: %w", state.RoomCode, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
