// Package store holds the durable backends for board state. Every backend
// keeps one record per room code and stores it in the encoding produced by
// Encode, so a board written by one backend reads back identically from any
// other.
package store

import (
	"context"
	"fmt"

	"liveboard-sync-server/domain"
)

// Persister is the durable key-value collaborator behind board.Store.
//
// Load returns domain.ErrRoomNotFound when no record exists. Create returns
// domain.ErrRoomExists when one already does. Save only replaces an existing
// record and returns domain.ErrRoomNotFound otherwise.
type Persister interface {
	Load(ctx context.Context, roomCode string) (*domain.BoardState, error)
	Create(ctx context.Context, state *domain.BoardState) error
	Save(ctx context.Context, state *domain.BoardState) error
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	SQLitePath    string
}

// Open connects the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Persister, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
