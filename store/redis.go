package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"liveboard-sync-server/domain"
)

const redisKeyPrefix = "liveboard:board:"

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	slog.Info("connected to redis", "addr", addr, "db", db)
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Load(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+roomCode).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", roomCode, err)
	}
	return Decode(data)
}

func (s *RedisStore) Create(ctx context.Context, state *domain.BoardState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	created, err := s.rdb.SetNX(ctx, redisKeyPrefix+state.RoomCode, data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w", state.RoomCode, err)
	}
	if !created {
		return domain.ErrRoomExists
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context, state *domain.BoardState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	replaced, err := s.rdb.SetXX(ctx, redisKeyPrefix+state.RoomCode, data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setxx %s: %w", state.RoomCode, err)
	}
	if !replaced {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
