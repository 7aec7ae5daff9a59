// Package board owns the committed state of every active room.
//
// Mutations are applied to a private copy of the committed state, written
// through the Persister, and only published once the write succeeds. A
// failed write leaves the committed state untouched, so readers and
// broadcasts only ever see durable state.
//
// Mutating methods must only be called by the room's actor. Snapshot and
// Load may be called from anywhere.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"liveboard-sync-server/domain"
	"liveboard-sync-server/store"
)

type entry struct {
	mu    sync.RWMutex
	state *domain.BoardState // committed; never mutated in place
}

type Store struct {
	persister store.Persister
	now       func() time.Time

	mu    sync.Mutex
	rooms map[string]*entry
}

func New(p store.Persister) *Store {
	return &Store{
		persister: p,
		now:       time.Now,
		rooms:     make(map[string]*entry),
	}
}

// WithClock replaces the time source used for lastUpdated.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Load returns a copy of the committed state of roomCode.
func (s *Store) Load(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	state, err := s.committed(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Snapshot returns the committed drawings and texts of roomCode together
// with the time of the last committed mutation.
func (s *Store) Snapshot(ctx context.Context, roomCode string) (domain.Snapshot, time.Time, error) {
	state, err := s.committed(ctx, roomCode)
	if err != nil {
		return domain.Snapshot{}, time.Time{}, err
	}
	return state.Current(), state.LastUpdated, nil
}

// CreateIfMissing returns the state of roomCode, creating an empty board
// when the room has none.
func (s *Store) CreateIfMissing(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	state, err := s.committed(ctx, roomCode)
	if err == nil {
		return state.Clone(), nil
	}
	if !errors.Is(err, domain.ErrRoomNotFound) {
		return nil, err
	}

	e := s.entry(roomCode)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != nil {
		return e.state.Clone(), nil
	}

	fresh := domain.NewBoardState(roomCode, s.now())
	err = s.persister.Create(ctx, fresh)
	switch {
	case err == nil:
		slog.Info("board created", "room", roomCode)
		e.state = fresh
	case errors.Is(err, domain.ErrRoomExists):
		loaded, err := s.persister.Load(ctx, roomCode)
		if err != nil {
			return nil, fmt.Errorf("load board %s: %w", roomCode, err)
		}
		e.state = loaded
	default:
		return nil, fmt.Errorf("create board %s: %w", roomCode, err)
	}
	return e.state.Clone(), nil
}

func (s *Store) AppendDrawing(ctx context.Context, roomCode string, element domain.Element) error {
	return s.mutate(ctx, roomCode, func(next *domain.BoardState, now time.Time) error {
		next.AppendDrawing(element, now)
		return nil
	})
}

func (s *Store) UpsertText(ctx context.Context, roomCode string, label domain.TextLabel) error {
	return s.mutate(ctx, roomCode, func(next *domain.BoardState, now time.Time) error {
		next.UpsertText(label, now)
		return nil
	})
}

// Undo returns domain.ErrNoHistory, without writing anything, when there is
// nothing to undo.
func (s *Store) Undo(ctx context.Context, roomCode string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.mutate(ctx, roomCode, func(next *domain.BoardState, now time.Time) (err error) {
		snap, err = next.Undo(now)
		return err
	})
	return snap, err
}

// Redo returns domain.ErrNoFuture, without writing anything, when there is
// nothing to redo.
func (s *Store) Redo(ctx context.Context, roomCode string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.mutate(ctx, roomCode, func(next *domain.BoardState, now time.Time) (err error) {
		snap, err = next.Redo(now)
		return err
	})
	return snap, err
}

func (s *Store) Clear(ctx context.Context, roomCode string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.mutate(ctx, roomCode, func(next *domain.BoardState, now time.Time) error {
		snap = next.Clear(now)
		return nil
	})
	return snap, err
}

// Evict drops the cached state of roomCode. The next access reloads it from
// the persister.
func (s *Store) Evict(roomCode string) {
	s.mu.Lock()
	delete(s.rooms, roomCode)
	s.mu.Unlock()
}

// Cached reports how many rooms currently have state in memory.
func (s *Store) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *Store) mutate(ctx context.Context, roomCode string, apply func(*domain.BoardState, time.Time) error) error {
	current, err := s.committed(ctx, roomCode)
	if err != nil {
		return err
	}

	next := current.Clone()
	if err := apply(next, s.now()); err != nil {
		return err
	}

	if err := s.persister.Save(ctx, next); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.Evict(roomCode)
		}
		return fmt.Errorf("save board %s: %w", roomCode, err)
	}

	e := s.entry(roomCode)
	e.mu.Lock()
	e.state = next
	e.mu.Unlock()
	return nil
}

func (s *Store) entry(roomCode string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[roomCode]
	if !ok {
		e = &entry{}
		s.rooms[roomCode] = e
	}
	return e
}

// committed returns the committed state, loading it on first access.
func (s *Store) committed(ctx context.Context, roomCode string) (*domain.BoardState, error) {
	if roomCode == "" {
		return nil, domain.ErrMissingRoomCode
	}
	e := s.entry(roomCode)

	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()
	if state != nil {
		return state, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != nil {
		return e.state, nil
	}
	loaded, err := s.persister.Load(ctx, roomCode)
	if err != nil {
		s.forget(roomCode, e)
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load board %s: %w", roomCode, err)
	}
	e.state = loaded
	return loaded, nil
}

// forget removes an entry that never got a state, unless it was replaced.
func (s *Store) forget(roomCode string, e *entry) {
	s.mu.Lock()
	if s.rooms[roomCode] == e {
		delete(s.rooms, roomCode)
	}
	s.mu.Unlock()
}
