// Package actor serializes mutations per room.
//
// Each active room code gets one goroutine reading a bounded FIFO queue.
// An operation is applied, persisted and published before the next one is
// dequeued, so the effects members see for a room arrive in exactly the
// order the operations were queued. Rooms never wait on each other.
package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"liveboard-sync-server/domain"
)

// BoardStore is the subset of board.Store the actors drive.
type BoardStore interface {
	CreateIfMissing(ctx context.Context, roomCode string) (*domain.BoardState, error)
	AppendDrawing(ctx context.Context, roomCode string, element domain.Element) error
	UpsertText(ctx context.Context, roomCode string, label domain.TextLabel) error
	Undo(ctx context.Context, roomCode string) (domain.Snapshot, error)
	Redo(ctx context.Context, roomCode string) (domain.Snapshot, error)
	Clear(ctx context.Context, roomCode string) (domain.Snapshot, error)
	Evict(roomCode string)
}

type Options struct {
	// QueueSize bounds each room's queue. Submit blocks while it is full.
	QueueSize int
	// IdleTimeout is how long an actor with an empty queue lives on.
	IdleTimeout time.Duration
	// OpTimeout bounds each operation's persistence work. It is independent
	// of the submitter, so an operation whose submitter went away still
	// completes.
	OpTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 10 * time.Second
	}
	return o
}

type result struct {
	effect domain.Effect
	err    error
}

type request struct {
	originatorID string
	op           domain.Operation
	attach       func(domain.Snapshot)
	reply        chan result
}

type room struct {
	code  string
	queue chan request
	wake  chan struct{}
	// pending counts submitters that have been handed this room but whose
	// request has not been processed yet. Guarded by Registry.mu.
	pending int
}

type Registry struct {
	boards    BoardStore
	publisher domain.EffectPublisher
	opts      Options

	mu     sync.Mutex
	rooms  map[string]*room
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

func NewRegistry(boards BoardStore, publisher domain.EffectPublisher, opts Options) *Registry {
	return &Registry{
		boards:    boards,
		publisher: publisher,
		opts:      opts.withDefaults(),
		rooms:     make(map[string]*room),
		stop:      make(chan struct{}),
	}
}

// Submit queues op for roomCode and waits for its effect. Draw and text
// effects have already been relayed to the other members, and snapshot
// effects broadcast to every member, by the time Submit returns. Rejected
// effects are for the caller alone.
//
// If ctx ends while waiting for the result, the operation still runs.
func (r *Registry) Submit(ctx context.Context, roomCode, originatorID string, op domain.Operation) (domain.Effect, error) {
	if err := op.Validate(); err != nil {
		return domain.Effect{}, err
	}
	res, err := r.enqueue(ctx, roomCode, request{originatorID: originatorID, op: op})
	if err != nil {
		return domain.Effect{}, err
	}
	return res.effect, res.err
}

// Join runs attach on the room's actor with the committed snapshot, creating
// an empty board if the room has none. Because it runs between two
// mutations, whatever attach registers sees every later effect and none
// that is already part of the snapshot.
func (r *Registry) Join(ctx context.Context, roomCode string, attach func(domain.Snapshot)) (domain.Snapshot, error) {
	res, err := r.enqueue(ctx, roomCode, request{attach: attach})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return res.effect.Snapshot, res.err
}

// Active returns the number of running room actors.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Close stops accepting operations, lets every actor finish what is already
// queued, and waits for them to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.stop)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Registry) enqueue(ctx context.Context, roomCode string, req request) (result, error) {
	if roomCode == "" {
		return result{}, domain.ErrMissingRoomCode
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return result{}, domain.ErrClosed
	}
	rm, ok := r.rooms[roomCode]
	if !ok {
		rm = &room{
			code:  roomCode,
			queue: make(chan request, r.opts.QueueSize),
			wake:  make(chan struct{}, 1),
		}
		r.rooms[roomCode] = rm
		r.wg.Add(1)
		go r.run(rm)
		slog.Debug("room actor started", "room", roomCode)
	}
	rm.pending++
	r.mu.Unlock()

	req.reply = make(chan result, 1)
	select {
	case rm.queue <- req:
	case <-ctx.Done():
		r.mu.Lock()
		rm.pending--
		r.mu.Unlock()
		select {
		case rm.wake <- struct{}{}:
		default:
		}
		slog.Warn("room queue full", "room", roomCode, "error", ctx.Err())
		return result{}, fmt.Errorf("%w: %s: %w", domain.ErrOverloaded, roomCode, ctx.Err())
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (r *Registry) run(rm *room) {
	defer r.wg.Done()

	idle := time.NewTimer(r.opts.IdleTimeout)
	defer idle.Stop()
	stop := r.stop
	stopping := false

	for {
		select {
		case req := <-rm.queue:
			r.process(rm.code, req)
			r.mu.Lock()
			rm.pending--
			r.mu.Unlock()
			idle.Reset(r.opts.IdleTimeout)
		case <-rm.wake:
		case <-idle.C:
			if r.retire(rm) {
				slog.Debug("room actor idle, stopped", "room", rm.code)
				return
			}
			idle.Reset(r.opts.IdleTimeout)
			continue
		case <-stop:
			stop = nil
			stopping = true
		}

		if stopping && r.retire(rm) {
			return
		}
	}
}

// retire unregisters rm if nobody is waiting on it.
func (r *Registry) retire(rm *room) bool {
	r.mu.Lock()
	if rm.pending > 0 {
		r.mu.Unlock()
		return false
	}
	if r.rooms[rm.code] == rm {
		delete(r.rooms, rm.code)
	}
	r.mu.Unlock()

	r.boards.Evict(rm.code)
	return true
}

func (r *Registry) process(roomCode string, req request) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.OpTimeout)
	defer cancel()

	if req.attach != nil {
		state, err := r.boards.CreateIfMissing(ctx, roomCode)
		if err != nil {
			slog.Error("join failed", "room", roomCode, "error", err)
			req.reply <- result{err: err}
			return
		}
		snap := state.Current()
		req.attach(snap)
		req.reply <- result{effect: domain.Effect{Kind: domain.EffectSnapshot, Snapshot: snap}}
		return
	}

	effect, err := r.apply(ctx, roomCode, req.op)
	switch {
	case err != nil:
		slog.Error("operation failed", "room", roomCode, "op", req.op.Kind, "clientId", req.originatorID, "error", err)
	case effect.Broadcast():
		r.publisher.Publish(roomCode, req.originatorID, effect)
	default:
		slog.Debug("operation rejected", "room", roomCode, "op", req.op.Kind, "reason", effect.Reason)
	}
	req.reply <- result{effect: effect, err: err}
}

func (r *Registry) apply(ctx context.Context, roomCode string, op domain.Operation) (domain.Effect, error) {
	switch op.Kind {
	case domain.OpDraw:
		if err := r.boards.AppendDrawing(ctx, roomCode, *op.Element); err != nil {
			return rejectedFor(err), err
		}
		return domain.Effect{Kind: domain.EffectRelay, Element: op.Element}, nil

	case domain.OpText:
		if err := r.boards.UpsertText(ctx, roomCode, *op.TextLabel); err != nil {
			return rejectedFor(err), err
		}
		return domain.Effect{Kind: domain.EffectRelay, TextLabel: op.TextLabel}, nil

	case domain.OpUndo:
		snap, err := r.boards.Undo(ctx, roomCode)
		if errors.Is(err, domain.ErrNoHistory) {
			return domain.Rejected(domain.ErrNoHistory.Error()), nil
		}
		if err != nil {
			return rejectedFor(err), err
		}
		return domain.Effect{Kind: domain.EffectSnapshot, Snapshot: snap}, nil

	case domain.OpRedo:
		snap, err := r.boards.Redo(ctx, roomCode)
		if errors.Is(err, domain.ErrNoFuture) {
			return domain.Rejected(domain.ErrNoFuture.Error()), nil
		}
		if err != nil {
			return rejectedFor(err), err
		}
		return domain.Effect{Kind: domain.EffectSnapshot, Snapshot: snap}, nil

	case domain.OpClear:
		snap, err := r.boards.Clear(ctx, roomCode)
		if err != nil {
			return rejectedFor(err), err
		}
		return domain.Effect{Kind: domain.EffectSnapshot, Snapshot: snap}, nil
	}
	return domain.Effect{}, fmt.Errorf("unknown operation %q", op.Kind)
}

func rejectedFor(err error) domain.Effect {
	if errors.Is(err, domain.ErrRoomNotFound) {
		return domain.Rejected(domain.ErrRoomNotFound.Error())
	}
	return domain.Rejected("could not save board")
}
