package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrNoHistory       = errors.New("nothing to undo")
	ErrNoFuture        = errors.New("nothing to redo")
	ErrInvalidElement  = errors.New("invalid element")
	ErrInvalidText     = errors.New("invalid text label")
	ErrMissingRoomCode = errors.New("roomCode is required")
	ErrNotJoined       = errors.New("not joined to room")
	ErrClosed          = errors.New("room registry closed")
	ErrOverloaded      = errors.New("room busy")
)
