package domain

import "errors"

var (
	// ErrRoomNotFound is returned when an operation targets a code with no room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomStarted is returned when a join targets a room past LOBBY status.
	ErrRoomStarted = errors.New("room already started")

	// ErrConflict is returned when an optimistic transaction exhausts its retry
	// budget. The operation left no partial effect and is safe to retry.
	ErrConflict = errors.New("transaction conflict")

	// ErrCodeSpaceExhausted is returned when room-code generation keeps hitting
	// taken codes.
	ErrCodeSpaceExhausted = errors.New("could not allocate a free room code")
)
