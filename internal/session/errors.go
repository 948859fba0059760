package session

import "errors"

var (
	// ErrInvalidRequest indicates a required field is missing.
	ErrInvalidRequest = errors.New("session_id required")

	// ErrNotFound indicates no session row exists for the id.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyEnded indicates the session was ended before.
	ErrAlreadyEnded = errors.New("session already ended")

	// ErrInvalidState indicates the persisted session cannot be ended as is,
	// e.g. its start time lies in the future.
	ErrInvalidState = errors.New("session state invalid")
)
