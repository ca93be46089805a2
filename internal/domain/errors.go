package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id has no persisted record.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStageConflict is returned when an operation targets a session whose
	// stage does not permit it, e.g. resuming a session that is not waiting
	// for a selection.
	ErrStageConflict = errors.New("session stage conflict")

	// ErrInvalidSelection is returned when a dish index falls outside the
	// suggested dish list.
	ErrInvalidSelection = errors.New("invalid dish selection")

	// ErrVersionMismatch is returned by stores when an optimistic save loses
	// a race against a concurrent write to the same session.
	ErrVersionMismatch = errors.New("session version mismatch")
)
