package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write would repeat an existing entry.
	ErrDuplicate = errors.New("persistence: duplicate entry")
	// ErrNotMember is returned when removing an attendee that is not present.
	ErrNotMember = errors.New("persistence: not a member")
)
