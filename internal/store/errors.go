package store

import (
	"errors"
	"fmt"
)

var (
	ErrReference = errors.New("unknown group reference")
	ErrConflict  = errors.New("time range overlaps a scheduled item")
	ErrInvalid   = errors.New("invalid item")
)

// ReferenceError is returned when a member names a group that does not exist.
type ReferenceError struct {
	GroupID int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("group %d does not exist", e.GroupID)
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrReference
}

// ConflictError is returned when an item's range intersects another
// scheduled item. ID is zero for items not yet stored.
type ConflictError struct {
	ID            int64
	ConflictingID int64
}

func (e *ConflictError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("time range overlaps item %d", e.ConflictingID)
	}
	return fmt.Sprintf("item %d: time range overlaps item %d", e.ID, e.ConflictingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
