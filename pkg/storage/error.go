package storage

import "errors"

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when an entity doesn't exist in the store.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return e.Entity + " not found: " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
