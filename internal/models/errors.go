package models

import "errors"

var (
	// ErrNotFound is returned by stores when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by stores when a uniqueness constraint rejects a write
	ErrConflict = errors.New("already exists")
	// ErrFull is returned when a capacity-bounded insert finds no room left
	ErrFull = errors.New("capacity reached")
)
