package storage

import "errors"

// Failure taxonomy surfaced to handlers. Anything else coming out of this
// package is a storage-layer fault and maps to a generic 500.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("resource owned by another user")
	ErrDuplicateUsername = errors.New("username already taken")
)
