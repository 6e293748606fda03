package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that no session data exists
	ErrSessionNotFound = errors.New("session data not found")

	// ErrPostNotFound indicates that saved post was not found
	ErrPostNotFound = errors.New("saved post not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
