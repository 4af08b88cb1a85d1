package artifact

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact: not found")

	// ErrExists is returned by PutIfAbsent when the artifact is already present.
	ErrExists = errors.New("artifact: already exists")

	// ErrInvalidKey indicates an empty or otherwise unusable key.
	ErrInvalidKey = errors.New("artifact: invalid key")

	// ErrTimeout is returned by Wait when the deadline passes first.
	ErrTimeout = errors.New("artifact: wait timed out")
)

// Store holds coordination artifacts. A reader that observes a key always
// observes its complete value.
type Store interface {
	// PutIfAbsent publishes data under key unless the key already exists.
	PutIfAbsent(ctx context.Context, key string, data []byte) error

	// Get returns the value of key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
