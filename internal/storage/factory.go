package storage

import (
	"errors"
	"fmt"
	"strings"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var (
	ErrUnsupportedBackend = errors.New("storage: unsupported backend")
	ErrNotInitialized     = errors.New("storage: store is not initialized")
)

// NewStore builds the plan store named by backend. An empty name selects
// the in-memory store. The returned store still needs Init.
func NewStore(backend, sqlitePath string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnsupportedBackend, backend, BackendMemory, BackendSQLite)
	}
}

// CloseIfSupported releases backends that hold a handle, such as sqlite.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
