package storage

import (
	"errors"
	"fmt"
	"io"
)

// Backend names accepted by NewStore.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// NewStore opens the named backend. An empty kind selects the memory
// store; sqlitePath is read only by the sqlite backend, which needs the
// sqlite build tag.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownBackend, kind, KindMemory, KindSQLite)
	}
}

// CloseIfSupported releases backends holding resources, such as the
// sqlite connection pool. Memory stores need no closing.
func CloseIfSupported(store Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
