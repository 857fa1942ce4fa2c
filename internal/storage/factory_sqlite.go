//go:build sqlite

package storage

// DefaultStoreKind is the backend used when none is requested.
func DefaultStoreKind() string { return KindSQLite }

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		path = "vivarium.db"
	}
	return NewSQLiteStore(path), nil
}
