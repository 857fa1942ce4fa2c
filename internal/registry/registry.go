package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrExists   = errors.New("already registered")
	ErrNotFound = errors.New("not registered")
)

// Registry maps names to values of one kind, typically constructors.
// It is safe for concurrent use.
type Registry[T any] struct {
	kind string

	mu sync.RWMutex
	m  map[string]T
}

func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, m: make(map[string]T)}
}

func (r *Registry[T]) Kind() string {
	return r.kind
}

func (r *Registry[T]) Register(name string, value T) error {
	if name == "" {
		return fmt.Errorf("%s name is required", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.m[name]; exists {
		return fmt.Errorf("%w: %s %s", ErrExists, r.kind, name)
	}
	r.m[name] = value
	return nil
}

// MustRegister panics on error. Meant for init-time registration.
func (r *Registry[T]) MustRegister(name string, value T) {
	if err := r.Register(name, value); err != nil {
		panic(err)
	}
}

func (r *Registry[T]) Resolve(name string) (T, error) {
	r.mu.RLock()
	value, ok := r.m[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, r.kind, name)
	}
	return value, nil
}

func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[T]) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, name)
}
