// Package snapshot persists serialized cart snapshots in a key-value surface. It plays the
// role browser local storage plays for the web storefront: one fixed key per device scope,
// read and overwritten wholesale.
package snapshot

import (
	"context"
	"errors"
	"strings"
)

// Key is the fixed name every cart snapshot is stored under.
const Key = "cart"

// ErrNotFound is returned when no snapshot exists for the scope.
var ErrNotFound = errors.New("snapshot not found")

// Backend is a scoped key-value surface.
type Backend interface {
	Get(ctx context.Context, scope, key string) (string, error)
	Put(ctx context.Context, scope, key, payload string) error
	Delete(ctx context.Context, scope, key string) error
	Ping(ctx context.Context) error
}

// Store binds a backend to one scope and the fixed cart key.
type Store struct {
	backend Backend
	scope   string
}

// Scoped returns the snapshot store of a single device.
func Scoped(backend Backend, scope string) *Store {
	return &Store{backend: backend, scope: strings.TrimSpace(scope)}
}

// Read returns the stored payload or ErrNotFound.
func (s *Store) Read(ctx context.Context) (string, error) {
	return s.backend.Get(ctx, s.scope, Key)
}

// Write overwrites the stored payload.
func (s *Store) Write(ctx context.Context, payload string) error {
	return s.backend.Put(ctx, s.scope, Key, payload)
}

// Delete removes the stored payload. Deleting a missing snapshot is not an error.
func (s *Store) Delete(ctx context.Context) error {
	return s.backend.Delete(ctx, s.scope, Key)
}
