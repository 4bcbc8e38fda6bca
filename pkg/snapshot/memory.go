package snapshot

import (
	"context"
	"sync"
)

// MemoryBackend keeps snapshots in process memory. Used for local development and tests.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, scope, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[memoryKey(scope, key)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Put(_ context.Context, scope, key, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[memoryKey(scope, key)] = payload
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, memoryKey(scope, key))
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}

func memoryKey(scope, key string) string {
	return scope + "\x00" + key
}
