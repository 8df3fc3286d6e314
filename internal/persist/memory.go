package persist

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string][]byte
	// FailWrites makes Set return ErrWriteDisabled, mimicking full or disabled storage.
	FailWrites bool
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of value under key.
func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte) error {
	_ = ctx
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites {
		return ErrWriteDisabled
	}
	b.values[key] = append([]byte(nil), value...)
	return nil
}

// Close is a no-op for the memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}
