package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
)

// MemoryBackend keeps objects in a map. Used by tests and ephemeral runs.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// FailPut, when set, is returned by every Put.
	FailPut error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: map[string][]byte{}}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if b.FailPut != nil {
		return b.FailPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[key] = data
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	data, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.New("empty key")
	}
	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.RLock()
	_, ok := b.objects[key]
	b.mu.RUnlock()
	return ok, nil
}

// Keys returns the stored keys in sorted order.
func (b *MemoryBackend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
