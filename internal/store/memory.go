package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in a map. It is safe for concurrent use.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend returns an empty backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// NewMemoryStore is a DocumentStore over a fresh MemoryBackend
func NewMemoryStore() *DocumentStore {
	return New(NewMemoryBackend())
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Get(_ context.Context, userID string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	doc, ok := b.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

func (b *MemoryBackend) Put(_ context.Context, userID string, doc []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.docs[userID] = append([]byte(nil), doc...)
	return nil
}

// Len reports how many records are held
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs)
}
