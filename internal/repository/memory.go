package repository

import (
	"context"
	"sync"
)

// MemoryStore is an in-process key-value store. Values are lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// MemoryNamespaces hands out one MemoryStore per namespace, creating them on first use.
type MemoryNamespaces struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryNamespaces() *MemoryNamespaces {
	return &MemoryNamespaces{stores: make(map[string]*MemoryStore)}
}

func (m *MemoryNamespaces) Store(namespace string) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[namespace]
	if !ok {
		s = NewMemoryStore()
		m.stores[namespace] = s
	}
	return s
}
