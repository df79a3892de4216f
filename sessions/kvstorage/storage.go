// Package kvstorage provides string key/value stores with Web Storage
// semantics (getItem, setItem, removeItem) for the session snapshot.
package kvstorage

import (
	"context"
	"sync"
)

type Storage interface {
	// GetItem reports false when the key has never been set or was removed.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Memory is a process-local Storage, the server side stand-in for a browser's
// localStorage.
type Memory struct {
	lock  sync.RWMutex
	items map[string]string
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.items, key)
	return nil
}
