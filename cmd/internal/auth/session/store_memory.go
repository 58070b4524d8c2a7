package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu     sync.Mutex
	byHash map[string]Row
	byUser map[int64]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash: make(map[string]Row),
		byUser: make(map[int64]string),
	}
}

func (m *MemoryStore) Put(_ context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.byUser[row.UserID]; ok {
		delete(m.byHash, prev)
	}
	m.byHash[row.TokenHash] = row
	m.byUser[row.UserID] = row.TokenHash
	return nil
}

func (m *MemoryStore) GetByHash(_ context.Context, tokenHash string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.byHash[tokenHash]
	if !ok {
		return Row{}, ErrTokenNotFound
	}
	return row, nil
}

func (m *MemoryStore) DeleteByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.byHash[tokenHash]
	if !ok {
		return nil
	}
	delete(m.byHash, tokenHash)
	if m.byUser[row.UserID] == tokenHash {
		delete(m.byUser, row.UserID)
	}
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for h, row := range m.byHash {
		if !row.ExpireTime.Before(now) {
			continue
		}
		delete(m.byHash, h)
		if m.byUser[row.UserID] == h {
			delete(m.byUser, row.UserID)
		}
		n++
	}
	return n, nil
}

// Len reports the number of stored rows.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}
