package company

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Company
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byID: make(map[int64]Company)}
}

func (m *MemoryRepository) matching(name string) []Company {
	name = strings.ToLower(strings.TrimSpace(name))
	out := make([]Company, 0, len(m.byID))
	for _, c := range m.byID {
		if name == "" || strings.Contains(strings.ToLower(c.Name), name) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepository) Count(_ context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matching(name))), nil
}

func (m *MemoryRepository) List(_ context.Context, name string, limit, offset int) ([]Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset < 0 || limit < 1 {
		return nil, ErrInvalidInput
	}
	all := m.matching(name)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byID[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryRepository) Create(_ context.Context, c Company) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.nextID
	m.nextID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.byID[c.ID] = c
	return c, nil
}
