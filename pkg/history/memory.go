package history

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use and intended
// primarily for testing. Records are stored encoded so callers cannot
// mutate stored state.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, r *Record) error {
	prepare(r)
	val, err := encode(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[r.ID] = val
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	val, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(val)
}

func (m *Memory) List(_ context.Context, limit int) ([]*Record, error) {
	limit = limitOrDefault(limit)
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.SortFunc(ids, func(a, b string) int { return strings.Compare(b, a) })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]*Record, 0, len(ids))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range ids {
		val, ok := m.data[id]
		if !ok {
			continue
		}
		r, err := decode(val)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
