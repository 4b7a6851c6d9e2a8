package storage

import (
	"sort"
	"sync"

	"payroll-gateway/internal/payroll"
)

// Memory is an in-memory batch store guarded by a RWMutex. Copies go in and
// out so callers never share a batch pointer with the store.
type Memory struct {
	mu      sync.RWMutex
	batches map[string]*payroll.Batch
}

func NewMemory() *Memory {
	return &Memory{batches: make(map[string]*payroll.Batch)}
}

func (m *Memory) Save(b *payroll.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.batches[b.ID]; exists {
		return payroll.ErrAlreadyExists
	}
	cp := *b
	m.batches[b.ID] = &cp
	return nil
}

func (m *Memory) Get(id string) (*payroll.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, payroll.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) List() []*payroll.Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*payroll.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update mutates one batch inside the store's critical section. The
// mutation is kept only when fn succeeds; the (possibly mutated) copy is
// returned either way so callers can report the batch alongside an error.
func (m *Memory) Update(id string, fn func(b *payroll.Batch) error) (*payroll.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, payroll.ErrNotFound
	}
	cp := *b
	if err := fn(&cp); err != nil {
		return &cp, err
	}
	m.batches[id] = &cp
	out := cp
	return &out, nil
}
