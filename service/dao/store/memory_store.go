package store

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service.
// It keeps entities of type *T mapped by a comparable key K. Values are
// cloned on save and on load so callers never share state with the store.
type MemoryStore[K comparable, T any] struct {
	mu       sync.RWMutex
	records  map[K]*T
	accessor *dao.Accessor[K, T]
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore[K comparable, T any](accessor *dao.Accessor[K, T]) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:  make(map[K]*T),
		accessor: accessor,
	}
}

var _ dao.Service[string, struct{}] = (*MemoryStore[string, struct{}])(nil)

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.accessor.Key(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = s.accessor.Copy(v)
	return nil
}

// Load returns a copy of the record or dao.ErrNotFound.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.accessor.Copy(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns copies of the records matching parameters.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		out = append(out, s.accessor.Copy(v))
	}
	s.mu.RUnlock()
	out = criteria.Filter(s.accessor, out, parameters)
	if s.accessor.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return s.accessor.Less(out[i], out[j]) })
	}
	return out, nil
}
