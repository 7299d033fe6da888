package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/buwituze/formative3-group2-dqn-agent/results"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	tables      map[string]results.Table
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.tables = make(map[string]results.Table)
	return nil
}

func (s *MemoryStore) SaveTable(_ context.Context, table *results.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("memory store is not initialized")
	}
	if table.ID == "" {
		return fmt.Errorf("table has no sweep id")
	}
	s.tables[table.ID] = copyTable(table)
	return nil
}

func (s *MemoryStore) GetTable(_ context.Context, id string) (*results.Table,
	bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[id]
	if !ok {
		return nil, false, nil
	}
	out := copyTable(&table)
	return &out, true, nil
}

// copyTable copies the rows of a table. Failures are not stored.
func copyTable(t *results.Table) results.Table {
	rows := make([]results.Row, len(t.Rows))
	for i, r := range t.Rows {
		r.Rewards = append([]float64(nil), r.Rewards...)
		rows[i] = r
	}
	return results.Table{ID: t.ID, Rows: rows}
}
