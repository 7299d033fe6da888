// Package storage mirrors sweep result tables into a queryable store
package storage

import (
	"context"
	"fmt"

	"github.com/buwituze/formative3-group2-dqn-agent/results"
)

// Store persists the result tables of sweeps, keyed by sweep ID
type Store interface {
	Init(ctx context.Context) error
	SaveTable(ctx context.Context, table *results.Table) error
	GetTable(ctx context.Context, id string) (*results.Table, bool, error)
}

// NewStore returns the store backend named by kind
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if sqlitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes store if it holds resources
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
