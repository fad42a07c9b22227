// Package memory provides an in-memory cursor store for tests and
// ephemeral runs. State does not survive the process.
package memory

import (
	"context"
	"sync"

	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
)

// Ensure CursorStore implements the interface.
var _ driven.CursorStore = (*CursorStore)(nil)

// CursorStore is a map-backed cursor store.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]domain.Cursor
}

// NewCursorStore creates an empty store.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[string]domain.Cursor)}
}

func key(cnpj string, env domain.Environment) string {
	return cnpj + "|" + string(env)
}

// Load returns the stored cursor or the zero cursor when absent.
func (s *CursorStore) Load(_ context.Context, cnpj string, env domain.Environment) (domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.cursors[key(cnpj, env)]; ok {
		return c, nil
	}
	return domain.ZeroCursor(), nil
}

// Save stores the cursor.
func (s *CursorStore) Save(_ context.Context, cnpj string, env domain.Environment, cursor domain.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[key(cnpj, env)] = cursor
	return nil
}

// Delete removes the cursor for a pair.
func (s *CursorStore) Delete(_ context.Context, cnpj string, env domain.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cursors, key(cnpj, env))
	return nil
}

// Close is a no-op for the in-memory store.
func (s *CursorStore) Close() error {
	return nil
}
