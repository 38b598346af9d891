// Package memory provides an in-process Store. It keeps the encoded document
// rather than the live collection so that Load always returns an independent
// copy, exactly like the durable backends.
package memory

import (
	"context"
	"sync"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence"
)

// Store is a trajectory.Store backed by a byte slice.
type Store struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithDocument creates a store pre-loaded with a raw document.
// The document is not validated until Load.
func NewStoreWithDocument(data []byte) *Store {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Store{data: cp}
}

// Load implements trajectory.Store.
func (s *Store) Load(ctx context.Context) (trajectory.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persistence.Decode(s.data)
}

// Save implements trajectory.Store.
func (s *Store) Save(ctx context.Context, c trajectory.Collection) error {
	data, err := persistence.Encode(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.saves++
	s.mu.Unlock()
	return nil
}

// Document returns a copy of the stored document.
func (s *Store) Document() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return cp
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
