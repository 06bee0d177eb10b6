// Package statusesstore is the mutable block-status store.
package statusesstore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Store is the write-locked in-memory status store.
type Store struct {
	mu       sync.RWMutex
	statuses map[externalapi.DomainHash]externalapi.BlockStatus
}

// New constructs an empty Store.
func New() *Store {
	return &Store{statuses: make(map[externalapi.DomainHash]externalapi.BlockStatus)}
}

// StageStatus implements model.StatusStore.
func (s *Store) StageStatus(stagingArea *model.StagingArea, hash *externalapi.DomainHash, status externalapi.BlockStatus) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.statuses[*hash] = status
		return nil
	})
}

// Status implements model.StatusStore.
func (s *Store) Status(hash *externalapi.DomainHash) (externalapi.BlockStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[*hash]
	return status, ok
}
