// Package pastpruningpointsstore is the append-only history of pruning
// points: past pruning points are appended, the store is never rewritten.
package pastpruningpointsstore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Store is the in-memory append-only past-pruning-points store.
type Store struct {
	mu      sync.RWMutex
	byIndex map[uint64]*externalapi.DomainHash
	count   uint64
}

// New constructs an empty Store.
func New() *Store {
	return &Store{byIndex: make(map[uint64]*externalapi.DomainHash)}
}

// Stage implements model.PastPruningPointsStore.
func (s *Store) Stage(stagingArea *model.StagingArea, index uint64, hash *externalapi.DomainHash) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byIndex[index] = hash
		if index+1 > s.count {
			s.count = index + 1
		}
		return nil
	})
}

// ByIndex implements model.PastPruningPointsStore.
func (s *Store) ByIndex(index uint64) (*externalapi.DomainHash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.byIndex[index]
	return hash, ok
}

// Count implements model.PastPruningPointsStore.
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
