// Package depthstore is the append-only store of merge-depth-root /
// finality-point entries, one per committed header.
package depthstore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

type entry struct {
	mergeDepthRoot *externalapi.DomainHash
	finalityPoint  *externalapi.DomainHash
}

// Store is the in-memory append-only depth-info store.
type Store struct {
	mu      sync.RWMutex
	entries map[externalapi.DomainHash]entry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{entries: make(map[externalapi.DomainHash]entry)}
}

// Stage implements model.DepthStore.
func (s *Store) Stage(stagingArea *model.StagingArea, hash *externalapi.DomainHash, mergeDepthRoot, finalityPoint *externalapi.DomainHash) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries[*hash] = entry{mergeDepthRoot: mergeDepthRoot, finalityPoint: finalityPoint}
		return nil
	})
}

// Get implements model.DepthStore.
func (s *Store) Get(hash *externalapi.DomainHash) (mergeDepthRoot, finalityPoint *externalapi.DomainHash, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, found := s.entries[*hash]
	if !found {
		return nil, nil, false
	}
	return e.mergeDepthRoot, e.finalityPoint, true
}
