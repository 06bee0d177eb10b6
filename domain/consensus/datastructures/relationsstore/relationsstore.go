// Package relationsstore is the mutable, per-level parent/child relations
// store. Parent sets are rewritten as reorgs happen
// (e.g. to point at ORIGIN for a soon-to-be-pruned set), so unlike the
// append-only stores this one supports genuine updates.
package relationsstore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

type levelKey struct {
	level int
	hash  externalapi.DomainHash
}

// Store is the write-locked in-memory relations store. It is memory-only:
// nothing is persisted, and nothing in this module rebuilds relations from
// the header store after a process restart (Consensus.Init only re-marks
// known headers that lack a level-0 entry).
type Store struct {
	mu       sync.RWMutex
	parents  map[levelKey][]*externalapi.DomainHash
	children map[levelKey][]*externalapi.DomainHash
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		parents:  make(map[levelKey][]*externalapi.DomainHash),
		children: make(map[levelKey][]*externalapi.DomainHash),
	}
}

// StageParents implements model.RelationsStore.
func (s *Store) StageParents(stagingArea *model.StagingArea, level int, hash *externalapi.DomainHash, parents []*externalapi.DomainHash) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.parents[levelKey{level, *hash}] = parents
		for _, parent := range parents {
			ck := levelKey{level, *parent}
			s.children[ck] = append(s.children[ck], hash)
		}
		return nil
	})
}

// Parents implements model.RelationsStore.
func (s *Store) Parents(level int, hash *externalapi.DomainHash) ([]*externalapi.DomainHash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parents, ok := s.parents[levelKey{level, *hash}]
	return parents, ok
}

// Children implements model.RelationsStore.
func (s *Store) Children(level int, hash *externalapi.DomainHash) []*externalapi.DomainHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.children[levelKey{level, *hash}]
}
