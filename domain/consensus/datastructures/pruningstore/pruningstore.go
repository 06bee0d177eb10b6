// Package pruningstore is the mutable pruning-info store: pruning_point,
// pruning_point_index, and candidate.
package pruningstore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Store is the write-locked in-memory pruning-info store.
type Store struct {
	mu           sync.RWMutex
	point        *externalapi.DomainHash
	index        uint64
	havePoint    bool
	candidate    *externalapi.DomainHash
	haveCandidate bool
}

// New constructs an empty Store.
func New() *Store {
	return &Store{}
}

// StagePruningPoint implements model.PruningStore.
func (s *Store) StagePruningPoint(stagingArea *model.StagingArea, hash *externalapi.DomainHash, index uint64) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.point = hash
		s.index = index
		s.havePoint = true
		return nil
	})
}

// StageCandidate implements model.PruningStore.
func (s *Store) StageCandidate(stagingArea *model.StagingArea, hash *externalapi.DomainHash) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.candidate = hash
		s.haveCandidate = true
		return nil
	})
}

// PruningPoint implements model.PruningStore.
func (s *Store) PruningPoint() (*externalapi.DomainHash, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.point, s.index, s.havePoint
}

// Candidate implements model.PruningStore.
func (s *Store) Candidate() (*externalapi.DomainHash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidate, s.haveCandidate
}
