// Package reachabilitydatastore backs the reachability manager's interval
// tree-cover. It is serialized through an upgradable-read
// lock: readers (IsChainAncestorOf / IsDAGAncestorOf) proceed concurrently,
// and the writer (AddBlock's interval relayout) acquires exclusivity only
// at staging commit, matching rationale that reachability reads
// dominate consensus work.
package reachabilitydatastore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Store is the upgradable-read-locked in-memory reachability store.
type Store struct {
	mu   sync.RWMutex
	tree map[externalapi.DomainHash]*model.ReachabilityTreeData
}

// New constructs an empty Store.
func New() *Store {
	return &Store{tree: make(map[externalapi.DomainHash]*model.ReachabilityTreeData)}
}

// StageInterval implements model.ReachabilityDataStore. Staged writes are
// buffered on the StagingArea and only acquire the store's write lock at
// Commit time, so concurrent readers never observe a partially relaid-out
// subtree.
func (s *Store) StageInterval(stagingArea *model.StagingArea, hash *externalapi.DomainHash, data *model.ReachabilityTreeData) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tree[*hash] = data
		return nil
	})
}

// Interval implements model.ReachabilityDataStore.
func (s *Store) Interval(hash *externalapi.DomainHash) (*model.ReachabilityTreeData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.tree[*hash]
	return data, ok
}
