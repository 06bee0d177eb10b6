// Package selectedchainstore tracks the ordered selected-parent chain from
// ORIGIN to the current headers-selected-tip, plus the headers-selected-tip
// itself.4 step 5.
package selectedchainstore

import (
	"sync"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Store is the write-locked in-memory selected-chain + selected-tip store.
type Store struct {
	mu    sync.RWMutex
	chain []*externalapi.DomainHash
	index map[externalapi.DomainHash]int
	tip   *externalapi.DomainHash
}

// New constructs an empty Store.
func New() *Store {
	return &Store{index: make(map[externalapi.DomainHash]int)}
}

// StageAddChain implements model.SelectedChainStore. toRemove is the
// tail-end suffix being unwound (from the old selected tip back to the
// reorg point, exclusive); toAdd is the new suffix being appended.
func (s *Store) StageAddChain(stagingArea *model.StagingArea, toAdd []*externalapi.DomainHash, toRemove []*externalapi.DomainHash) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for range toRemove {
			last := s.chain[len(s.chain)-1]
			delete(s.index, *last)
			s.chain = s.chain[:len(s.chain)-1]
		}
		for _, hash := range toAdd {
			s.index[*hash] = len(s.chain)
			s.chain = append(s.chain, hash)
		}
		if len(s.chain) > 0 {
			s.tip = s.chain[len(s.chain)-1]
		}
		return nil
	})
}

// Chain implements model.SelectedChainStore.
func (s *Store) Chain() []*externalapi.DomainHash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*externalapi.DomainHash, len(s.chain))
	copy(out, s.chain)
	return out
}

// Index implements model.SelectedChainStore.
func (s *Store) Index(hash *externalapi.DomainHash) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.index[*hash]
	return idx, ok
}

// Tip returns the current headers-selected-tip, satisfying
// model.HeaderSelectedTipStore alongside StageTip below.
func (s *Store) Tip() (*externalapi.DomainHash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tip == nil {
		return nil, false
	}
	return s.tip, true
}

// StageTip implements model.HeaderSelectedTipStore. In practice the tip
// always moves together with the chain (StageAddChain already updates it),
// but IBD's atomic staging-consensus swap needs to set it directly.
func (s *Store) StageTip(stagingArea *model.StagingArea, hash *externalapi.DomainHash) {
	stagingArea.AddCommitHook(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tip = hash
		return nil
	})
}
