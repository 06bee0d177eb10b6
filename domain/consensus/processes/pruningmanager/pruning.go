// Package pruningmanager decides pruning-point movement and detects
// finality conflicts.
package pruningmanager

import (
	"github.com/pkg/errors"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/dagconfig"
)

// Manager implements model.PruningManager.
type Manager struct {
	ghostdagStore      model.GHOSTDAGDataStore
	selectedChainStore model.SelectedChainStore
	pruningStore       model.PruningStore
	pastPruningPoints  model.PastPruningPointsStore
	depthManager       model.DepthManager
	params             *dagconfig.Params
}

// New constructs a Manager.
func New(ghostdagStore model.GHOSTDAGDataStore, selectedChainStore model.SelectedChainStore,
	pruningStore model.PruningStore, pastPruningPoints model.PastPruningPointsStore,
	depthManager model.DepthManager, params *dagconfig.Params) *Manager {
	return &Manager{
		ghostdagStore:      ghostdagStore,
		selectedChainStore: selectedChainStore,
		pruningStore:       pruningStore,
		pastPruningPoints:  pastPruningPoints,
		depthManager:       depthManager,
		params:             params,
	}
}

// UpdatePruningPointByVirtual implements model.PruningManager: the pruning
// point advances only when a candidate at least PruningDepth below the
// current selected tip exists on the selected chain.
func (m *Manager) UpdatePruningPointByVirtual(stagingArea *model.StagingArea) error {
	chain := m.selectedChainStore.Chain()
	if len(chain) == 0 {
		return nil
	}
	tip := chain[len(chain)-1]
	tipData, ok := m.ghostdagStore.Get(0, tip)
	if !ok {
		return errors.Errorf("pruningmanager: missing GHOSTDAG data for selected tip %s", tip)
	}

	currentPoint, currentIndex, havePoint := m.pruningStore.PruningPoint()

	var candidate *externalapi.DomainHash
	for i := len(chain) - 1; i >= 0; i-- {
		data, ok := m.ghostdagStore.Get(0, chain[i])
		if !ok {
			continue
		}
		if tipData.BlueScore-data.BlueScore >= m.params.PruningDepth {
			candidate = chain[i]
			break
		}
	}
	if candidate == nil {
		return nil
	}
	if havePoint && candidate.Equal(currentPoint) {
		return nil
	}

	m.pruningStore.StageCandidate(stagingArea, candidate)

	nextIndex := uint64(0)
	if havePoint {
		nextIndex = currentIndex + 1
	}
	m.pruningStore.StagePruningPoint(stagingArea, candidate, nextIndex)
	m.pastPruningPoints.Stage(stagingArea, nextIndex, candidate)
	return nil
}

// IsViolatingFinality implements model.PruningManager: a candidate violates
// finality if it is not itself a descendant of the local finality point,
// i.e. accepting it would reorg across a finalized block or onto a
// finality-conflicting chain.
func (m *Manager) IsViolatingFinality(stagingArea *model.StagingArea, candidate *externalapi.DomainHash) (bool, error) {
	chain := m.selectedChainStore.Chain()
	if len(chain) == 0 {
		return false, nil
	}
	tip := chain[len(chain)-1]
	tipData, ok := m.ghostdagStore.Get(0, tip)
	if !ok {
		return false, errors.Errorf("pruningmanager: missing GHOSTDAG data for selected tip %s", tip)
	}

	pruningPoint, _, havePruningPoint := m.pruningStore.PruningPoint()
	if !havePruningPoint {
		return false, nil
	}
	finalityPoint, err := m.depthManager.FinalityPoint(stagingArea, tipData, pruningPoint)
	if err != nil {
		return false, err
	}
	if finalityPoint == nil {
		return false, nil
	}

	idx, onChain := m.selectedChainStore.Index(candidate)
	if !onChain {
		return true, nil
	}
	finalityIdx, found := m.selectedChainStore.Index(finalityPoint)
	if !found {
		return false, nil
	}
	return idx < finalityIdx, nil
}
