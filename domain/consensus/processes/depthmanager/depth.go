// Package depthmanager computes merge-depth root and finality point for a
// header, walking the selected-parent chain backward from the header's
// selected parent until the blue-score distance requirement is met.
package depthmanager

import (
	"github.com/pkg/errors"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/dagconfig"
)

// Manager implements model.DepthManager.
type Manager struct {
	ghostdagStore model.GHOSTDAGDataStore
	params        *dagconfig.Params
}

// New constructs a Manager.
func New(ghostdagStore model.GHOSTDAGDataStore, params *dagconfig.Params) *Manager {
	return &Manager{ghostdagStore: ghostdagStore, params: params}
}

// walkBackToDepth returns the deepest selected-chain ancestor of start whose
// blue-score distance from referenceBlueScore is >= depth, stopping at
// pruningPoint if reached first.
func (m *Manager) walkBackToDepth(start *externalapi.DomainHash, referenceBlueScore, depth uint64, pruningPoint *externalapi.DomainHash) (*externalapi.DomainHash, error) {
	current := start
	for {
		if current.IsOrigin() {
			return current, nil
		}
		data, ok := m.ghostdagStore.Get(0, current)
		if !ok {
			return nil, errors.Errorf("depthmanager: missing GHOSTDAG data for %s", current)
		}
		if referenceBlueScore-data.BlueScore >= depth {
			return current, nil
		}
		if pruningPoint != nil && current.Equal(pruningPoint) {
			return current, nil
		}
		if data.SelectedParent == nil {
			return current, nil
		}
		current = data.SelectedParent
	}
}

// MergeDepthRoot implements model.DepthManager.
func (m *Manager) MergeDepthRoot(stagingArea *model.StagingArea, ghostdagData *externalapi.GhostdagData, pruningPoint *externalapi.DomainHash) (*externalapi.DomainHash, error) {
	if ghostdagData.SelectedParent == nil {
		return &externalapi.Origin, nil
	}
	return m.walkBackToDepth(ghostdagData.SelectedParent, ghostdagData.BlueScore, m.params.MergeDepth, pruningPoint)
}

// FinalityPoint implements model.DepthManager.
func (m *Manager) FinalityPoint(stagingArea *model.StagingArea, ghostdagData *externalapi.GhostdagData, pruningPoint *externalapi.DomainHash) (*externalapi.DomainHash, error) {
	if ghostdagData.SelectedParent == nil {
		return &externalapi.Origin, nil
	}
	finalityDepth := finalityDepthFromDuration(m.params)
	return m.walkBackToDepth(ghostdagData.SelectedParent, ghostdagData.BlueScore, finalityDepth, pruningPoint)
}

// finalityDepthFromDuration converts the configured finality duration into a
// blue-score distance, assuming one block per TargetTimePerBlock, the same
// way the pastmediantime/difficulty managers relate time to blue-score.
func finalityDepthFromDuration(params *dagconfig.Params) uint64 {
	if params.TargetTimePerBlock <= 0 {
		return 0
	}
	return uint64(params.FinalityDuration / params.TargetTimePerBlock)
}
