// Package ghostdagmanager computes blue-set, blue-work, blue-score and
// selected-parent for a new header given its parents.
// It generalizes the single-level GHOSTDAG algorithm to a hash/store-handle
// form, run independently per block level (level 0 is authoritative for the
// main chain; higher levels support the pruning proof).
package ghostdagmanager

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/blueworks"
	"github.com/kasparite/node/domain/dagconfig"
)

// Manager implements model.GHOSTDAGManager.
type Manager struct {
	ghostdagStore model.GHOSTDAGDataStore
	relations     model.RelationsStore
	headers       model.HeaderStore
	reachability  model.ReachabilityManager
	params        *dagconfig.Params
}

// New constructs a Manager.
func New(ghostdagStore model.GHOSTDAGDataStore, relations model.RelationsStore, headers model.HeaderStore, reachability model.ReachabilityManager, params *dagconfig.Params) *Manager {
	return &Manager{ghostdagStore: ghostdagStore, relations: relations, headers: headers, reachability: reachability, params: params}
}

// Less implements model.GHOSTDAGManager's selected-parent comparator:
// higher blue_work wins; the lexicographically smaller hash breaks ties,
// so the comparator is total and byte-exact across implementations.
func (m *Manager) Less(aHash, bHash *externalapi.DomainHash, level int) bool {
	aWork, bWork := blueworks.Zero(), blueworks.Zero()
	if aData, ok := m.ghostdagStore.Get(level, aHash); ok {
		aWork = aData.BlueWork
	}
	if bData, ok := m.ghostdagStore.Get(level, bHash); ok {
		bWork = bData.BlueWork
	}
	return blueworks.Less(aWork, aHash, bWork, bHash)
}

func (m *Manager) bluest(level int, parents []*externalapi.DomainHash) *externalapi.DomainHash {
	best := parents[0]
	for _, candidate := range parents[1:] {
		if m.Less(best, candidate, level) {
			best = candidate
		}
	}
	return best
}

// work returns a block's own per-header PoW contribution, derived from its
// committed header's difficulty bits. ORIGIN contributes no work.
func (m *Manager) work(hash *externalapi.DomainHash) blueworks.BlueWork {
	if hash.IsOrigin() {
		return blueworks.Zero()
	}
	header, ok := m.headers.HeaderByHash(hash)
	if !ok {
		return blueworks.Zero()
	}
	return blueworks.WorkFromBits(header.Bits)
}

// GHOSTDAG implements model.GHOSTDAGManager.
func (m *Manager) GHOSTDAG(stagingArea *model.StagingArea, level int, parents []*externalapi.DomainHash) (*externalapi.GhostdagData, error) {
	if len(parents) == 0 {
		return nil, errors.New("ghostdag: cannot compute data for a block with no parents")
	}

	selectedParent := m.bluest(level, parents)
	selectedParentData, ok := m.ghostdagStore.Get(level, selectedParent)
	if !ok {
		return nil, errors.Errorf("ghostdag: missing data for selected parent %s", selectedParent)
	}

	data := &externalapi.GhostdagData{
		SelectedParent:     selectedParent,
		MergesetBlues:      []*externalapi.DomainHash{selectedParent},
		BluesAnticoneSizes: map[externalapi.DomainHash]uint16{*selectedParent: 0},
	}

	mergeset, err := m.selectedParentAnticone(level, parents, selectedParent)
	if err != nil {
		return nil, err
	}

	// Selected-parent-past-first ordering: sort so
	// that candidates already deeper in the selected parent's own history
	// are classified first, via an ascending (blue_work, hash) Less sort.
	sort.Slice(mergeset, func(i, j int) bool {
		return m.Less(mergeset[i], mergeset[j], level)
	})

	for _, candidate := range mergeset {
		candidateAnticoneSizes := make(map[externalapi.DomainHash]uint16)
		var candidateAnticoneSize uint16
		possiblyBlue := true

		// Walk the selected-parent chain starting at the new header itself
		// (data.MergesetBlues, still being built by this loop) and then back
		// through each ancestor's own, already-committed MergesetBlues. A
		// candidate's anticone can include blocks that were classified blue
		// several generations ago, not only in this header's own mergeset.
		chainHash := selectedParent
		chainBlues := data.MergesetBlues
		chainAnticoneSizes := data.BluesAnticoneSizes
		chainSelectedParent := selectedParent
		onNewHeader := true

		for possiblyBlue {
			if !onNewHeader {
				isAncestor, err := m.reachability.IsDAGAncestorOf(chainHash, candidate)
				if err != nil {
					return nil, err
				}
				if isAncestor {
					// Every remaining chain ancestor is in the past of
					// candidate too, so the rest of its anticone is empty.
					break
				}
			}

			for _, blue := range chainBlues {
				isAncestor, err := m.reachability.IsDAGAncestorOf(blue, candidate)
				if err != nil {
					return nil, err
				}
				if isAncestor {
					continue
				}

				sizeSoFar := chainAnticoneSizes[*blue]
				candidateAnticoneSizes[*blue] = sizeSoFar
				candidateAnticoneSize++

				if dagconfig.KType(candidateAnticoneSize) > m.params.K {
					possiblyBlue = false
					break
				}
				if dagconfig.KType(sizeSoFar) == m.params.K {
					possiblyBlue = false
					break
				}
			}

			if !possiblyBlue || chainSelectedParent == nil || chainHash.IsOrigin() {
				break
			}

			nextHash := chainSelectedParent
			nextData, ok := m.ghostdagStore.Get(level, nextHash)
			if !ok {
				return nil, errors.Errorf("ghostdag: missing data for selected-parent-chain block %s", nextHash)
			}
			chainHash = nextHash
			chainBlues = nextData.MergesetBlues
			chainAnticoneSizes = nextData.BluesAnticoneSizes
			chainSelectedParent = nextData.SelectedParent
			onNewHeader = false
		}

		if possiblyBlue {
			data.MergesetBlues = append(data.MergesetBlues, candidate)
			data.BluesAnticoneSizes[*candidate] = candidateAnticoneSize
			for blue, size := range candidateAnticoneSizes {
				data.BluesAnticoneSizes[blue] = size + 1
			}
			if dagconfig.KType(len(data.MergesetBlues)) == m.params.K+1 {
				break
			}
		} else {
			data.MergesetReds = append(data.MergesetReds, candidate)
		}
	}

	// ORIGIN is a virtual sentinel, never a real block, so it must not
	// contribute to the count of blue blocks in this block's past even
	// though it still occupies mergeset_blues[0] as selected_parent.
	blueCount := uint64(0)
	for _, blue := range data.MergesetBlues {
		if !blue.IsOrigin() {
			blueCount++
		}
	}
	data.BlueScore = selectedParentData.BlueScore + blueCount

	work := selectedParentData.BlueWork
	for _, blue := range data.MergesetBlues {
		work = work.Add(m.work(blue))
	}
	data.BlueWork = work

	return data, nil
}

// selectedParentAnticone returns the blocks in the anticone of the selected
// parent that are reachable from the new block's other parents, visited in
// breadth-first order.
func (m *Manager) selectedParentAnticone(level int, parents []*externalapi.DomainHash, selectedParent *externalapi.DomainHash) ([]*externalapi.DomainHash, error) {
	anticoneSet := externalapi.NewHashSet()
	var anticoneSlice []*externalapi.DomainHash
	selectedParentPast := externalapi.NewHashSet()
	var queue []*externalapi.DomainHash

	for _, parent := range parents {
		if parent.Equal(selectedParent) {
			continue
		}
		anticoneSet.Add(parent)
		anticoneSlice = append(anticoneSlice, parent)
		queue = append(queue, parent)
	}

	for len(queue) > 0 {
		var current *externalapi.DomainHash
		current, queue = queue[0], queue[1:]

		currentParents, ok := m.relations.Parents(level, current)
		if !ok {
			continue
		}
		for _, parent := range currentParents {
			if anticoneSet.Contains(parent) || selectedParentPast.Contains(parent) {
				continue
			}
			isAncestorOfSelectedParent, err := m.reachability.IsDAGAncestorOf(parent, selectedParent)
			if err != nil {
				return nil, err
			}
			if isAncestorOfSelectedParent {
				selectedParentPast.Add(parent)
				continue
			}
			anticoneSet.Add(parent)
			anticoneSlice = append(anticoneSlice, parent)
			queue = append(queue, parent)
		}
	}
	return anticoneSlice, nil
}
