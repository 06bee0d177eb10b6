package externalapi

import "github.com/kasparite/node/domain/consensus/utils/blueworks"

// GhostdagData is the per-block, per-level output of the GHOSTDAG manager,
//. SelectedParent is always MergesetBlues[0].
type GhostdagData struct {
	SelectedParent       *DomainHash
	MergesetBlues        []*DomainHash
	MergesetReds         []*DomainHash
	BluesAnticoneSizes   map[DomainHash]uint16
	BlueScore            uint64
	BlueWork             blueworks.BlueWork
}

// IsOriginData reports whether this is the synthetic GHOSTDAG data attached
// to the ORIGIN sentinel (blue score and work are both zero, no selected
// parent).
func (gd *GhostdagData) IsOriginData() bool {
	return gd.SelectedParent == nil
}

// Mergeset returns blues followed by reds, the full anticone-of-selected-
// parent ordering used for DAA-window bookkeeping.
func (gd *GhostdagData) Mergeset() []*DomainHash {
	all := make([]*DomainHash, 0, len(gd.MergesetBlues)+len(gd.MergesetReds))
	all = append(all, gd.MergesetBlues...)
	all = append(all, gd.MergesetReds...)
	return all
}

// IsBlue reports whether the given hash is one of this block's blues
// (including the selected parent, which is always MergesetBlues[0]).
func (gd *GhostdagData) IsBlue(hash *DomainHash) bool {
	for _, blue := range gd.MergesetBlues {
		if blue.Equal(hash) {
			return true
		}
	}
	return false
}
