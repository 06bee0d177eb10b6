// Package blockwindow builds the backward-looking window of blocks used by
// the difficulty and past-median-time managers, generalizing the usual
// blockwindow.BlueBlockWindow design to operate over a GHOSTDAG data store
// keyed by level instead of an in-memory blockNode chain.
package blockwindow

import (
	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Build walks backward from hash along the selected-parent chain, at each
// step taking that chain block's mergeset blues (most-work first), until
// size hashes have been collected or ORIGIN is reached. This is the window
// both the difficulty manager and the past-median-time manager fold over.
func Build(ghostdagStore model.GHOSTDAGDataStore, hash *externalapi.DomainHash, size int) ([]*externalapi.DomainHash, error) {
	window := make([]*externalapi.DomainHash, 0, size)
	current := hash

	for len(window) < size {
		if current.IsOrigin() {
			break
		}
		data, ok := ghostdagStore.Get(0, current)
		if !ok {
			break
		}
		for _, blue := range data.MergesetBlues {
			if len(window) >= size {
				break
			}
			window = append(window, blue)
		}
		if data.SelectedParent == nil {
			break
		}
		current = data.SelectedParent
	}
	return window, nil
}
