// Package pastmediantimemanager computes the past median time of a block,
// generalizing the usual PastMedianTimeManager design to the
// hash/store-handle world.
package pastmediantimemanager

import (
	"sort"

	"github.com/kasparite/node/domain/consensus/datastructures/blockwindowcache"
	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/blockwindow"
	"github.com/kasparite/node/domain/dagconfig"
)

// Manager computes past-median-time, caching BlueBlockWindow results.
type Manager struct {
	ghostdagStore model.GHOSTDAGDataStore
	headers       model.HeaderStore
	cache         *blockwindowcache.Cache
	params        *dagconfig.Params
}

// New constructs a Manager. cache is shared with nothing else; callers
// construct one per consensus instance.
func New(ghostdagStore model.GHOSTDAGDataStore, headers model.HeaderStore, cache *blockwindowcache.Cache, params *dagconfig.Params) *Manager {
	return &Manager{ghostdagStore: ghostdagStore, headers: headers, cache: cache, params: params}
}

// windowSize is 2*TimestampDeviationTolerance-1.
func (m *Manager) windowSize() int {
	return int(2*m.params.TimestampDeviationTolerance - 1)
}

// PastMedianTime returns the median timestamp, in milliseconds, of the
// window of blocks preceding hash.
func (m *Manager) PastMedianTime(hash *externalapi.DomainHash) (int64, error) {
	var window blockwindowcache.Window
	if cached, ok := m.cache.Get(hash); ok {
		window = cached
	} else {
		built, err := blockwindow.Build(m.ghostdagStore, hash, m.windowSize())
		if err != nil {
			return 0, err
		}
		window = built
		m.cache.Add(hash, window)
	}

	if len(window) == 0 {
		return 0, nil
	}

	timestamps := make([]int64, 0, len(window))
	for _, blockHash := range window {
		header, ok := m.headers.HeaderByHash(blockHash)
		if !ok {
			continue
		}
		timestamps = append(timestamps, header.TimestampMilliseconds)
	}
	if len(timestamps) == 0 {
		return 0, nil
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps[len(timestamps)/2], nil
}
