// Package difficultymanager computes the expected difficulty bits for a new
// header from its DAA window, a compact-target generalization of Kaspa's
// windowed difficulty adjustment, grounded on the same
// blockwindow/blockwindowcache machinery as pastmediantimemanager.
package difficultymanager

import (
	"math/big"

	"github.com/kasparite/node/domain/consensus/datastructures/blockwindowcache"
	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/blockwindow"
	"github.com/kasparite/node/domain/consensus/utils/blueworks"
	"github.com/kasparite/node/domain/dagconfig"
)

// Manager computes the expected difficulty bits for a candidate header.
type Manager struct {
	ghostdagStore model.GHOSTDAGDataStore
	headers       model.HeaderStore
	cache         *blockwindowcache.Cache
	params        *dagconfig.Params
}

// New constructs a Manager.
func New(ghostdagStore model.GHOSTDAGDataStore, headers model.HeaderStore, cache *blockwindowcache.Cache, params *dagconfig.Params) *Manager {
	return &Manager{ghostdagStore: ghostdagStore, headers: headers, cache: cache, params: params}
}

// defaultBits is the bits value assigned to the genesis block and to any
// block whose window is too short to adjust difficulty from.
const defaultBits = 0x207fffff

// RequiredDifficulty returns the compact target bits expected for a new
// block whose selected parent is selectedParentHash.
func (m *Manager) RequiredDifficulty(selectedParentHash *externalapi.DomainHash) (uint32, error) {
	if selectedParentHash.IsOrigin() {
		return defaultBits, nil
	}

	var window blockwindowcache.Window
	if cached, ok := m.cache.Get(selectedParentHash); ok {
		window = cached
	} else {
		built, err := blockwindow.Build(m.ghostdagStore, selectedParentHash, m.params.DifficultyAdjustmentWindowSize)
		if err != nil {
			return 0, err
		}
		window = built
		m.cache.Add(selectedParentHash, window)
	}

	if len(window) < 2 || len(window) < m.params.DifficultyAdjustmentWindowSize {
		return defaultBits, nil
	}

	totalTarget := new(big.Int)
	var oldestTimestamp, newestTimestamp int64
	for i, blockHash := range window {
		header, ok := m.headers.HeaderByHash(blockHash)
		if !ok {
			continue
		}
		totalTarget.Add(totalTarget, blueworks.CompactToTarget(header.Bits))
		if i == 0 {
			newestTimestamp = header.TimestampMilliseconds
			oldestTimestamp = header.TimestampMilliseconds
		}
		if header.TimestampMilliseconds < oldestTimestamp {
			oldestTimestamp = header.TimestampMilliseconds
		}
		if header.TimestampMilliseconds > newestTimestamp {
			newestTimestamp = header.TimestampMilliseconds
		}
	}

	averageTarget := new(big.Int).Div(totalTarget, big.NewInt(int64(len(window))))

	actualSpanMillis := newestTimestamp - oldestTimestamp
	expectedSpanMillis := int64(len(window)-1) * m.params.TargetTimePerBlock.Milliseconds()
	if actualSpanMillis <= 0 {
		actualSpanMillis = 1
	}
	if expectedSpanMillis <= 0 {
		expectedSpanMillis = 1
	}

	adjustedTarget := new(big.Int).Mul(averageTarget, big.NewInt(actualSpanMillis))
	adjustedTarget.Div(adjustedTarget, big.NewInt(expectedSpanMillis))

	maxTarget := blueworks.CompactToTarget(defaultBits)
	if adjustedTarget.Cmp(maxTarget) > 0 {
		adjustedTarget = maxTarget
	}
	if adjustedTarget.Sign() <= 0 {
		adjustedTarget = big.NewInt(1)
	}

	return targetToCompact(adjustedTarget), nil
}

// targetToCompact is the inverse of blueworks.CompactToTarget.
func targetToCompact(target *big.Int) uint32 {
	bytes := target.Bytes()
	exponent := uint32(len(bytes))
	var mantissa uint32
	switch {
	case exponent <= 3:
		mantissa = uint32(new(big.Int).Lsh(target, uint(8*(3-exponent))).Uint64())
	default:
		shifted := new(big.Int).Rsh(target, uint(8*(exponent-3)))
		mantissa = uint32(shifted.Uint64())
	}
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return exponent<<24 | mantissa
}
