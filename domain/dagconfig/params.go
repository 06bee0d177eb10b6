// Package dagconfig holds the protocol constants that parameterize the
// consensus core, mirroring the usual dagconfig.Params usage across
// consensus/ghostdag and consensus/pastmediantime.
package dagconfig

import "time"

// KType is the GHOSTDAG k-cluster bound type, kept as its own named type
// since it appears both as a count and as a map value.
type KType uint16

// Params bundles every protocol constant a consensus instance needs.
// Mainnet and SimNet are provided; test code may also adjust or construct
// Params values for small K / shallow pruning-depth scenarios.
type Params struct {
	K KType

	MaxBlockParents       uint8
	MaxBlockLevel         int
	MergesetSizeLimit     uint64
	TimestampDeviationTolerance uint64

	TargetTimePerBlock time.Duration
	DifficultyAdjustmentWindowSize int

	FinalityDuration time.Duration
	MergeDepth       uint64
	PruningDepth     uint64
}

// Mainnet returns the production parameter set.
func Mainnet() *Params {
	return &Params{
		K:                           18,
		MaxBlockParents:             10,
		MaxBlockLevel:               225,
		MergesetSizeLimit:           180,
		TimestampDeviationTolerance: 132,
		TargetTimePerBlock:          time.Second,
		DifficultyAdjustmentWindowSize: 2641,
		FinalityDuration:            24 * time.Hour,
		MergeDepth:                  3600,
		PruningDepth:                185798,
	}
}

// SimNet returns a parameter set tuned for fast-moving unit tests: a tiny
// K, shallow merge/finality depth and a tiny pruning depth, so invariants
// like exactly-at-depth pruning can be exercised over a handful of
// headers instead of hundreds of thousands.
func SimNet() *Params {
	return &Params{
		K:                           3,
		MaxBlockParents:             10,
		MaxBlockLevel:               8,
		MergesetSizeLimit:           100,
		TimestampDeviationTolerance: 132,
		TargetTimePerBlock:          time.Millisecond,
		DifficultyAdjustmentWindowSize: 16,
		FinalityDuration:            1000 * time.Millisecond,
		MergeDepth:                  10,
		PruningDepth:                20,
	}
}
