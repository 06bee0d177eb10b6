// Package model defines the consensus core's capability sets: the store and
// manager interfaces that the processes package implements and the
// consensus facade wires together. Modeled as explicit method tables rather
// than Rust-style trait objects so that test harnesses can
// substitute in-memory implementations satisfying the same contracts.
package model

import (
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/blueworks"
)

// HeaderStore is the append-only store for committed headers.
type HeaderStore interface {
	Stage(stagingArea *StagingArea, hash *externalapi.DomainHash, header *externalapi.DomainHeader)
	HeaderByHash(hash *externalapi.DomainHash) (*externalapi.DomainHeader, bool)
	Has(hash *externalapi.DomainHash) bool
}

// GHOSTDAGDataStore is the append-only, per-level store for GHOSTDAG data.
type GHOSTDAGDataStore interface {
	Stage(stagingArea *StagingArea, level int, hash *externalapi.DomainHash, data *externalapi.GhostdagData)
	Get(level int, hash *externalapi.DomainHash) (*externalapi.GhostdagData, bool)
}

// RelationsStore is the mutable, per-level parent/child relations store.
type RelationsStore interface {
	StageParents(stagingArea *StagingArea, level int, hash *externalapi.DomainHash, parents []*externalapi.DomainHash)
	Parents(level int, hash *externalapi.DomainHash) ([]*externalapi.DomainHash, bool)
	Children(level int, hash *externalapi.DomainHash) []*externalapi.DomainHash
}

// StatusStore is the mutable block-status store.
type StatusStore interface {
	StageStatus(stagingArea *StagingArea, hash *externalapi.DomainHash, status externalapi.BlockStatus)
	Status(hash *externalapi.DomainHash) (externalapi.BlockStatus, bool)
}

// HeaderSelectedTipStore tracks the current headers-selected-tip (the
// header-only chain head, distinct from the fully-validated virtual sink).
type HeaderSelectedTipStore interface {
	StageTip(stagingArea *StagingArea, hash *externalapi.DomainHash)
	Tip() (*externalapi.DomainHash, bool)
}

// SelectedChainStore tracks the ordered selected-parent chain from ORIGIN
// to the current headers-selected-tip.
type SelectedChainStore interface {
	StageAddChain(stagingArea *StagingArea, toAdd []*externalapi.DomainHash, toRemove []*externalapi.DomainHash)
	Chain() []*externalapi.DomainHash
	Index(hash *externalapi.DomainHash) (int, bool)
}

// PruningStore tracks the current pruning point, its index in the selected
// chain, and the current movement candidate.
type PruningStore interface {
	StagePruningPoint(stagingArea *StagingArea, hash *externalapi.DomainHash, index uint64)
	StageCandidate(stagingArea *StagingArea, hash *externalapi.DomainHash)
	PruningPoint() (*externalapi.DomainHash, uint64, bool)
	Candidate() (*externalapi.DomainHash, bool)
}

// PastPruningPointsStore is the append-only history of pruning points.
type PastPruningPointsStore interface {
	Stage(stagingArea *StagingArea, index uint64, hash *externalapi.DomainHash)
	ByIndex(index uint64) (*externalapi.DomainHash, bool)
	Count() uint64
}

// DepthStore is the append-only store of merge-depth-root / finality-point
// entries, one per committed header.
type DepthStore interface {
	Stage(stagingArea *StagingArea, hash *externalapi.DomainHash, mergeDepthRoot, finalityPoint *externalapi.DomainHash)
	Get(hash *externalapi.DomainHash) (mergeDepthRoot, finalityPoint *externalapi.DomainHash, ok bool)
}

// ReachabilityDataStore backs the reachability manager's interval tree.
type ReachabilityDataStore interface {
	StageInterval(stagingArea *StagingArea, hash *externalapi.DomainHash, data *ReachabilityTreeData)
	Interval(hash *externalapi.DomainHash) (*ReachabilityTreeData, bool)
}

// ReachabilityTreeData is one node's interval-label bookkeeping, per level.
type ReachabilityTreeData struct {
	TreeParent   *externalapi.DomainHash
	TreeChildren []*externalapi.DomainHash
	IntervalLow  uint64
	IntervalHigh uint64
	// NextChildAllocation is a bump pointer into (IntervalLow, IntervalHigh)
	// used to hand out sub-intervals to tree children as they arrive.
	NextChildAllocation uint64
	// FutureCoveringSet is the list of blocks whose subtree covers this
	// block's future, used to answer is_dag_ancestor_of for non-chain
	// ancestors in O(log n).
	FutureCoveringSet []*externalapi.DomainHash
}

// Contains reports whether this node's interval contains other's interval,
// i.e. this node is a chain/tree ancestor of other.
func (d *ReachabilityTreeData) Contains(other *ReachabilityTreeData) bool {
	return d.IntervalLow <= other.IntervalLow && other.IntervalHigh <= d.IntervalHigh
}

// GHOSTDAGManager computes GHOSTDAG data for a candidate block at a given
// level.2.
type GHOSTDAGManager interface {
	GHOSTDAG(stagingArea *StagingArea, level int, parents []*externalapi.DomainHash) (*externalapi.GhostdagData, error)
	Less(aHash, bHash *externalapi.DomainHash, level int) bool
}

// ReachabilityManager answers ancestor queries and maintains the interval
// tree-cover.1.
type ReachabilityManager interface {
	Init(stagingArea *StagingArea)
	AddBlock(stagingArea *StagingArea, hash, reachabilityParent *externalapi.DomainHash, mergeset []*externalapi.DomainHash) error
	IsChainAncestorOf(a, b *externalapi.DomainHash) (bool, error)
	IsDAGAncestorOf(a, b *externalapi.DomainHash) (bool, error)
	HintVirtualSelectedParent(stagingArea *StagingArea, hash *externalapi.DomainHash)
}

// DepthManager computes merge-depth root and finality point.5.
type DepthManager interface {
	MergeDepthRoot(stagingArea *StagingArea, ghostdagData *externalapi.GhostdagData, pruningPoint *externalapi.DomainHash) (*externalapi.DomainHash, error)
	FinalityPoint(stagingArea *StagingArea, ghostdagData *externalapi.GhostdagData, pruningPoint *externalapi.DomainHash) (*externalapi.DomainHash, error)
}

// PruningManager decides pruning-point movement.5.
type PruningManager interface {
	UpdatePruningPointByVirtual(stagingArea *StagingArea) error
	IsViolatingFinality(stagingArea *StagingArea, candidate *externalapi.DomainHash) (bool, error)
}

// BlueWorkCmp is a re-export convenience so callers needn't import
// blueworks directly just to compare two GhostdagData blue-work values.
func BlueWorkCmp(a, b blueworks.BlueWork) int {
	return a.Cmp(b)
}
