// Package consensus wires the stores and processes packages into a single
// instance, generalizing the classic BlockDAG struct into a
// model/externalapi-layered architecture. One Consensus corresponds to
// one running node's consensus
// state; IBD's staging-consensus swap is two Consensus instances plus an
// atomic pointer swap at the call site.
package consensus

import (
	"github.com/kasparite/node/domain/consensus/datastructures/blockwindowcache"
	"github.com/kasparite/node/domain/consensus/datastructures/depthstore"
	"github.com/kasparite/node/domain/consensus/datastructures/ghostdagdatastore"
	"github.com/kasparite/node/domain/consensus/datastructures/headerstore"
	"github.com/kasparite/node/domain/consensus/datastructures/pastpruningpointsstore"
	"github.com/kasparite/node/domain/consensus/datastructures/pruningstore"
	"github.com/kasparite/node/domain/consensus/datastructures/reachabilitydatastore"
	"github.com/kasparite/node/domain/consensus/datastructures/relationsstore"
	"github.com/kasparite/node/domain/consensus/datastructures/selectedchainstore"
	"github.com/kasparite/node/domain/consensus/datastructures/statusesstore"
	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/processes/depthmanager"
	"github.com/kasparite/node/domain/consensus/processes/difficultymanager"
	"github.com/kasparite/node/domain/consensus/processes/ghostdagmanager"
	"github.com/kasparite/node/domain/consensus/processes/headerprocessor"
	"github.com/kasparite/node/domain/consensus/processes/pastmediantimemanager"
	"github.com/kasparite/node/domain/consensus/processes/pruningmanager"
	"github.com/kasparite/node/domain/consensus/processes/reachabilitymanager"
	"github.com/kasparite/node/domain/dagconfig"
	"github.com/kasparite/node/infrastructure/config"
	"github.com/kasparite/node/infrastructure/db/database"
	"github.com/kasparite/node/infrastructure/logger"
)

// Consensus bundles every store and process for one DAG instance.
type Consensus struct {
	Headers       model.HeaderStore
	GhostdagData  model.GHOSTDAGDataStore
	Relations     model.RelationsStore
	Statuses      model.StatusStore
	SelectedChain *selectedchainstore.Store
	Depth         model.DepthStore
	Pruning       model.PruningStore
	PastPruning   model.PastPruningPointsStore
	Reachability  *reachabilitydatastore.Store

	GhostdagManager     model.GHOSTDAGManager
	ReachabilityManager model.ReachabilityManager
	DepthManager        model.DepthManager
	PruningManager      model.PruningManager

	Processor *headerprocessor.Processor
}

// New constructs a fresh Consensus instance backed by db, generalizing the
// usual dag.New wiring into this package's store/process layering.
func New(db database.DataAccessor, params *dagconfig.Params, cfg *config.Config, backend *logger.Backend) *Consensus {
	headers := headerstore.New(db)
	ghostdagData := ghostdagdatastore.New(db)
	relations := relationsstore.New()
	statuses := statusesstore.New()
	selectedChain := selectedchainstore.New()
	depth := depthstore.New()
	pruning := pruningstore.New()
	pastPruning := pastpruningpointsstore.New()
	reachabilityData := reachabilitydatastore.New()

	reachability := reachabilitymanager.New(reachabilityData)
	ghostdag := ghostdagmanager.New(ghostdagData, relations, headers, reachability, params)
	depthMgr := depthmanager.New(ghostdagData, params)
	pruningMgr := pruningmanager.New(ghostdagData, selectedChain, pruning, pastPruning, depthMgr, params)

	difficultyCacheSize := int(float64(params.DifficultyAdjustmentWindowSize) * cfg.RAMScale)
	medianTimeCacheSize := int(float64(int(2*params.TimestampDeviationTolerance-1)) * cfg.RAMScale)
	difficulty := difficultymanager.New(ghostdagData, headers, blockwindowcache.New(difficultyCacheSize), params)
	pastMedianTime := pastmediantimemanager.New(ghostdagData, headers, blockwindowcache.New(medianTimeCacheSize), params)

	processor := headerprocessor.New(
		headers, ghostdagData, relations, statuses, selectedChain, selectedChain, depth, pruning,
		ghostdag, reachability, depthMgr, pruningMgr, difficulty, pastMedianTime, params, cfg, backend,
	)

	return &Consensus{
		Headers:             headers,
		GhostdagData:        ghostdagData,
		Relations:           relations,
		Statuses:            statuses,
		SelectedChain:       selectedChain,
		Depth:               depth,
		Pruning:             pruning,
		PastPruning:         pastPruning,
		Reachability:        reachabilityData,
		GhostdagManager:     ghostdag,
		ReachabilityManager: reachability,
		DepthManager:        depthMgr,
		PruningManager:      pruningMgr,
		Processor:           processor,
	}
}

// Init materializes ORIGIN across every store and, on a non-empty restart,
// re-marks HeaderOnly every known header whose status is neither missing
// nor Invalid and which has no level-0 relations entry (grounded on the
// usual InitBlockIndex re-walk of not-yet-accepted nodes). Only the
// relations entry is checked; reachability entries are not compared and
// no header is re-staged.
func (c *Consensus) Init(knownHeaders []*externalapi.DomainHash) error {
	if err := c.Processor.Init(); err != nil {
		return err
	}
	for _, hash := range knownHeaders {
		status, ok := c.Statuses.Status(hash)
		if !ok || status == externalapi.StatusInvalid {
			continue
		}
		if _, ok := c.Relations.Parents(0, hash); !ok {
			stagingArea := model.NewStagingArea()
			c.Statuses.StageStatus(stagingArea, hash, externalapi.StatusHeaderOnly)
			_ = stagingArea.Commit()
		}
	}
	return nil
}

// ProcessGenesis runs the pipeline for the network's genesis header.
func (c *Consensus) ProcessGenesis(header *externalapi.DomainHeader) (externalapi.BlockStatus, error) {
	return c.Processor.ProcessGenesis(header)
}

// Process runs the pipeline for header.
func (c *Consensus) Process(header *externalapi.DomainHeader) (externalapi.BlockStatus, error) {
	return c.Processor.Process(header, nil)
}

// ProcessTrusted runs the pipeline for header using trustedGhostdagData
// (one entry per block level) instead of recomputing GHOSTDAG data,
// for blocks a trusted syncer has already classified. This is the
// headers-proof bootstrap's path for applying the pruning point and its
// anticone into a staging Consensus without independently recomputing
// GHOSTDAG over the whole of each block's past.
func (c *Consensus) ProcessTrusted(header *externalapi.DomainHeader, trustedGhostdagData []*externalapi.GhostdagData) (externalapi.BlockStatus, error) {
	return c.Processor.Process(header, trustedGhostdagData)
}
