package ibd

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/kasparite/node/app/appmessage"
	"github.com/kasparite/node/domain/consensus"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/blueworks"
	"github.com/kasparite/node/domain/consensus/utils/multiset"
	"github.com/kasparite/node/domain/consensus/utils/utxo"
	"github.com/kasparite/node/domain/dagconfig"
	"github.com/kasparite/node/infrastructure/config"
	"github.com/kasparite/node/infrastructure/logger"
)

// Type is the outcome of IBD-type determination.
type Type int

const (
	// TypeSync means the common ancestor lies on the local pruning
	// point's chain; a plain header sync from it suffices.
	TypeSync Type = iota
	// TypeHeadersProof means the relay block is far enough ahead that a
	// pruning-proof bootstrap into a staging consensus is required.
	TypeHeadersProof
	// TypeNone means neither condition holds; IBD is aborted, possibly
	// due to a finality conflict.
	TypeNone
)

// locatorMaxHashes caps how many hashes buildLocator samples from the
// selected chain before it appends the chain's first hash.
const locatorMaxHashes = 64

// headerRequestTimeout and utxoChunkTimeout are the per-message timeouts
// for the syncer's responses (typically a few seconds, longer for others).
const headerRequestTimeout = 10 * time.Second
const utxoChunkTimeout = 10 * time.Second

// Flow runs one Initial Block Download session. A single Flow value is
// shared by a process and guards itself with TryAcquire so that at most
// one IBD session runs against any peer at a time.
type Flow struct {
	running int32

	params  *dagconfig.Params
	cfg     *config.Config
	log     *logger.Logger
}

// New constructs a Flow.
func New(params *dagconfig.Params, cfg *config.Config, backend *logger.Backend) *Flow {
	return &Flow{params: params, cfg: cfg, log: backend.Subsystem("IBD")}
}

// TryAcquire claims the single IBD session slot, returning false if a
// flow is already running.
func (f *Flow) TryAcquire() bool {
	return atomic.CompareAndSwapInt32(&f.running, 0, 1)
}

// Release frees the session slot.
func (f *Flow) Release() {
	atomic.StoreInt32(&f.running, 0)
}

// RelayInfo is the announcement that triggered this IBD session.
type RelayInfo struct {
	Hash      externalapi.DomainHash
	BlueWork  blueworks.BlueWork
	CreatedAt time.Time
}

// Run drives one full IBD session against peer for dag, applying the
// headers-proof bootstrap into staging when required and promoting it via
// promote on success. Callers must have called TryAcquire first and must
// call Release when Run returns.
func (f *Flow) Run(peer *PeerConn, dag *consensus.Consensus, staging *consensus.Consensus, promote func(*consensus.Consensus), relay RelayInfo) error {
	commonAncestor, syncerTip, err := f.negotiateCommonChainSegment(peer, dag)
	if err != nil {
		return errors.Wrap(err, "negotiating common chain segment")
	}

	ibdType := f.determineType(dag, commonAncestor, relay)
	switch ibdType {
	case TypeNone:
		f.log.Warnf("IBD aborted against %s: no viable sync path (possible finality conflict)", peer.Address())
		return errors.New("ibd: no viable sync path")
	case TypeHeadersProof:
		f.log.Infof("running headers-proof bootstrap against %s", peer.Address())
		if err := f.runHeadersProofPath(peer, staging); err != nil {
			return errors.Wrap(err, "headers-proof path")
		}
		promote(staging)
		return nil
	default: // TypeSync
		f.log.Infof("syncing from common ancestor %s against %s", commonAncestor, peer.Address())
		if err := f.syncHeaders(peer, dag, commonAncestor, syncerTip); err != nil {
			return errors.Wrap(err, "header sync")
		}
		return nil
	}
}

// negotiateCommonChainSegment sends a sparse locator of the local node's
// own selected chain; the syncer replies with the highest of those hashes
// it recognizes, or "not found".
func (f *Flow) negotiateCommonChainSegment(peer *PeerConn, dag *consensus.Consensus) (*externalapi.DomainHash, *externalapi.DomainHash, error) {
	locator := buildLocator(dag.SelectedChain.Chain())
	if err := peer.Send(&appmessage.BlockLocatorMessage{Hashes: locator}); err != nil {
		return nil, nil, err
	}

	msg, err := peer.Receive(headerRequestTimeout)
	if err != nil {
		return nil, nil, err
	}

	switch m := msg.(type) {
	case *appmessage.IBDBlockLocatorHighestHashMessage:
		hash := m.Hash
		return &hash, &hash, nil
	case *appmessage.IBDBlockLocatorHighestHashNotFoundMessage:
		return nil, nil, nil
	default:
		return nil, nil, errors.Errorf("unexpected message %s during locator negotiation", msg.Command())
	}
}

// buildLocator samples the selected chain with an exponentially widening
// gap from the tip backward, taking at most locatorMaxHashes sampled
// entries and then the chain's first hash if sampling did not reach it
// (so the result can hold locatorMaxHashes+1 entries).
func buildLocator(chain []*externalapi.DomainHash) []externalapi.DomainHash {
	if len(chain) == 0 {
		return nil
	}
	var out []externalapi.DomainHash
	step := 1
	i := len(chain) - 1
	for i >= 0 && len(out) < locatorMaxHashes {
		out = append(out, *chain[i])
		i -= step
		if len(out) > 8 {
			step *= 2
		}
	}
	if i > -int(step) {
		out = append(out, *chain[0])
	}
	return out
}

// determineType classifies the sync path a negotiated common ancestor
// requires.
func (f *Flow) determineType(dag *consensus.Consensus, commonAncestor *externalapi.DomainHash, relay RelayInfo) Type {
	pruningPoint, _, hasPruningPoint := dag.Pruning.PruningPoint()

	if commonAncestor != nil && hasPruningPoint {
		isAncestor, err := dag.ReachabilityManager.IsChainAncestorOf(commonAncestor, pruningPoint)
		if err == nil && isAncestor {
			return TypeSync
		}
	}

	tip, hasTip := dag.SelectedChain.Tip()
	if !hasTip {
		return TypeHeadersProof
	}
	tipData, ok := dag.GhostdagData.Get(0, tip)
	if !ok {
		return TypeNone
	}

	deepEnough := relay.BlueWork.Cmp(tipData.BlueWork) > 0
	matured := !relay.CreatedAt.IsZero() && time.Since(relay.CreatedAt) >= (f.params.FinalityDuration*3)/2
	finalityPoint, err := dag.DepthManager.FinalityPoint(nil, tipData, pruningPoint)
	finalityRecent := err == nil && finalityPoint != nil

	if deepEnough && matured && finalityRecent {
		return TypeHeadersProof
	}
	return TypeNone
}

// syncHeaders streams headers from commonAncestor to syncerTip into dag,
// the plain-sync path taken when no pruning-proof bootstrap is required.
func (f *Flow) syncHeaders(peer *PeerConn, dag *consensus.Consensus, commonAncestor, syncerTip *externalapi.DomainHash) error {
	low := externalapi.Origin
	if commonAncestor != nil {
		low = *commonAncestor
	}
	high := externalapi.Origin
	if syncerTip != nil {
		high = *syncerTip
	}
	if err := peer.Send(&appmessage.RequestHeadersMessage{LowHash: low, HighHash: high}); err != nil {
		return err
	}
	return f.consumeHeaderStream(peer, dag)
}

// consumeHeaderStream reads BlockHeaders batches until DoneHeaders,
// feeding each header through the target consensus's pipeline.
func (f *Flow) consumeHeaderStream(peer *PeerConn, dag *consensus.Consensus) error {
	for {
		msg, err := peer.Receive(headerRequestTimeout)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *appmessage.BlockHeadersMessage:
			for _, wireHeader := range m.Headers {
				header := appmessage.MsgBlockHeaderToDomainHeader(wireHeader)
				if _, err := dag.Process(header); err != nil {
					return errors.Wrap(err, "processing synced header")
				}
			}
			if err := peer.Send(&appmessage.RequestNextHeadersMessage{}); err != nil {
				return err
			}
		case *appmessage.DoneHeadersMessage:
			return nil
		default:
			return errors.Errorf("unexpected message %s during header sync", msg.Command())
		}
	}
}

// runHeadersProofPath fetches the multi-level pruning proof, applies it to
// staging, fetches the pruning point and its anticone with trusted
// GHOSTDAG data, then streams remaining headers and UTXO chunks into
// staging. Any error here means the caller must discard staging rather
// than promote it.
func (f *Flow) runHeadersProofPath(peer *PeerConn, staging *consensus.Consensus) error {
	if err := peer.Send(&appmessage.RequestPruningPointProofMessage{}); err != nil {
		return err
	}
	msg, err := peer.Receive(f.cfg.PruningProofTimeout)
	if err != nil {
		return err
	}
	proof, ok := msg.(*appmessage.PruningPointProofMessage)
	if !ok {
		return errors.Errorf("unexpected message %s awaiting pruning proof", msg.Command())
	}

	if err := validateProofShape(proof); err != nil {
		return errors.Wrap(err, "invalid pruning proof")
	}

	var pruningPointHeader *externalapi.DomainHeader
	for _, chain := range proof.Headers {
		for _, wireHeader := range chain {
			header := appmessage.MsgBlockHeaderToDomainHeader(wireHeader)
			if _, err := staging.Process(header); err != nil {
				return errors.Wrap(err, "applying pruning proof header")
			}
			pruningPointHeader = header
		}
	}

	if err := f.fetchPruningPointAndItsAnticone(peer, staging); err != nil {
		return errors.Wrap(err, "fetching pruning point anticone")
	}

	if err := f.consumeHeaderStream(peer, staging); err != nil {
		return err
	}

	if pruningPointHeader != nil {
		if err := f.streamUTXOSet(peer, pruningPointHeader); err != nil {
			return err
		}
	}
	return nil
}

// fetchPruningPointAndItsAnticone streams the pruning point and its
// anticone into staging using trusted GHOSTDAG data supplied by the
// syncer, avoiding a full GHOSTDAG recomputation over each block's entire
// past. The syncer is expected to send one TrustedDataMessage carrying
// the shared GHOSTDAG-data pool, followed by a BlockWithTrustedDataV4Message
// per block referencing that pool by index, ending with
// DoneBlocksWithTrustedDataMessage.
func (f *Flow) fetchPruningPointAndItsAnticone(peer *PeerConn, staging *consensus.Consensus) error {
	if err := peer.Send(&appmessage.RequestPruningPointAndItsAnticoneMessage{}); err != nil {
		return err
	}

	msg, err := peer.Receive(f.cfg.PruningProofTimeout)
	if err != nil {
		return err
	}
	trustedData, ok := msg.(*appmessage.TrustedDataMessage)
	if !ok {
		return errors.Errorf("unexpected message %s awaiting trusted data", msg.Command())
	}
	pool := make([]*externalapi.GhostdagData, len(trustedData.GhostdagData))
	for i, entry := range trustedData.GhostdagData {
		pool[i] = entry.Data
	}

	for {
		msg, err := peer.Receive(headerRequestTimeout)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *appmessage.BlockWithTrustedDataV4Message:
			if m.GhostdagDataIndex >= uint64(len(pool)) {
				return errors.Errorf("trusted data index %d out of range (pool size %d)", m.GhostdagDataIndex, len(pool))
			}
			header := appmessage.MsgBlockHeaderToDomainHeader(m.Header)
			trustedGhostdagDataByLevel := []*externalapi.GhostdagData{pool[m.GhostdagDataIndex]}
			if _, err := staging.ProcessTrusted(header, trustedGhostdagDataByLevel); err != nil {
				return errors.Wrap(err, "applying trusted block")
			}
			if err := peer.Send(&appmessage.RequestNextPruningPointAndItsAnticoneBlocksMessage{}); err != nil {
				return err
			}
		case *appmessage.DoneBlocksWithTrustedDataMessage:
			return nil
		default:
			return errors.Errorf("unexpected message %s during trusted block sync", msg.Command())
		}
	}
}

// validateProofShape checks the structural invariants of a pruning proof
// that can be verified without re-running full header validation:
// non-empty, level-0 present, and each level's chain internally
// parent-linked.
func validateProofShape(proof *appmessage.PruningPointProofMessage) error {
	if len(proof.Headers) == 0 || len(proof.Headers[0]) == 0 {
		return errors.New("empty pruning proof")
	}
	for level, chain := range proof.Headers {
		for i := 1; i < len(chain); i++ {
			if !chainLinked(chain[i-1], chain[i]) {
				return errors.Errorf("level %d proof chain is not parent-linked at index %d", level, i)
			}
		}
	}
	return nil
}

// chainLinked reports whether child actually descends from parent at
// level 0: parent's hash must appear among child's level-0 parents, not
// merely be non-empty.
func chainLinked(parent, child *appmessage.MsgBlockHeader) bool {
	if len(child.ParentsByLevel) == 0 || len(child.ParentsByLevel[0]) == 0 {
		return false
	}
	parentHash := appmessage.MsgBlockHeaderToDomainHeader(parent).Hash
	for _, p := range child.ParentsByLevel[0] {
		if p.Equal(&parentHash) {
			return true
		}
	}
	return false
}

// streamUTXOSet folds streamed UTXO-chunk entries into a MuHash
// accumulator and verifies it against the pruning-point header's
// commitment before returning.
func (f *Flow) streamUTXOSet(peer *PeerConn, pruningPointHeader *externalapi.DomainHeader) error {
	if err := peer.Send(&appmessage.RequestPruningPointUTXOSetMessage{PruningPointHash: pruningPointHeader.Hash}); err != nil {
		return err
	}

	accumulator := multiset.New()
	for {
		msg, err := peer.Receive(utxoChunkTimeout)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case *appmessage.PruningPointUTXOSetChunkMessage:
			for _, entry := range m.Entries {
				accumulator.Add(
					&utxo.Outpoint{TransactionID: entry.TransactionID, Index: entry.Index},
					&utxo.Entry{
						Amount:          entry.Amount,
						ScriptPublicKey: entry.ScriptPubKey,
						BlockBlueScore:  entry.BlockBlueScore,
						IsCoinbase:      entry.IsCoinbase,
					},
				)
			}
			if err := peer.Send(&appmessage.RequestNextPruningPointUTXOSetChunkMessage{}); err != nil {
				return err
			}
		case *appmessage.DonePruningPointUTXOSetChunksMessage:
			commitment := accumulator.Commitment()
			if commitment != pruningPointHeader.UTXOCommitment {
				return errors.New("utxo commitment mismatch after streaming pruning point utxo set")
			}
			return nil
		default:
			return errors.Errorf("unexpected message %s during utxo set streaming", msg.Command())
		}
	}
}
