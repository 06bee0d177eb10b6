package appmessage

import "github.com/kasparite/node/domain/consensus/model/externalapi"

// VersionMessage is the handshake opener, carrying the sender's protocol
// capability advertisement.
type VersionMessage struct {
	baseMessage
	ProtocolVersion uint32
	Network         string
	Services        uint64
	Timestamp       int64
	ID              [16]byte
	UserAgent       string
}

func (m *VersionMessage) Command() MessageCommand { return CmdVersion }

// VerackMessage acknowledges a VersionMessage.
type VerackMessage struct{ baseMessage }

func (m *VerackMessage) Command() MessageCommand { return CmdVerack }

// ReadyMessage signals the handshake is complete and normal traffic may
// begin.
type ReadyMessage struct{ baseMessage }

func (m *ReadyMessage) Command() MessageCommand { return CmdReady }

// PingMessage carries a nonce the peer must echo back in a PongMessage.
type PingMessage struct {
	baseMessage
	Nonce uint64
}

func (m *PingMessage) Command() MessageCommand { return CmdPing }

// PongMessage echoes a PingMessage's nonce.
type PongMessage struct {
	baseMessage
	Nonce uint64
}

func (m *PongMessage) Command() MessageCommand { return CmdPong }

// NetAddress is the wire form of a reachable peer endpoint.
type NetAddress struct {
	IP   []byte
	Port uint16
}

// AddressesMessage carries a batch of known peer addresses.
type AddressesMessage struct {
	baseMessage
	AddressList []*NetAddress
}

func (m *AddressesMessage) Command() MessageCommand { return CmdAddresses }

// RequestAddressesMessage asks a peer for its known addresses.
type RequestAddressesMessage struct{ baseMessage }

func (m *RequestAddressesMessage) Command() MessageCommand { return CmdRequestAddresses }

// MsgBlockHeader is the wire layout of a header, independent of
// externalapi.DomainHeader so the codec can evolve without touching
// consensus types.
type MsgBlockHeader struct {
	Version               uint16
	ParentsByLevel        [][]*externalapi.DomainHash
	HashMerkleRoot        externalapi.DomainHash
	AcceptedIDMerkleRoot  externalapi.DomainHash
	UTXOCommitment        externalapi.DomainHash
	TimestampMilliseconds int64
	Bits                  uint32
	Nonce                 uint64
}

// BlockHeadersMessage streams a batch of headers, used both for relay and
// for IBD header sync.
type BlockHeadersMessage struct {
	baseMessage
	Headers []*MsgBlockHeader
}

func (m *BlockHeadersMessage) Command() MessageCommand { return CmdBlockHeaders }

// RequestHeadersMessage asks for headers between two locator points.
type RequestHeadersMessage struct {
	baseMessage
	LowHash  externalapi.DomainHash
	HighHash externalapi.DomainHash
}

func (m *RequestHeadersMessage) Command() MessageCommand { return CmdRequestHeaders }

// RequestNextHeadersMessage continues a previously started header stream.
type RequestNextHeadersMessage struct{ baseMessage }

func (m *RequestNextHeadersMessage) Command() MessageCommand { return CmdRequestNextHeaders }

// DoneHeadersMessage ends a header stream.
type DoneHeadersMessage struct{ baseMessage }

func (m *DoneHeadersMessage) Command() MessageCommand { return CmdDoneHeaders }

// InvRelayBlockMessage announces a newly seen block hash.
type InvRelayBlockMessage struct {
	baseMessage
	Hash externalapi.DomainHash
}

func (m *InvRelayBlockMessage) Command() MessageCommand { return CmdInvRelayBlock }

// RequestRelayBlocksMessage requests full relay blocks by hash.
type RequestRelayBlocksMessage struct {
	baseMessage
	Hashes []externalapi.DomainHash
}

func (m *RequestRelayBlocksMessage) Command() MessageCommand { return CmdRequestRelayBlocks }

// RequestIBDBlocksMessage requests block bodies during IBD body sync.
type RequestIBDBlocksMessage struct {
	baseMessage
	Hashes []externalapi.DomainHash
}

func (m *RequestIBDBlocksMessage) Command() MessageCommand { return CmdRequestIBDBlocks }

// BlockLocatorMessage carries a sparse chain of hashes used to negotiate a
// common chain segment.
type BlockLocatorMessage struct {
	baseMessage
	Hashes []externalapi.DomainHash
}

func (m *BlockLocatorMessage) Command() MessageCommand { return CmdBlockLocator }

// RequestBlockLocatorMessage asks a peer for a BlockLocatorMessage between
// two hashes.
type RequestBlockLocatorMessage struct {
	baseMessage
	HighHash    externalapi.DomainHash
	LimitHashes uint32
}

func (m *RequestBlockLocatorMessage) Command() MessageCommand { return CmdRequestBlockLocator }

// IBDBlockLocatorHighestHashMessage reports the syncer's highest known
// chain hash among a locator's candidates.
type IBDBlockLocatorHighestHashMessage struct {
	baseMessage
	Hash externalapi.DomainHash
}

func (m *IBDBlockLocatorHighestHashMessage) Command() MessageCommand {
	return CmdIBDBlockLocatorHighestHash
}

// IBDBlockLocatorHighestHashNotFoundMessage reports that none of a
// locator's hashes were found, i.e. the syncer's highest known chain hash
// among the candidates is none.
type IBDBlockLocatorHighestHashNotFoundMessage struct{ baseMessage }

func (m *IBDBlockLocatorHighestHashNotFoundMessage) Command() MessageCommand {
	return CmdIBDBlockLocatorHighestHashNotFound
}

// PruningPointsMessage streams the historical pruning-point chain.
type PruningPointsMessage struct {
	baseMessage
	Headers []*MsgBlockHeader
}

func (m *PruningPointsMessage) Command() MessageCommand { return CmdPruningPoints }

// RequestPruningPointProofMessage requests the multi-level pruning proof.
type RequestPruningPointProofMessage struct{ baseMessage }

func (m *RequestPruningPointProofMessage) Command() MessageCommand {
	return CmdRequestPruningPointProof
}

// PruningPointProofMessage carries the multi-level pruning proof: one
// header chain per block level.
type PruningPointProofMessage struct {
	baseMessage
	Headers [][]*MsgBlockHeader
}

func (m *PruningPointProofMessage) Command() MessageCommand { return CmdPruningPointProof }

// RequestPruningPointAndItsAnticoneMessage begins the trusted-block
// streaming session that delivers the pruning point and its anticone with
// already-verified GHOSTDAG data attached, the headers-proof bootstrap's
// way of populating a staging consensus without recomputing GHOSTDAG over
// each block's full past.
type RequestPruningPointAndItsAnticoneMessage struct{ baseMessage }

func (m *RequestPruningPointAndItsAnticoneMessage) Command() MessageCommand {
	return CmdRequestPruningPointAndItsAnticone
}

// RequestAnticoneMessage asks for the anticone of blockHash restricted to
// the past of contextHash.
type RequestAnticoneMessage struct {
	baseMessage
	BlockHash   externalapi.DomainHash
	ContextHash externalapi.DomainHash
}

func (m *RequestAnticoneMessage) Command() MessageCommand { return CmdRequestAnticone }

// MsgGhostdagData is the wire form of one block's trusted GHOSTDAG data at
// a single level, keyed by the hash it was computed for so a receiver can
// attach it to the header it arrives with.
type MsgGhostdagData struct {
	Hash externalapi.DomainHash
	Data *externalapi.GhostdagData
}

// TrustedDataMessage streams the shared pool of already-verified GHOSTDAG
// data that subsequent BlockWithTrustedDataV4Message entries reference by
// index, so GHOSTDAG data shared across a wide anticone is sent once
// rather than repeated per block.
type TrustedDataMessage struct {
	baseMessage
	GhostdagData []*MsgGhostdagData
}

func (m *TrustedDataMessage) Command() MessageCommand { return CmdTrustedData }

// BlockWithTrustedDataMessage carries one header together with its own
// trusted GHOSTDAG data, self-contained and used when the data is not
// worth sharing through a TrustedDataMessage pool.
type BlockWithTrustedDataMessage struct {
	baseMessage
	Header       *MsgBlockHeader
	GhostdagData []*MsgGhostdagData
}

func (m *BlockWithTrustedDataMessage) Command() MessageCommand { return CmdBlockWithTrustedData }

// BlockWithTrustedDataV4Message is the batched form: GhostdagDataIndex
// selects this block's entry out of the preceding TrustedDataMessage's
// pool instead of repeating it.
type BlockWithTrustedDataV4Message struct {
	baseMessage
	Header            *MsgBlockHeader
	GhostdagDataIndex uint64
}

func (m *BlockWithTrustedDataV4Message) Command() MessageCommand { return CmdBlockWithTrustedDataV4 }

// DoneBlocksWithTrustedDataMessage ends a trusted-block streaming session.
type DoneBlocksWithTrustedDataMessage struct{ baseMessage }

func (m *DoneBlocksWithTrustedDataMessage) Command() MessageCommand {
	return CmdDoneBlocksWithTrustedData
}

// RequestNextPruningPointAndItsAnticoneBlocksMessage continues a trusted-
// block streaming session.
type RequestNextPruningPointAndItsAnticoneBlocksMessage struct{ baseMessage }

func (m *RequestNextPruningPointAndItsAnticoneBlocksMessage) Command() MessageCommand {
	return CmdRequestNextPruningPointAndItsAnticoneBlocks
}

// UTXOSetChunkEntry is one streamed (outpoint, entry) pair of the pruning
// point's UTXO set.
type UTXOSetChunkEntry struct {
	TransactionID  externalapi.DomainHash
	Index          uint32
	Amount         uint64
	ScriptPubKey   []byte
	BlockBlueScore uint64
	IsCoinbase     bool
}

// PruningPointUTXOSetChunkMessage streams a fixed-size batch of UTXO
// entries during IBD.
type PruningPointUTXOSetChunkMessage struct {
	baseMessage
	Entries []*UTXOSetChunkEntry
}

func (m *PruningPointUTXOSetChunkMessage) Command() MessageCommand {
	return CmdPruningPointUTXOSetChunk
}

// RequestPruningPointUTXOSetMessage begins a UTXO set streaming session.
type RequestPruningPointUTXOSetMessage struct {
	baseMessage
	PruningPointHash externalapi.DomainHash
}

func (m *RequestPruningPointUTXOSetMessage) Command() MessageCommand {
	return CmdRequestPruningPointUTXOSet
}

// RequestNextPruningPointUTXOSetChunkMessage continues a streaming session.
type RequestNextPruningPointUTXOSetChunkMessage struct{ baseMessage }

func (m *RequestNextPruningPointUTXOSetChunkMessage) Command() MessageCommand {
	return CmdRequestNextPruningPointUTXOSetChunk
}

// DonePruningPointUTXOSetChunksMessage ends a UTXO set streaming session.
type DonePruningPointUTXOSetChunksMessage struct{ baseMessage }

func (m *DonePruningPointUTXOSetChunksMessage) Command() MessageCommand {
	return CmdDonePruningPointUTXOSetChunks
}

// UnexpectedPruningPointMessage signals that the syncer's pruning point no
// longer matches what was negotiated, aborting IBD.
type UnexpectedPruningPointMessage struct{ baseMessage }

func (m *UnexpectedPruningPointMessage) Command() MessageCommand {
	return CmdUnexpectedPruningPoint
}

// RejectMessage ends a session with a human-readable reason.
type RejectMessage struct {
	baseMessage
	Reason string
}

func (m *RejectMessage) Command() MessageCommand { return CmdReject }
