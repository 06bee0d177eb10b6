// Package appmessage defines the P2P wire message set: a discriminated,
// length-delimited framed payload per message. Generalized from the usual
// appmessage package shape (MessageCommand enum plus Message/baseMessage)
// with the opcode table expanded to cover header exchange, IBD
// negotiation, and peer addressing, and the transaction/block-body
// converters trimmed since body processing and RPC surfaces are out of
// scope.
package appmessage

// MessageCommand identifies a wire message's payload type. Values are
// stable identifiers exchanged over the wire, not merely language
// constructs, so existing numeric assignments must never be reordered.
type MessageCommand uint32

const (
	CmdVersion MessageCommand = iota
	CmdVerack
	CmdReady
	CmdPing
	CmdPong

	CmdAddresses
	CmdRequestAddresses

	CmdBlock
	CmdIBDBlock
	CmdInvRelayBlock
	CmdRequestRelayBlocks
	CmdRequestIBDBlocks

	CmdTransaction
	CmdInvTransactions
	CmdRequestTransactions
	CmdTransactionNotFound

	CmdBlockLocator
	CmdIBDBlockLocator
	CmdRequestBlockLocator
	CmdRequestIBDChainBlockLocator
	CmdIBDBlockLocatorHighestHash
	CmdIBDBlockLocatorHighestHashNotFound

	CmdBlockHeaders
	CmdRequestHeaders
	CmdRequestNextHeaders
	CmdDoneHeaders

	CmdPruningPoints
	CmdRequestPruningPointAndItsAnticone

	CmdRequestPruningPointProof
	CmdPruningPointProof

	CmdBlockWithTrustedData
	CmdBlockWithTrustedDataV4
	CmdDoneBlocksWithTrustedData
	CmdTrustedData

	CmdRequestAnticone
	CmdRequestNextPruningPointAndItsAnticoneBlocks

	CmdPruningPointUTXOSetChunk
	CmdRequestPruningPointUTXOSet
	CmdRequestNextPruningPointUTXOSetChunk
	CmdDonePruningPointUTXOSetChunks

	CmdUnexpectedPruningPoint
	CmdReject
)

var commandNames = map[MessageCommand]string{
	CmdVersion: "Version", CmdVerack: "Verack", CmdReady: "Ready", CmdPing: "Ping", CmdPong: "Pong",
	CmdAddresses: "Addresses", CmdRequestAddresses: "RequestAddresses",
	CmdBlock: "Block", CmdIBDBlock: "IbdBlock", CmdInvRelayBlock: "InvRelayBlock",
	CmdRequestRelayBlocks: "RequestRelayBlocks", CmdRequestIBDBlocks: "RequestIbdBlocks",
	CmdTransaction: "Transaction", CmdInvTransactions: "InvTransactions",
	CmdRequestTransactions: "RequestTransactions", CmdTransactionNotFound: "TransactionNotFound",
	CmdBlockLocator: "BlockLocator", CmdIBDBlockLocator: "IbdBlockLocator",
	CmdRequestBlockLocator: "RequestBlockLocator", CmdRequestIBDChainBlockLocator: "RequestIbdChainBlockLocator",
	CmdIBDBlockLocatorHighestHash: "IbdBlockLocatorHighestHash", CmdIBDBlockLocatorHighestHashNotFound: "IbdBlockLocatorHighestHashNotFound",
	CmdBlockHeaders: "BlockHeaders", CmdRequestHeaders: "RequestHeaders",
	CmdRequestNextHeaders: "RequestNextHeaders", CmdDoneHeaders: "DoneHeaders",
	CmdPruningPoints: "PruningPoints", CmdRequestPruningPointAndItsAnticone: "RequestPruningPointAndItsAnticone",
	CmdRequestPruningPointProof: "RequestPruningPointProof", CmdPruningPointProof: "PruningPointProof",
	CmdBlockWithTrustedData: "BlockWithTrustedData", CmdBlockWithTrustedDataV4: "BlockWithTrustedDataV4",
	CmdDoneBlocksWithTrustedData: "DoneBlocksWithTrustedData", CmdTrustedData: "TrustedData",
	CmdRequestAnticone: "RequestAnticone", CmdRequestNextPruningPointAndItsAnticoneBlocks: "RequestNextPruningPointAndItsAnticoneBlocks",
	CmdPruningPointUTXOSetChunk: "PruningPointUtxoSetChunk", CmdRequestPruningPointUTXOSet: "RequestPruningPointUtxoSet",
	CmdRequestNextPruningPointUTXOSetChunk: "RequestNextPruningPointUtxoSetChunk", CmdDonePruningPointUTXOSetChunks: "DonePruningPointUtxoSetChunks",
	CmdUnexpectedPruningPoint: "UnexpectedPruningPoint", CmdReject: "Reject",
}

// String renders the opcode's stable wire name.
func (c MessageCommand) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Message is any wire payload type.
type Message interface {
	Command() MessageCommand
}

// baseMessage is embedded by concrete message types; it carries no state
// today but gives every message type a common anchor.
type baseMessage struct{}
