package appmessage

import (
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/headerhash"
)

// DomainHeaderToMsgBlockHeader converts a validated externalapi.DomainHeader
// into its wire form, generalized down to the header-only wire surface this
// module's core covers (block bodies are out of scope).
func DomainHeaderToMsgBlockHeader(header *externalapi.DomainHeader) *MsgBlockHeader {
	return &MsgBlockHeader{
		Version:               header.Version,
		ParentsByLevel:         header.ParentsByLevel,
		HashMerkleRoot:         header.HashMerkleRoot,
		AcceptedIDMerkleRoot:   header.AcceptedIDMerkleRoot,
		UTXOCommitment:         header.UTXOCommitment,
		TimestampMilliseconds:  header.TimestampMilliseconds,
		Bits:                   header.Bits,
		Nonce:                  header.Nonce,
	}
}

// MsgBlockHeaderToDomainHeader converts a wire header into the
// externalapi.DomainHeader shape the header processor accepts. The
// consensus-derived fields (DAAScore, BlueScore, BlueWorkBytes,
// PruningPoint) are left zero; the pipeline computes and validates them.
// Hash is computed here via headerhash.Compute since it is the pipeline's
// lookup key from step 1 onward and the wire form never carries it.
func MsgBlockHeaderToDomainHeader(header *MsgBlockHeader) *externalapi.DomainHeader {
	domainHeader := &externalapi.DomainHeader{
		Version:               header.Version,
		ParentsByLevel:         header.ParentsByLevel,
		HashMerkleRoot:         header.HashMerkleRoot,
		AcceptedIDMerkleRoot:   header.AcceptedIDMerkleRoot,
		UTXOCommitment:         header.UTXOCommitment,
		TimestampMilliseconds:  header.TimestampMilliseconds,
		Bits:                   header.Bits,
		Nonce:                  header.Nonce,
	}
	domainHeader.Hash = headerhash.Compute(domainHeader)
	return domainHeader
}

// DomainAddressToNetAddress converts an addressmanager.NetAddress-shaped
// endpoint into its wire form. Kept free of an addressmanager import to
// avoid a dependency cycle (netadapter/connmanager sit below appmessage);
// callers pass the raw fields.
func DomainAddressToNetAddress(ip []byte, port uint16) *NetAddress {
	return &NetAddress{IP: ip, Port: port}
}
