// Package headerhash computes a header's identifying hash from its
// serialized fields, using lukechampine.com/blake3 (grounded on the
// pack's erigon dependency tree, standing in for Kaspa's blake3-based
// proof-of-work hash pending the real kHeavyHash construction).
package headerhash

import (
	"encoding/binary"

	"lukechampine.com/blake3"

	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Compute derives header's hash from every field except Hash itself, the
// derived consensus fields (DAAScore, BlueScore, BlueWorkBytes), and
// PruningPoint, following the usual block-header serialization used for
// PoW hashing (consensus fields are filled in after acceptance, not
// hashed into the header's own identity).
func Compute(header *externalapi.DomainHeader) externalapi.DomainHash {
	h := blake3.New(32, nil)

	var versionBuf [2]byte
	binary.LittleEndian.PutUint16(versionBuf[:], header.Version)
	h.Write(versionBuf[:])

	for _, level := range header.ParentsByLevel {
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(level)))
		h.Write(countBuf[:])
		for _, parent := range level {
			h.Write(parent[:])
		}
	}

	h.Write(header.HashMerkleRoot[:])
	h.Write(header.AcceptedIDMerkleRoot[:])
	h.Write(header.UTXOCommitment[:])

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(header.TimestampMilliseconds))
	h.Write(tsBuf[:])

	var bitsBuf [4]byte
	binary.LittleEndian.PutUint32(bitsBuf[:], header.Bits)
	h.Write(bitsBuf[:])

	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], header.Nonce)
	h.Write(nonceBuf[:])

	sum := h.Sum(nil)
	var out externalapi.DomainHash
	copy(out[:], sum)
	return out
}
