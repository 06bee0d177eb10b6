// Package multiset wraps github.com/kaspanet/go-secp256k1's MultiSet as the
// MuHash accumulator the UTXO snapshot-chunk receiver folds into and
// verifies against a pruning-point header's utxo_commitment.
// Grounded directly on the familiar AddUTXOToMultiset/RemoveUTXOFromMultiset
// and calculatedMultisetHash patterns.
package multiset

import (
	"encoding/binary"

	"github.com/kaspanet/go-secp256k1"

	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/utxo"
)

// MultiSet accumulates UTXO entries into a single commitment hash.
type MultiSet struct {
	inner *secp256k1.MultiSet
}

// New returns an empty MultiSet.
func New() *MultiSet {
	return &MultiSet{inner: secp256k1.NewMultiset()}
}

func serialize(outpoint *utxo.Outpoint, entry *utxo.Entry) []byte {
	buf := make([]byte, 0, 32+4+8+8+1+len(entry.ScriptPublicKey))
	buf = append(buf, outpoint.TransactionID[:]...)
	var indexBytes [4]byte
	binary.LittleEndian.PutUint32(indexBytes[:], outpoint.Index)
	buf = append(buf, indexBytes[:]...)
	var amountBytes [8]byte
	binary.LittleEndian.PutUint64(amountBytes[:], entry.Amount)
	buf = append(buf, amountBytes[:]...)
	var blueScoreBytes [8]byte
	binary.LittleEndian.PutUint64(blueScoreBytes[:], entry.BlockBlueScore)
	buf = append(buf, blueScoreBytes[:]...)
	if entry.IsCoinbase {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, entry.ScriptPublicKey...)
	return buf
}

// Add folds a UTXO entry into the accumulator, mirroring
// AddUTXOToMultiset.
func (m *MultiSet) Add(outpoint *utxo.Outpoint, entry *utxo.Entry) {
	m.inner.Add(serialize(outpoint, entry))
}

// Remove undoes a prior Add, mirroring RemoveUTXOFromMultiset.
func (m *MultiSet) Remove(outpoint *utxo.Outpoint, entry *utxo.Entry) {
	m.inner.Remove(serialize(outpoint, entry))
}

// Commitment returns the current accumulator hash, comparable directly
// against a header's UTXOCommitment field.
func (m *MultiSet) Commitment() externalapi.DomainHash {
	return externalapi.DomainHash(*m.inner.Finalize())
}
