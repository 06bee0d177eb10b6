// Package utxo holds the UTXO entry/outpoint wire types exchanged during
// pruning-point UTXO-set transfer, trimmed down to what the MuHash
// commitment-verification path needs - this module does not execute
// transactions or maintain a live UTXO set (see DESIGN.md).
package utxo

import "github.com/kasparite/node/domain/consensus/model/externalapi"

// Outpoint identifies a spendable output by its containing transaction and
// output index.
type Outpoint struct {
	TransactionID externalapi.DomainHash
	Index         uint32
}

// Entry is a UTXO entry as streamed by the pruning-point UTXO-set transfer.
type Entry struct {
	Amount          uint64
	ScriptPublicKey []byte
	BlockBlueScore  uint64
	IsCoinbase      bool
}
