package externalapi

// DomainHeader is the wire-independent representation of a block header,
//. ParentsByLevel[0] holds the direct (level-0) parents;
// higher levels are derived by the parents manager from level-0 parents
// using each ancestor's block level.
type DomainHeader struct {
	Hash                 DomainHash
	Version              uint16
	ParentsByLevel       [][]*DomainHash
	HashMerkleRoot       DomainHash
	AcceptedIDMerkleRoot DomainHash
	UTXOCommitment       DomainHash
	TimestampMilliseconds int64
	Bits                 uint32
	Nonce                uint64
	DAAScore             uint64
	BlueScore            uint64
	BlueWorkBytes        [24]byte
	PruningPoint         DomainHash
}

// DirectParents returns the level-0 (direct) parent hashes.
func (h *DomainHeader) DirectParents() []*DomainHash {
	if len(h.ParentsByLevel) == 0 {
		return nil
	}
	return h.ParentsByLevel[0]
}

// BlockLevel is not stored on the header itself, and no function in this
// module derives it from the PoW hash: the header processor runs every
// level from 0 to the configured MaxBlockLevel over the header's declared
// ParentsByLevel.

// BlockStatus is the lifecycle state of a header.
type BlockStatus uint8

const (
	// StatusHeaderOnly marks a header that passed the full pipeline but
	// whose block body has not yet been validated.
	StatusHeaderOnly BlockStatus = iota
	// StatusValid marks a fully validated block (header + body + UTXO).
	StatusValid
	// StatusInvalid is terminal: the header or an ancestor failed validation.
	StatusInvalid
	// StatusUTXOPendingVerification marks a header whose body was accepted
	// but whose UTXO/virtual-state update has not yet run.
	StatusUTXOPendingVerification
	// StatusUTXOValid marks a header whose virtual-state update completed.
	StatusUTXOValid
)

// String renders the status name for logging.
func (s BlockStatus) String() string {
	switch s {
	case StatusHeaderOnly:
		return "HeaderOnly"
	case StatusValid:
		return "Valid"
	case StatusInvalid:
		return "Invalid"
	case StatusUTXOPendingVerification:
		return "UTXOPendingVerification"
	case StatusUTXOValid:
		return "UTXOValid"
	default:
		return "Unknown"
	}
}

// KnownInvalid reports whether the status is terminal.
func (s BlockStatus) KnownInvalid() bool {
	return s == StatusInvalid
}
