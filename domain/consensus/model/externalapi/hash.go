package externalapi

import (
	"bytes"
	"encoding/hex"
)

// DomainHashSize is the size in bytes of a DomainHash.
const DomainHashSize = 32

// DomainHash represents the 32-byte identifier of a header.
type DomainHash [DomainHashSize]byte

// Origin is the virtual parent of the genesis block. It has no real
// header and is never written to the header store, but Processor.Init
// materializes its status, GHOSTDAG, reachability, relations and
// selected-chain/tip entries so that genesis can always compute a
// selected parent.
var Origin = DomainHash{0xff}

// None denotes the absence of a hash, used by callers that need to
// distinguish "no selected parent" from a concrete hash.
var None = DomainHash{}

// NewDomainHashFromByteSlice builds a DomainHash from a byte slice.
// Panics if the slice isn't exactly DomainHashSize long, mirroring the
// usual daghash constructors.
func NewDomainHashFromByteSlice(data []byte) *DomainHash {
	if len(data) != DomainHashSize {
		panic("NewDomainHashFromByteSlice: invalid hash length")
	}
	h := DomainHash{}
	copy(h[:], data)
	return &h
}

// Equal reports whether two hashes are identical.
func (hash *DomainHash) Equal(other *DomainHash) bool {
	if hash == nil || other == nil {
		return hash == other
	}
	return *hash == *other
}

// Less defines the total order over hashes used only for tie-breaking.
// It compares big-endian, matching daghash.Less.
func (hash *DomainHash) Less(other *DomainHash) bool {
	return bytes.Compare(hash[:], other[:]) < 0
}

// String returns the hex encoding of the hash.
func (hash DomainHash) String() string {
	return hex.EncodeToString(hash[:])
}

// IsOrigin reports whether this hash is the ORIGIN sentinel.
func (hash *DomainHash) IsOrigin() bool {
	return hash.Equal(&Origin)
}

// HashSet is a set of hashes, used for parent/children/mergeset bookkeeping.
type HashSet map[DomainHash]struct{}

// NewHashSet constructs an empty HashSet.
func NewHashSet() HashSet {
	return make(HashSet)
}

// Add inserts a hash into the set.
func (s HashSet) Add(hash *DomainHash) {
	s[*hash] = struct{}{}
}

// Contains reports whether the set holds the given hash.
func (s HashSet) Contains(hash *DomainHash) bool {
	_, ok := s[*hash]
	return ok
}

// ToSlice returns the set's members as a slice, in unspecified order.
func (s HashSet) ToSlice() []*DomainHash {
	hashes := make([]*DomainHash, 0, len(s))
	for hash := range s {
		h := hash
		hashes = append(hashes, &h)
	}
	return hashes
}
