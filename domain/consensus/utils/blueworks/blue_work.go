// Package blueworks centralizes the 192-bit blue_work arithmetic and the
// (blue_work, hash) selected-parent comparator so that every GHOSTDAG level
// shares byte-exact tie-breaking.
package blueworks

import (
	"math/big"

	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// BlueWork is a 192-bit unsigned accumulator of proof-of-work, stored as
// a big.Int under the hood but exposed as a value type so callers can
// freely copy it the way a plain uint64 blueScore field would be copied.
type BlueWork struct {
	value *big.Int
}

// Zero is the additive identity.
func Zero() BlueWork {
	return BlueWork{value: new(big.Int)}
}

// FromUint64 wraps a plain work value, used for PoW target -> work
// conversion of a single header.
func FromUint64(work uint64) BlueWork {
	return BlueWork{value: new(big.Int).SetUint64(work)}
}

// FromBigInt wraps an existing big.Int without copying.
func FromBigInt(v *big.Int) BlueWork {
	return BlueWork{value: v}
}

// Add returns a new BlueWork equal to bw+other.
func (bw BlueWork) Add(other BlueWork) BlueWork {
	return BlueWork{value: new(big.Int).Add(bw.bigInt(), other.bigInt())}
}

// Cmp returns -1, 0 or 1 as bw is less than, equal to, or greater than other.
func (bw BlueWork) Cmp(other BlueWork) int {
	return bw.bigInt().Cmp(other.bigInt())
}

func (bw BlueWork) bigInt() *big.Int {
	if bw.value == nil {
		return new(big.Int)
	}
	return bw.value
}

// Bytes returns the big-endian byte representation, truncated/padded to
// 24 bytes (192 bits).
func (bw BlueWork) Bytes() [24]byte {
	var out [24]byte
	b := bw.bigInt().Bytes()
	if len(b) > 24 {
		b = b[len(b)-24:]
	}
	copy(out[24-len(b):], b)
	return out
}

// String renders the decimal value, for logging.
func (bw BlueWork) String() string {
	return bw.bigInt().String()
}

// GobEncode implements gob.GobEncoder so BlueWork can be stored alongside
// the rest of a GhostdagData struct without exposing the underlying
// big.Int field.
func (bw BlueWork) GobEncode() ([]byte, error) {
	b := bw.Bytes()
	return b[:], nil
}

// GobDecode implements gob.GobDecoder.
func (bw *BlueWork) GobDecode(data []byte) error {
	bw.value = new(big.Int).SetBytes(data)
	return nil
}

// Less implements the fixed selected-parent comparator: higher blue_work
// wins; the lexicographically smaller hash breaks ties.
// It returns true iff (aWork, aHash) should be considered the *lesser* of
// the two candidates (i.e. NOT the selected parent).
func Less(aWork BlueWork, aHash *externalapi.DomainHash, bWork BlueWork, bHash *externalapi.DomainHash) bool {
	cmp := aWork.Cmp(bWork)
	if cmp != 0 {
		return cmp < 0
	}
	return bHash.Less(aHash)
}
