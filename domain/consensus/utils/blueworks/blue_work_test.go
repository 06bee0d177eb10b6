package blueworks

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

func hashWithPrefix(b byte) *externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return &h
}

func TestLess_HigherWorkWins(t *testing.T) {
	lo := FromUint64(5)
	hi := FromUint64(10)
	a, b := hashWithPrefix(0x01), hashWithPrefix(0x02)

	require.True(t, Less(lo, a, hi, b), "lower work must lose regardless of hash order")
	require.False(t, Less(hi, b, lo, a))
}

func TestLess_TiedWorkSmallerHashWins(t *testing.T) {
	w := FromUint64(7)
	small, big := hashWithPrefix(0x01), hashWithPrefix(0x02)

	// On a blue_work tie, the candidate with the lexicographically smaller
	// hash is selected; Less(a, b) reports whether a is the *lesser*
	// candidate, so the smaller-hash side must report false (it is not
	// lesser - it wins the tie).
	require.False(t, Less(w, small, w, big))
	require.True(t, Less(w, big, w, small))
}

func TestAddAccumulates(t *testing.T) {
	sum := FromUint64(3).Add(FromUint64(4))
	require.Equal(t, 0, sum.Cmp(FromUint64(7)))
}

func TestGobRoundTrip(t *testing.T) {
	original := FromUint64(123456789)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(original))

	var decoded BlueWork
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	require.Equal(t, 0, original.Cmp(decoded))
}

func TestWorkFromBitsMonotonic(t *testing.T) {
	easy := WorkFromBits(0x207fffff)
	harder := WorkFromBits(0x1e0fffff)
	require.True(t, easy.Cmp(harder) < 0, "a lower-difficulty target must yield less work")
}
