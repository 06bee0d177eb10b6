package blueworks

import "math/big"

// maxTarget256 is 2^256, the normalizing constant used to convert a
// compact difficulty target into a work value: work = 2^256 / (target+1).
var maxTarget256 = new(big.Int).Lsh(big.NewInt(1), 256)

// CompactToTarget expands the Bitcoin/Kaspa-style compact difficulty
// encoding ("bits") into a full target value.
func CompactToTarget(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff
	target := new(big.Int).SetUint64(uint64(mantissa))
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		target.Lsh(target, uint(8*(exponent-3)))
	}
	return target
}

// WorkFromBits returns the per-header proof-of-work contribution implied
// by a compact difficulty target, used by the GHOSTDAG manager's
// blue_work accumulation" term).
func WorkFromBits(bits uint32) BlueWork {
	target := CompactToTarget(bits)
	if target.Sign() <= 0 {
		return FromUint64(1)
	}
	denom := new(big.Int).Add(target, big.NewInt(1))
	work := new(big.Int).Div(maxTarget256, denom)
	return FromBigInt(work)
}
