package muldiv

import (
	"math/big"
	"math/bits"
)

// Uint128 is an unsigned 128-bit value held as two 64-bit limbs.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Widen returns the full 128-bit product of x and y.
func Widen(x, y uint64) Uint128 {
	hi, lo := bits.Mul64(x, y)
	return Uint128{Hi: hi, Lo: lo}
}

// Cmp returns -1, 0 or +1 depending on whether u is less than, equal to or greater than v.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

func (u Uint128) Less(v Uint128) bool {
	return u.Cmp(v) < 0
}

// IsUint64 reports whether u fits in a single limb.
func (u Uint128) IsUint64() bool {
	return u.Hi == 0
}

// Big converts u into a newly allocated big.Int.
func (u Uint128) Big() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(u.Lo))
}

func (u Uint128) String() string {
	return u.Big().String()
}

// CheckedAdd returns x+y or ErrOverflow.
func CheckedAdd(x, y uint64) (uint64, error) {
	sum, carry := bits.Add64(x, y, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns x-y or ErrUnderflow.
func CheckedSub(x, y uint64) (uint64, error) {
	diff, borrow := bits.Sub64(x, y, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// CheckedMul returns x*y or ErrOverflow.
func CheckedMul(x, y uint64) (uint64, error) {
	hi, lo := bits.Mul64(x, y)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}
