// Package muldiv computes floor(m1*m2/d) for 64-bit operands without a
// 128-bit divide. The double-width numerator comes from a single widening
// multiply and is reduced by two-digit long division in base 2^32.
//
// The result is exact for every input whose quotient fits in 64 bits;
// anything larger fails with ErrOverflow instead of wrapping.
package muldiv

import (
	"errors"
	"math"
	"math/bits"
)

var (
	ErrDivisionByZero = errors.New("muldiv: division by zero")
	ErrOverflow       = errors.New("muldiv: result overflows 64 bits")
	ErrUnderflow      = errors.New("muldiv: subtraction underflows")
)

const (
	digitBits = 32
	digitBase = uint64(1) << digitBits
	digitMask = digitBase - 1
)

// MulDiv returns floor(m1*m2/d).
func MulDiv(m1, m2, d uint64) (uint64, error) {
	q, _, err := MulDivRem(m1, m2, d)
	return q, err
}

// MulDivRem returns the quotient and remainder of m1*m2 divided by d.
func MulDivRem(m1, m2, d uint64) (q, r uint64, err error) {
	if d == 0 {
		return 0, 0, ErrDivisionByZero
	}
	p := Widen(m1, m2)
	if p.Hi >= d {
		return 0, 0, ErrOverflow
	}
	if p.Hi == 0 {
		return p.Lo / d, p.Lo % d, nil
	}

	// Normalize so the divisor has its top bit set; the quotient is unchanged
	// and the remainder is scaled by the same shift.
	shift := uint(bits.LeadingZeros64(d))
	v := d << shift
	top := p.Hi << shift
	if shift > 0 {
		top |= p.Lo >> (64 - shift)
	}
	low := p.Lo << shift

	q1, rem := divDigit(top, low>>digitBits, v)
	q0, rem := divDigit(rem, low&digitMask, v)

	return q1<<digitBits | q0, rem >> shift, nil
}

// divDigit divides the 96-bit value top*2^32 + digit by the normalized
// divisor v, where top < v and digit < 2^32. It returns a single base-2^32
// quotient digit and the remainder.
func divDigit(top, digit, v uint64) (uint64, uint64) {
	num := Uint128{Hi: top >> digitBits, Lo: (top&digitMask)<<digitBits | digit}

	qhat := top / (v >> digitBits)
	if qhat > digitMask {
		qhat = digitMask
	}
	prod := Widen(qhat, v)
	for num.Less(prod) {
		qhat--
		prod = Widen(qhat, v)
	}

	// num - prod is below v, so at most one borrow crosses into the high limb.
	var rem uint64
	if num.Lo >= prod.Lo {
		rem = num.Lo - prod.Lo
	} else {
		rem = num.Lo + (math.MaxUint64 - prod.Lo) + 1
	}
	return qhat, rem
}
