package pool

import (
	"fmt"

	"swapLedger/internal/asset"
)

const (
	DefaultScale             = 1_000_000
	DefaultRatioToleranceBps = 100
	DefaultFeeBps            = 300
	MaxBps                   = 10_000
)

// Address identifies an account. The ledger treats it as an opaque string.
type Address string

// Side selects one of the two pool assets.
type Side uint8

const (
	SidePrimary Side = iota + 1
	SideSecondary
)

func (s Side) String() string {
	switch s {
	case SidePrimary:
		return "primary"
	case SideSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// ParseSide accepts "primary"/"secondary" or the short forms "a"/"b".
func ParseSide(v string) (Side, error) {
	switch v {
	case "primary", "a", "A":
		return SidePrimary, nil
	case "secondary", "b", "B":
		return SideSecondary, nil
	default:
		return 0, fmt.Errorf("unknown side %q", v)
	}
}

// Curve selects the swap pricing function.
type Curve string

const (
	// CurveLinear prices a swap at the current balance ratio.
	CurveLinear Curve = "linear"
	// CurveConstantProduct prices a swap along x*y=k.
	CurveConstantProduct Curve = "constant_product"
)

// Params are fixed for the lifetime of a ledger.
type Params struct {
	Scale             uint64
	RatioToleranceBps uint64
	Curve             Curve
}

func DefaultParams() Params {
	return Params{
		Scale:             DefaultScale,
		RatioToleranceBps: DefaultRatioToleranceBps,
		Curve:             CurveLinear,
	}
}

func (p Params) Validate() error {
	if p.Scale == 0 {
		return fmt.Errorf("%w: scale must be greater than zero", ErrInvalidParams)
	}
	if p.RatioToleranceBps == 0 || p.RatioToleranceBps > MaxBps {
		return fmt.Errorf("%w: ratio tolerance %d bps", ErrInvalidParams, p.RatioToleranceBps)
	}
	switch p.Curve {
	case CurveLinear, CurveConstantProduct:
	default:
		return fmt.Errorf("%w: unknown curve %q", ErrInvalidParams, p.Curve)
	}
	return nil
}

// Pool is the shared market state.
type Pool struct {
	PrimaryBalance       uint64
	SecondaryBalance     uint64
	TotalLiquidityTokens uint64
	FeeBps               uint16
	Creator              Address
	Escrow               Address
	Primary              asset.Spec
	Secondary            asset.Spec
}

// Position is one account's stake and pending withdrawal.
type Position struct {
	LiquidityTokens uint64
	PrimaryOwed     uint64
	SecondaryOwed   uint64
}

// Busy reports whether a withdrawal is pending.
func (p Position) Busy() bool {
	return p.PrimaryOwed != 0 || p.SecondaryOwed != 0
}

func (p Position) Empty() bool {
	return p.LiquidityTokens == 0 && !p.Busy()
}

// Receipt describes the effect of a single operation.
type Receipt struct {
	Account       Address
	PrimaryIn     uint64
	SecondaryIn   uint64
	PrimaryOut    uint64
	SecondaryOut  uint64
	Minted        uint64
	Burned        uint64
	FeeRetained   uint64
	PrimaryPaid   uint64
	SecondaryPaid uint64
}
