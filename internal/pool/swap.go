package pool

import (
	"fmt"

	"swapLedger/internal/muldiv"
)

// ExchangeRate returns primary per secondary at Scale precision.
func (l *Ledger) ExchangeRate() (uint64, error) {
	rate, err := muldiv.MulDiv(l.pool.PrimaryBalance, l.params.Scale, l.pool.SecondaryBalance)
	if err != nil {
		return 0, fmt.Errorf("exchange rate: %w", err)
	}
	return rate, nil
}

// Quote returns the output and retained fee for swapping amountIn of side
// without changing state.
func (l *Ledger) Quote(side Side, amountIn uint64) (out, fee uint64, err error) {
	if err := l.requireCreated(); err != nil {
		return 0, 0, err
	}
	if side != SidePrimary && side != SideSecondary {
		return 0, 0, fmt.Errorf("%w: unknown %s", ErrInvalidAsset, side)
	}
	if amountIn == 0 {
		return 0, 0, fmt.Errorf("%w: swap amount must be greater than zero", ErrInvalidAmount)
	}
	if l.pool.PrimaryBalance == 0 || l.pool.SecondaryBalance == 0 {
		return 0, 0, fmt.Errorf("%w: pool is empty", ErrInsufficientLiquidity)
	}

	adjusted, err := muldiv.MulDiv(amountIn, uint64(MaxBps-l.pool.FeeBps), MaxBps)
	if err != nil {
		return 0, 0, fmt.Errorf("fee adjusted input: %w", err)
	}
	fee = amountIn - adjusted

	reserveIn, reserveOut := l.reserves(side)
	switch {
	case l.params.Curve == CurveConstantProduct:
		den, err := muldiv.CheckedAdd(reserveIn, adjusted)
		if err != nil {
			return 0, 0, fmt.Errorf("swap denominator: %w", err)
		}
		out, err = muldiv.MulDiv(adjusted, reserveOut, den)
		if err != nil {
			return 0, 0, fmt.Errorf("swap output: %w", err)
		}
	case side == SideSecondary:
		rate, err := l.ExchangeRate()
		if err != nil {
			return 0, 0, err
		}
		out, err = muldiv.MulDiv(rate, adjusted, l.params.Scale)
		if err != nil {
			return 0, 0, fmt.Errorf("swap output: %w", err)
		}
	default:
		out, err = muldiv.MulDiv(adjusted, reserveOut, reserveIn)
		if err != nil {
			return 0, 0, fmt.Errorf("swap output: %w", err)
		}
	}
	return out, fee, nil
}

func (l *Ledger) reserves(in Side) (reserveIn, reserveOut uint64) {
	if in == SidePrimary {
		return l.pool.PrimaryBalance, l.pool.SecondaryBalance
	}
	return l.pool.SecondaryBalance, l.pool.PrimaryBalance
}

// Swap trades amountIn of side for the other asset. The whole input stays in
// the pool and the output is credited to the position's owed amount. A
// non-zero minOut rejects outputs below it.
func (l *Ledger) Swap(account Address, side Side, amountIn, minOut uint64) (Receipt, error) {
	p, err := l.idlePosition(account)
	if err != nil {
		return Receipt{}, err
	}
	out, fee, err := l.Quote(side, amountIn)
	if err != nil {
		return Receipt{}, err
	}
	if out == 0 {
		return Receipt{}, fmt.Errorf("%w: swap too small to produce output", ErrInvalidAmount)
	}
	reserveIn, reserveOut := l.reserves(side)
	if out >= reserveOut {
		return Receipt{}, fmt.Errorf("%w: output %d drains reserve %d", ErrInsufficientLiquidity, out, reserveOut)
	}
	if out < minOut {
		return Receipt{}, fmt.Errorf("%w: got %d, want at least %d", ErrSlippage, out, minOut)
	}

	newIn, err := muldiv.CheckedAdd(reserveIn, amountIn)
	if err != nil {
		return Receipt{}, fmt.Errorf("input reserve: %w", err)
	}
	newOut := reserveOut - out
	if muldiv.Widen(newIn, newOut).Less(muldiv.Widen(reserveIn, reserveOut)) {
		return Receipt{}, fmt.Errorf("%w: %d*%d after swap", ErrInvariant, newIn, newOut)
	}

	receipt := Receipt{Account: account, FeeRetained: fee}
	if side == SidePrimary {
		l.pool.PrimaryBalance, l.pool.SecondaryBalance = newIn, newOut
		p.SecondaryOwed += out
		receipt.PrimaryIn, receipt.SecondaryOut = amountIn, out
	} else {
		l.pool.SecondaryBalance, l.pool.PrimaryBalance = newIn, newOut
		p.PrimaryOwed += out
		receipt.SecondaryIn, receipt.PrimaryOut = amountIn, out
	}
	return receipt, nil
}
