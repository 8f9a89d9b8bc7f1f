package pool

import (
	"errors"
	"fmt"

	"swapLedger/internal/muldiv"
)

// AddLiquidity deposits both assets and mints pool-share tokens.
//
// The first deposit mints primaryIn tokens. Later deposits must match the
// pool ratio within the configured tolerance and mint in proportion to the
// secondary deposit. The primary leg may not fall short of the secondary
// leg's proportional share, so neither per-share balance can drop.
func (l *Ledger) AddLiquidity(account Address, primaryIn, secondaryIn uint64) (Receipt, error) {
	p, err := l.idlePosition(account)
	if err != nil {
		return Receipt{}, err
	}
	if primaryIn == 0 || secondaryIn == 0 {
		return Receipt{}, fmt.Errorf("%w: deposit requires both assets", ErrInvalidAmount)
	}

	var minted uint64
	if l.pool.TotalLiquidityTokens == 0 {
		minted = primaryIn
	} else {
		if err := l.checkRatio(primaryIn, secondaryIn); err != nil {
			return Receipt{}, err
		}
		if err := l.checkPrimaryShare(primaryIn, secondaryIn); err != nil {
			return Receipt{}, err
		}
		minted, err = muldiv.MulDiv(secondaryIn, l.pool.TotalLiquidityTokens, l.pool.SecondaryBalance)
		if err != nil {
			return Receipt{}, fmt.Errorf("mint amount: %w", err)
		}
		if minted == 0 {
			return Receipt{}, fmt.Errorf("%w: deposit too small to mint", ErrInvalidAmount)
		}
	}

	total, err := muldiv.CheckedAdd(l.pool.TotalLiquidityTokens, minted)
	if err != nil {
		return Receipt{}, fmt.Errorf("total liquidity: %w", err)
	}
	primary, err := muldiv.CheckedAdd(l.pool.PrimaryBalance, primaryIn)
	if err != nil {
		return Receipt{}, fmt.Errorf("primary balance: %w", err)
	}
	secondary, err := muldiv.CheckedAdd(l.pool.SecondaryBalance, secondaryIn)
	if err != nil {
		return Receipt{}, fmt.Errorf("secondary balance: %w", err)
	}

	l.pool.TotalLiquidityTokens = total
	l.pool.PrimaryBalance = primary
	l.pool.SecondaryBalance = secondary
	// Bounded by the new total, so this cannot overflow.
	p.LiquidityTokens += minted

	return Receipt{
		Account:     account,
		PrimaryIn:   primaryIn,
		SecondaryIn: secondaryIn,
		Minted:      minted,
	}, nil
}

// checkRatio compares the deposit ratio with the pool ratio. Both are taken
// with the larger pool balance as numerator so the pool ratio is at least
// Scale and never truncates to zero.
func (l *Ledger) checkRatio(primaryIn, secondaryIn uint64) error {
	num, den := l.pool.PrimaryBalance, l.pool.SecondaryBalance
	txNum, txDen := primaryIn, secondaryIn
	if num < den {
		num, den = den, num
		txNum, txDen = txDen, txNum
	}

	poolRate, err := muldiv.MulDiv(num, l.params.Scale, den)
	if err != nil {
		return fmt.Errorf("pool ratio: %w", err)
	}
	txRate, err := muldiv.MulDiv(txNum, l.params.Scale, txDen)
	if errors.Is(err, muldiv.ErrOverflow) {
		return fmt.Errorf("%w: deposit ratio out of range", ErrRatioMismatch)
	}
	if err != nil {
		return fmt.Errorf("deposit ratio: %w", err)
	}

	diff := poolRate - txRate
	if txRate > poolRate {
		diff = txRate - poolRate
	}
	deviation, err := muldiv.MulDiv(diff, MaxBps, poolRate)
	if err != nil || deviation >= l.params.RatioToleranceBps {
		return fmt.Errorf("%w: pool %d, deposit %d (scale %d)", ErrRatioMismatch, poolRate, txRate, l.params.Scale)
	}
	return nil
}

// checkPrimaryShare requires primaryIn >= ceil(secondaryIn * A / B).
func (l *Ledger) checkPrimaryShare(primaryIn, secondaryIn uint64) error {
	need, rem, err := muldiv.MulDivRem(secondaryIn, l.pool.PrimaryBalance, l.pool.SecondaryBalance)
	if errors.Is(err, muldiv.ErrOverflow) {
		return fmt.Errorf("%w: deposit ratio out of range", ErrRatioMismatch)
	}
	if err != nil {
		return fmt.Errorf("primary share: %w", err)
	}
	if rem != 0 {
		if need, err = muldiv.CheckedAdd(need, 1); err != nil {
			return fmt.Errorf("%w: deposit ratio out of range", ErrRatioMismatch)
		}
	}
	if primaryIn < need {
		return fmt.Errorf("%w: primary %d below proportional share %d", ErrRatioMismatch, primaryIn, need)
	}
	return nil
}

// RemoveLiquidity burns tokens and credits the proportional share of both
// balances to the position's owed amounts.
func (l *Ledger) RemoveLiquidity(account Address, tokens uint64) (Receipt, error) {
	p, err := l.idlePosition(account)
	if err != nil {
		return Receipt{}, err
	}
	if tokens == 0 {
		return Receipt{}, fmt.Errorf("%w: burn amount must be greater than zero", ErrInvalidAmount)
	}
	if tokens > p.LiquidityTokens {
		return Receipt{}, fmt.Errorf("%w: burn %d, holding %d", ErrInsufficientLiquidity, tokens, p.LiquidityTokens)
	}

	total := l.pool.TotalLiquidityTokens
	primaryOut, err := muldiv.MulDiv(l.pool.PrimaryBalance, tokens, total)
	if err != nil {
		return Receipt{}, fmt.Errorf("primary out: %w", err)
	}
	secondaryOut, err := muldiv.MulDiv(l.pool.SecondaryBalance, tokens, total)
	if err != nil {
		return Receipt{}, fmt.Errorf("secondary out: %w", err)
	}
	if primaryOut >= l.pool.PrimaryBalance || secondaryOut >= l.pool.SecondaryBalance {
		return Receipt{}, fmt.Errorf("%w: pool balances must stay positive", ErrInsufficientLiquidity)
	}

	// The position is idle, so owed amounts start at zero.
	l.pool.TotalLiquidityTokens -= tokens
	l.pool.PrimaryBalance -= primaryOut
	l.pool.SecondaryBalance -= secondaryOut
	p.LiquidityTokens -= tokens
	p.PrimaryOwed += primaryOut
	p.SecondaryOwed += secondaryOut

	return Receipt{
		Account:      account,
		Burned:       tokens,
		PrimaryOut:   primaryOut,
		SecondaryOut: secondaryOut,
	}, nil
}
