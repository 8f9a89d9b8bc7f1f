package pool

import (
	"fmt"

	"swapLedger/internal/asset"
	"swapLedger/internal/muldiv"
)

// Snapshot is a detached copy of the full ledger state.
type Snapshot struct {
	Params    Params
	Created   bool
	Pool      Pool
	Positions map[Address]Position
}

func (l *Ledger) Snapshot() Snapshot {
	positions := make(map[Address]Position, len(l.positions))
	for a, p := range l.positions {
		positions[a] = *p
	}
	return Snapshot{
		Params:    l.params,
		Created:   l.created,
		Pool:      l.pool,
		Positions: positions,
	}
}

// Restore rebuilds a ledger from a snapshot after checking its invariants.
func Restore(s Snapshot) (*Ledger, error) {
	l, err := NewLedger(s.Params)
	if err != nil {
		return nil, err
	}
	if !s.Created {
		if len(s.Positions) != 0 || s.Pool != (Pool{}) {
			return nil, fmt.Errorf("%w: state present on uncreated pool", ErrCorruptSnapshot)
		}
		return l, nil
	}

	primary, err := asset.FromSpec(s.Pool.Primary)
	if err != nil {
		return nil, fmt.Errorf("%w: primary asset: %v", ErrCorruptSnapshot, err)
	}
	secondary, err := asset.FromSpec(s.Pool.Secondary)
	if err != nil {
		return nil, fmt.Errorf("%w: secondary asset: %v", ErrCorruptSnapshot, err)
	}
	if s.Pool.FeeBps == 0 || s.Pool.FeeBps >= MaxBps {
		return nil, fmt.Errorf("%w: fee %d bps", ErrCorruptSnapshot, s.Pool.FeeBps)
	}

	var sum uint64
	for a, p := range s.Positions {
		if a == "" {
			return nil, fmt.Errorf("%w: empty account", ErrCorruptSnapshot)
		}
		sum, err = muldiv.CheckedAdd(sum, p.LiquidityTokens)
		if err != nil {
			return nil, fmt.Errorf("%w: liquidity tokens overflow", ErrCorruptSnapshot)
		}
		pos := p
		l.positions[a] = &pos
	}
	if sum != s.Pool.TotalLiquidityTokens {
		return nil, fmt.Errorf("%w: positions hold %d tokens, pool records %d", ErrCorruptSnapshot, sum, s.Pool.TotalLiquidityTokens)
	}
	if sum != 0 && (s.Pool.PrimaryBalance == 0 || s.Pool.SecondaryBalance == 0) {
		return nil, fmt.Errorf("%w: outstanding tokens against an empty balance", ErrCorruptSnapshot)
	}

	l.created = true
	l.pool = s.Pool
	l.primary = primary
	l.secondary = secondary
	return l, nil
}
