package model

import (
	"fmt"
	"sort"

	"swapLedger/internal/asset"
	"swapLedger/internal/pool"
)

// PoolSnapshot is the persisted form of a ledger.
type PoolSnapshot struct {
	Pool                 string           `json:"pool"`
	LastSeq              uint64           `json:"last_seq"`
	Scale                uint64           `json:"scale"`
	RatioToleranceBps    uint64           `json:"ratio_tolerance_bps"`
	Curve                string           `json:"curve"`
	Created              bool             `json:"created"`
	PrimaryBalance       uint64           `json:"primary_balance"`
	SecondaryBalance     uint64           `json:"secondary_balance"`
	TotalLiquidityTokens uint64           `json:"total_liquidity_tokens"`
	FeeBps               uint16           `json:"fee_bps"`
	Creator              string           `json:"creator,omitempty"`
	Escrow               string           `json:"escrow,omitempty"`
	PrimaryAsset         asset.Spec       `json:"primary_asset"`
	SecondaryAsset       asset.Spec       `json:"secondary_asset"`
	Positions            []PositionRecord `json:"positions"`
	TakenAt              string           `json:"taken_at"`
}

// PositionRecord is one account's position inside a PoolSnapshot.
type PositionRecord struct {
	Account         string `json:"account"`
	LiquidityTokens uint64 `json:"liquidity_tokens"`
	PrimaryOwed     uint64 `json:"primary_owed"`
	SecondaryOwed   uint64 `json:"secondary_owed"`
}

// NewPoolSnapshot flattens a ledger snapshot. Positions are sorted by account.
func NewPoolSnapshot(name string, lastSeq uint64, s pool.Snapshot) PoolSnapshot {
	positions := make([]PositionRecord, 0, len(s.Positions))
	for a, p := range s.Positions {
		positions = append(positions, PositionRecord{
			Account:         string(a),
			LiquidityTokens: p.LiquidityTokens,
			PrimaryOwed:     p.PrimaryOwed,
			SecondaryOwed:   p.SecondaryOwed,
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Account < positions[j].Account })

	return PoolSnapshot{
		Pool:                 name,
		LastSeq:              lastSeq,
		Scale:                s.Params.Scale,
		RatioToleranceBps:    s.Params.RatioToleranceBps,
		Curve:                string(s.Params.Curve),
		Created:              s.Created,
		PrimaryBalance:       s.Pool.PrimaryBalance,
		SecondaryBalance:     s.Pool.SecondaryBalance,
		TotalLiquidityTokens: s.Pool.TotalLiquidityTokens,
		FeeBps:               s.Pool.FeeBps,
		Creator:              string(s.Pool.Creator),
		Escrow:               string(s.Pool.Escrow),
		PrimaryAsset:         s.Pool.Primary,
		SecondaryAsset:       s.Pool.Secondary,
		Positions:            positions,
	}
}

// LedgerSnapshot converts back into the ledger's form.
func (s PoolSnapshot) LedgerSnapshot() (pool.Snapshot, error) {
	positions := make(map[pool.Address]pool.Position, len(s.Positions))
	for _, p := range s.Positions {
		a := pool.Address(p.Account)
		if _, dup := positions[a]; dup {
			return pool.Snapshot{}, fmt.Errorf("%w: duplicate account %s", pool.ErrCorruptSnapshot, p.Account)
		}
		positions[a] = pool.Position{
			LiquidityTokens: p.LiquidityTokens,
			PrimaryOwed:     p.PrimaryOwed,
			SecondaryOwed:   p.SecondaryOwed,
		}
	}

	out := pool.Snapshot{
		Params: pool.Params{
			Scale:             s.Scale,
			RatioToleranceBps: s.RatioToleranceBps,
			Curve:             pool.Curve(s.Curve),
		},
		Created: s.Created,
		Pool: pool.Pool{
			PrimaryBalance:       s.PrimaryBalance,
			SecondaryBalance:     s.SecondaryBalance,
			TotalLiquidityTokens: s.TotalLiquidityTokens,
			FeeBps:               s.FeeBps,
			Creator:              pool.Address(s.Creator),
			Escrow:               pool.Address(s.Escrow),
			Primary:              s.PrimaryAsset,
			Secondary:            s.SecondaryAsset,
		},
		Positions: positions,
	}
	return out, nil
}
