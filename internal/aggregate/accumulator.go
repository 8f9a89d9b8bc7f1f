package aggregate

import (
	"math/big"

	"swapLedger/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	Pool            string
	WindowStart     uint64
	WindowEnd       uint64
	SwapCount       uint64
	AddCount        uint64
	RemoveCount     uint64
	RejectedCount   uint64
	PrimaryVolume   *big.Int
	SecondaryVolume *big.Int
	PrimaryFee      *big.Int
	SecondaryFee    *big.Int

	ClosePrimary   uint64
	CloseSecondary uint64
	CloseTotal     uint64
	LastSeq        uint64
	LastTS         uint64
}

func NewAccumulator(result model.OperationResult, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Pool:            result.Pool,
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		PrimaryVolume:   big.NewInt(0),
		SecondaryVolume: big.NewInt(0),
		PrimaryFee:      big.NewInt(0),
		SecondaryFee:    big.NewInt(0),
		ClosePrimary:    result.PrimaryBalance,
		CloseSecondary:  result.SecondaryBalance,
		CloseTotal:      result.TotalLiquidityTokens,
		LastSeq:         result.Seq,
		LastTS:          result.Timestamp,
	}
}

// AddResult folds one operation result into the window.
func (a *Accumulator) AddResult(result model.OperationResult) {
	if result.Seq >= a.LastSeq {
		a.LastSeq = result.Seq
		a.LastTS = result.Timestamp
		a.ClosePrimary = result.PrimaryBalance
		a.CloseSecondary = result.SecondaryBalance
		a.CloseTotal = result.TotalLiquidityTokens
	}

	if !result.Applied() {
		a.RejectedCount++
		return
	}

	switch result.Kind {
	case model.OpSwap:
		a.applySwap(result)
	case model.OpAddLiquidity:
		a.AddCount++
	case model.OpRemoveLiquidity:
		a.RemoveCount++
	}
}

// The fee is retained in the input asset, so the input side picks the bucket.
func (a *Accumulator) applySwap(result model.OperationResult) {
	a.SwapCount++
	if result.PrimaryIn > 0 {
		addUint(a.PrimaryVolume, result.PrimaryIn)
		addUint(a.PrimaryFee, result.FeeRetained)
		return
	}
	addUint(a.SecondaryVolume, result.SecondaryIn)
	addUint(a.SecondaryFee, result.FeeRetained)
}

func addUint(target *big.Int, v uint64) {
	target.Add(target, new(big.Int).SetUint64(v))
}
