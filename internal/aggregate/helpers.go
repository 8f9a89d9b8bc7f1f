package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatAmount(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func formatUint(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}

// computeFeeRate values both fee buckets in primary units at the closing
// price and divides by the pool value, which is twice the primary balance.
func computeFeeRate(primaryFee, secondaryFee *big.Int, closePrimary, closeSecondary uint64) *string {
	if closePrimary == 0 || closeSecondary == 0 {
		return nil
	}
	primary := new(big.Int).SetUint64(closePrimary)
	secondary := new(big.Int).SetUint64(closeSecondary)

	fees := new(big.Rat).SetInt(orZero(primaryFee))
	if secondaryFee != nil && secondaryFee.Sign() > 0 {
		converted := new(big.Rat).SetFrac(new(big.Int).Mul(secondaryFee, primary), secondary)
		fees.Add(fees, converted)
	}
	if fees.Sign() == 0 {
		return nil
	}
	tvl := new(big.Int).Lsh(primary, 1)
	rate := computeRateFromRat(fees, tvl)
	if rate == "" {
		return nil
	}
	return &rate
}

func computeRateFromRat(fee *big.Rat, tvl *big.Int) string {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).Quo(fee, new(big.Rat).SetInt(tvl))
	return rat.FloatString(ratioScale)
}

func computeAPR(feeRate *string, windowSeconds uint64) *string {
	if feeRate == nil || windowSeconds == 0 {
		return nil
	}
	rat, ok := new(big.Rat).SetString(*feeRate)
	if !ok {
		return nil
	}
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(rat, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
