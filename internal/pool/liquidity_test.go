package pool

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"swapLedger/internal/muldiv"
)

func TestAddLiquidityRatioTolerance(t *testing.T) {
	cases := []struct {
		primary, secondary uint64
		ok                 bool
	}{
		{1_000, 4_000, true},
		{1_010, 4_039, true},
		{1_010, 4_040, true},
		{1_000, 4_001, false},
		{1_000, 4_039, false},
		{1_000, 3_961, true},
		{1_000, 3_960, false},
		{1, math.MaxUint64, false},
		{math.MaxUint64, 1, false},
	}
	for _, c := range cases {
		l := seededLedger(t, DefaultParams())
		require.NoError(t, l.OptIn(bob))
		before := l.Snapshot()

		_, err := l.AddLiquidity(bob, c.primary, c.secondary)
		if c.ok {
			require.NoError(t, err, "deposit %d/%d", c.primary, c.secondary)
			continue
		}
		require.ErrorIs(t, err, ErrRatioMismatch, "deposit %d/%d", c.primary, c.secondary)
		require.Equal(t, before, l.Snapshot())
	}
}

func TestAddLiquidityMintsFromSecondary(t *testing.T) {
	l := seededLedger(t, DefaultParams())
	require.NoError(t, l.OptIn(bob))

	r, err := l.AddLiquidity(bob, 1_010, 4_039)
	require.NoError(t, err)
	require.Equal(t, uint64(1_009), r.Minted)

	p := l.Pool()
	require.Equal(t, uint64(1_001_009), p.TotalLiquidityTokens)
	require.Equal(t, uint64(1_001_010), p.PrimaryBalance)
	require.Equal(t, uint64(4_004_039), p.SecondaryBalance)
	pos, _ := l.Position(bob)
	require.Equal(t, uint64(1_009), pos.LiquidityTokens)
}

// A primary leg one unit short of the proportional share would mint the
// same tokens for less primary, so it is rejected even inside the tolerance.
func TestAddLiquidityRejectsPrimaryShortfall(t *testing.T) {
	l := seededLedger(t, DefaultParams())
	require.NoError(t, l.OptIn(bob))
	before := l.Snapshot()

	_, err := l.AddLiquidity(bob, 1_000, 4_001)
	require.ErrorIs(t, err, ErrRatioMismatch)
	require.Equal(t, before, l.Snapshot())

	_, err = l.AddLiquidity(bob, 1_001, 4_001)
	require.NoError(t, err)
	p := l.Pool()
	require.False(t, muldiv.Widen(p.PrimaryBalance, 1_000_000).
		Less(muldiv.Widen(1_000_000, p.TotalLiquidityTokens)))
}

func TestAddLiquidityRejectsInvalidAmounts(t *testing.T) {
	l := seededLedger(t, DefaultParams())
	_, err := l.AddLiquidity(alice, 0, 4_000)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.AddLiquidity(alice, 1_000, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.AddLiquidity(bob, 1_000, 4_000)
	require.ErrorIs(t, err, ErrNotOptedIn)
}

func TestAddLiquidityOverflowLeavesStateUntouched(t *testing.T) {
	l := newCreatedLedger(t, DefaultParams())
	require.NoError(t, l.OptIn(alice))
	_, err := l.AddLiquidity(alice, math.MaxUint64-10, math.MaxUint64-10)
	require.NoError(t, err)

	before := l.Snapshot()
	_, err = l.AddLiquidity(alice, 20, 20)
	require.ErrorIs(t, err, muldiv.ErrOverflow)
	require.Equal(t, before, l.Snapshot())
}

func TestRemoveLiquidityGuards(t *testing.T) {
	l := seededLedger(t, DefaultParams())
	before := l.Snapshot()

	_, err := l.RemoveLiquidity(alice, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.RemoveLiquidity(alice, 1_000_001)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	// Burning every token would empty both balances.
	_, err = l.RemoveLiquidity(alice, 1_000_000)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	require.Equal(t, before, l.Snapshot())

	_, err = l.RemoveLiquidity(alice, 999_999)
	require.NoError(t, err)
	p := l.Pool()
	require.Equal(t, uint64(1), p.PrimaryBalance)
	require.Equal(t, uint64(4), p.SecondaryBalance)
	require.Equal(t, uint64(1), p.TotalLiquidityTokens)
}

// Share value in both assets must not fall across adds and removes.
func TestLiquidityConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	l := seededLedger(t, DefaultParams())
	require.NoError(t, l.OptIn(bob))
	accounts := []Address{alice, bob}

	applied := 0
	for i := 0; i < 2_000; i++ {
		before := l.Pool()
		acct := accounts[rng.Intn(len(accounts))]

		var err error
		if rng.Intn(2) == 0 {
			secondary := uint64(1_000 + rng.Intn(1_000_000))
			share, rem, mdErr := muldiv.MulDivRem(secondary, before.PrimaryBalance, before.SecondaryBalance)
			require.NoError(t, mdErr)
			if rem != 0 {
				share++
			}
			// Anywhere from just short of the share to most of the tolerance above it.
			primary := share - 1 + uint64(rng.Int63n(int64(share/120)+2))
			_, err = l.AddLiquidity(acct, primary, secondary)
			if primary < share {
				require.ErrorIs(t, err, ErrRatioMismatch)
			}
		} else {
			pos, _ := l.Position(acct)
			if pos.LiquidityTokens < 2 {
				continue
			}
			burn := 1 + uint64(rng.Int63n(int64(pos.LiquidityTokens/2)))
			var r Receipt
			r, err = l.RemoveLiquidity(acct, burn)
			if err == nil {
				_, err = l.Withdraw(acct, r.PrimaryOut, r.SecondaryOut)
				require.NoError(t, err)
			}
		}
		if err != nil {
			require.Equal(t, before, l.Pool())
			continue
		}
		applied++

		after := l.Pool()
		require.False(t, muldiv.Widen(after.PrimaryBalance, before.TotalLiquidityTokens).
			Less(muldiv.Widen(before.PrimaryBalance, after.TotalLiquidityTokens)), "primary per share dropped at step %d", i)
		require.False(t, muldiv.Widen(after.SecondaryBalance, before.TotalLiquidityTokens).
			Less(muldiv.Widen(before.SecondaryBalance, after.TotalLiquidityTokens)), "secondary per share dropped at step %d", i)
	}
	require.Greater(t, applied, 500)

	var sum uint64
	for _, a := range l.Accounts() {
		pos, _ := l.Position(a)
		sum += pos.LiquidityTokens
	}
	require.Equal(t, l.Pool().TotalLiquidityTokens, sum)
}
