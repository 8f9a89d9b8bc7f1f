package sequencer

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"swapLedger/internal/asset"
	"swapLedger/internal/model"
	"swapLedger/internal/pool"
)

const (
	creator = "CREATOR"
	escrow  = "ESCROW"
	alice   = "ALICE"
)

func u64(v uint64) hexutil.Bytes { return hexutil.Bytes(Itob(v)) }

func pay(from, to string, amount uint64) asset.Transfer {
	return asset.Transfer{Kind: asset.KindPayment, Sender: from, Receiver: to, Amount: amount}
}

func xfer(id uint64, from, to string, amount uint64) asset.Transfer {
	return asset.Transfer{Kind: asset.KindAssetTransfer, AssetID: id, Sender: from, Receiver: to, Amount: amount}
}

func setupOps() []model.Operation {
	return []model.Operation{
		{Kind: model.OpCreate, Sender: creator, Args: []hexutil.Bytes{u64(300)},
			Assets: []asset.Spec{{Kind: asset.KindPayment}, {Kind: asset.KindAssetTransfer, ID: 7}}},
		{Kind: model.OpSetEscrow, Sender: creator, Args: []hexutil.Bytes{hexutil.Bytes(escrow)}},
		{Kind: model.OpOptIn, Sender: alice},
		{Kind: model.OpAddLiquidity, Sender: alice, Transfers: []asset.Transfer{
			pay(alice, escrow, 1_000_000), xfer(7, alice, escrow, 4_000_000),
		}},
	}
}

func newSequencer(t *testing.T) *Sequencer {
	t.Helper()
	l, err := pool.NewLedger(pool.DefaultParams())
	require.NoError(t, err)
	s, err := New(Config{Pool: "main"}, l, nil)
	require.NoError(t, err)
	return s
}

func submitAll(t *testing.T, s *Sequencer, ops []model.Operation) []model.OperationResult {
	t.Helper()
	out := make([]model.OperationResult, 0, len(ops))
	for _, op := range ops {
		res, err := s.Submit(context.Background(), op)
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func TestSubmitLifecycle(t *testing.T) {
	s := newSequencer(t)

	results := submitAll(t, s, setupOps())
	for _, r := range results {
		require.True(t, r.Applied(), "%s: %s", r.Kind, r.Error)
	}
	require.Equal(t, uint64(1_000_000), results[3].Minted)
	require.Equal(t, uint64(4), s.LastSeq())

	results = submitAll(t, s, []model.Operation{
		{Kind: model.OpRemoveLiquidity, Sender: alice, Args: []hexutil.Bytes{u64(1_000)}},
		{Kind: model.OpWithdraw, Sender: alice, Transfers: []asset.Transfer{
			pay(escrow, alice, 1_000), xfer(7, escrow, alice, 4_000),
		}},
		{Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{pay(alice, escrow, 1_000)}},
		{Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{pay(alice, escrow, 1_000)}},
	})
	require.True(t, results[0].Applied())
	require.Equal(t, uint64(1_000), results[0].PrimaryOut)
	require.Equal(t, uint64(4_000), results[0].SecondaryOut)
	require.True(t, results[1].Applied())
	require.True(t, results[2].Applied())
	require.Equal(t, uint64(3_880), results[2].SecondaryOut)
	require.Equal(t, uint64(3_992_120), results[2].SecondaryBalance)
	require.Equal(t, model.StatusRejected, results[3].Status)
	require.Contains(t, results[3].Error, pool.ErrPositionBusy.Error())

}

func TestSubmitRejectsBadTransfers(t *testing.T) {
	s := newSequencer(t)
	submitAll(t, s, setupOps())

	cases := []model.Operation{
		// wrong receiver
		{Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{pay(alice, "OTHER", 1_000)}},
		// unknown asset
		{Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{xfer(8, alice, escrow, 1_000)}},
		// transfer from someone else
		{Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{pay("BOB", escrow, 1_000)}},
		// legs in the wrong order
		{Kind: model.OpAddLiquidity, Sender: alice, Transfers: []asset.Transfer{
			xfer(7, alice, escrow, 4_000), pay(alice, escrow, 1_000),
		}},
		// integer argument wider than eight bytes
		{Kind: model.OpRemoveLiquidity, Sender: alice, Args: []hexutil.Bytes{make([]byte, 9)}},
		{Kind: model.OpRemoveLiquidity, Sender: alice},
		// nothing owed
		{Kind: model.OpWithdraw, Sender: alice, Transfers: []asset.Transfer{pay(escrow, alice, 0)}},
	}
	before := s.Snapshot().Positions
	for i, op := range cases {
		res, err := s.Submit(context.Background(), op)
		require.NoError(t, err)
		require.Equal(t, model.StatusRejected, res.Status, "case %d", i)
		require.NotEmpty(t, res.Error, "case %d", i)
	}
	require.Equal(t, before, s.Snapshot().Positions)
}

func TestSwapSideHint(t *testing.T) {
	s := newSequencer(t)
	submitAll(t, s, setupOps())
	swap := func(side string) model.Operation {
		return model.Operation{Kind: model.OpSwap, Sender: alice,
			Args:      []hexutil.Bytes{u64(0), hexutil.Bytes(side)},
			Transfers: []asset.Transfer{xfer(7, alice, escrow, 4_000)}}
	}

	for _, side := range []string{"primary", "a", "sideways"} {
		res, err := s.Submit(context.Background(), swap(side))
		require.NoError(t, err)
		require.Equal(t, model.StatusRejected, res.Status, side)
		require.Contains(t, res.Error, ErrMalformed.Error(), side)
	}

	res, err := s.Submit(context.Background(), swap("secondary"))
	require.NoError(t, err)
	require.True(t, res.Applied(), res.Error)
	require.Equal(t, uint64(970), res.PrimaryOut)
}

func TestSubmitEscrowRequired(t *testing.T) {
	s := newSequencer(t)
	ops := setupOps()
	ops = append(ops[:1], ops[2:]...)
	results := submitAll(t, s, ops)
	require.Equal(t, model.StatusRejected, results[2].Status)
	require.Contains(t, results[2].Error, ErrEscrowNotSet.Error())
}

func TestSubmitDuplicateAndOrdering(t *testing.T) {
	s := newSequencer(t)
	ctx := context.Background()

	op := setupOps()[0]
	op.ID = "create-1"
	op.Seq = 10
	res, err := s.Submit(ctx, op)
	require.NoError(t, err)
	require.True(t, res.Applied())

	_, err = s.Submit(ctx, op)
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = s.Submit(ctx, model.Operation{ID: "late", Seq: 5, Kind: model.OpOptIn, Sender: alice})
	require.ErrorIs(t, err, ErrOutOfOrder)

	res, err = s.Submit(ctx, model.Operation{Kind: model.OpOptIn, Sender: alice})
	require.NoError(t, err)
	require.Equal(t, uint64(11), res.Seq)
	require.NotEmpty(t, res.OperationID)
}

func TestSubmitCanceledContext(t *testing.T) {
	s := newSequencer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Submit(ctx, setupOps()[0])
	require.ErrorIs(t, err, context.Canceled)
}

func TestFromSnapshotResumes(t *testing.T) {
	s := newSequencer(t)
	submitAll(t, s, setupOps())
	snap := s.Snapshot()
	require.Equal(t, uint64(4), snap.LastSeq)

	restored, err := FromSnapshot(Config{Pool: "main"}, snap, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(4), restored.LastSeq())

	res, err := restored.Submit(context.Background(), model.Operation{
		Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{xfer(7, alice, escrow, 4_000)},
	})
	require.NoError(t, err)
	require.True(t, res.Applied(), res.Error)
	require.Equal(t, uint64(970), res.PrimaryOut)
	require.Equal(t, uint64(5), res.Seq)
}

func TestBtoi(t *testing.T) {
	v, err := Btoi([]byte{0x01, 0x00})
	require.NoError(t, err)
	require.Equal(t, uint64(256), v)

	v, err = Btoi(nil)
	require.NoError(t, err)
	require.Zero(t, v)

	v, err = Btoi(Itob(1<<63 + 5))
	require.NoError(t, err)
	require.Equal(t, uint64(1<<63+5), v)

	_, err = Btoi(make([]byte, 9))
	require.ErrorIs(t, err, ErrMalformed)
}
