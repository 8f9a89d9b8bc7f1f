package replay

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"swapLedger/internal/asset"
	"swapLedger/internal/model"
	"swapLedger/internal/pool"
	"swapLedger/internal/sequencer"
	"swapLedger/internal/storage"
)

const (
	creator = "CREATOR"
	escrow  = "ESCROW"
	alice   = "ALICE"
)

type memoryStorage struct {
	results      []model.OperationResult
	snapshots    []model.PoolSnapshot
	metrics      []model.PoolWindowMetrics
	resultCalls  int
	failResults  int
	resultsError error
	onResults    func()
}

func (m *memoryStorage) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	m.resultCalls++
	if m.resultsError != nil {
		return m.resultsError
	}
	if m.failResults > 0 {
		m.failResults--
		return errors.New("connection reset")
	}
	m.results = append(m.results, results...)
	if m.onResults != nil {
		m.onResults()
	}
	return nil
}

func (m *memoryStorage) PutSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *memoryStorage) PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	m.metrics = append(m.metrics, metrics...)
	return nil
}

func u64(v uint64) hexutil.Bytes { return hexutil.Bytes(sequencer.Itob(v)) }

func pay(from, to string, amount uint64) asset.Transfer {
	return asset.Transfer{Kind: asset.KindPayment, Sender: from, Receiver: to, Amount: amount}
}

func xfer(from, to string, amount uint64) asset.Transfer {
	return asset.Transfer{Kind: asset.KindAssetTransfer, AssetID: 7, Sender: from, Receiver: to, Amount: amount}
}

func lifecycleOps() []model.Operation {
	return []model.Operation{
		{Kind: model.OpCreate, Sender: creator, Args: []hexutil.Bytes{u64(300)},
			Assets: []asset.Spec{{Kind: asset.KindPayment}, {Kind: asset.KindAssetTransfer, ID: 7}}},
		{Kind: model.OpSetEscrow, Sender: creator, Args: []hexutil.Bytes{hexutil.Bytes(escrow)}},
		{Kind: model.OpOptIn, Sender: alice},
		{Kind: model.OpAddLiquidity, Sender: alice, Transfers: []asset.Transfer{
			pay(alice, escrow, 1_000_000), xfer(alice, escrow, 4_000_000),
		}},
		{Kind: model.OpRemoveLiquidity, Sender: alice, Args: []hexutil.Bytes{u64(1_000)}},
		{Kind: model.OpWithdraw, Sender: alice, Transfers: []asset.Transfer{
			pay(escrow, alice, 1_000), xfer(escrow, alice, 4_000),
		}},
		{Kind: model.OpSwap, Sender: alice, Transfers: []asset.Transfer{pay(alice, escrow, 1_000)}},
	}
}

func writeJournal(t *testing.T, path string, ops []model.Operation) {
	t.Helper()
	var b strings.Builder
	for i, op := range ops {
		op.Timestamp = 1_000 + uint64(i)*100
		line, err := json.Marshal(op)
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func testConfig(dir string) RunConfig {
	return RunConfig{
		Pool:              "main",
		Journal:           filepath.Join(dir, "journal.jsonl"),
		Params:            pool.DefaultParams(),
		BatchSize:         3,
		CheckpointPath:    filepath.Join(dir, "checkpoints", "main.json"),
		CheckpointEnabled: true,
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
		Window:            5 * time.Minute,
	}
}

func TestRunnerReplaysJournal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeJournal(t, cfg.Journal, lifecycleOps())

	store := &memoryStorage{}
	summary, err := NewRunner(cfg, store, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Submitted: 7, Applied: 7, LastSeq: 7}, summary)

	require.Len(t, store.results, 7)
	require.Equal(t, 3, store.resultCalls)
	swap := store.results[6]
	require.Equal(t, uint64(3_880), swap.SecondaryOut)
	require.Equal(t, uint64(3_992_120), swap.SecondaryBalance)

	require.Len(t, store.snapshots, 1)
	require.Equal(t, uint64(7), store.snapshots[0].LastSeq)

	var swaps uint64
	for _, m := range store.metrics {
		swaps += m.SwapCount
	}
	require.Equal(t, uint64(1), swaps)

	cp, ok, err := LoadCheckpoint(cfg.CheckpointPath)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), cp.Snapshot.LastSeq)
	require.Equal(t, uint64(3_992_120), cp.Snapshot.SecondaryBalance)
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	ops := lifecycleOps()
	writeJournal(t, cfg.Journal, ops[:4])

	_, err := NewRunner(cfg, &memoryStorage{}, nil, nil).Run(context.Background())
	require.NoError(t, err)

	writeJournal(t, cfg.Journal, ops)
	store := &memoryStorage{}
	summary, err := NewRunner(cfg, store, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, summary.Skipped)
	require.Equal(t, 3, summary.Submitted)
	require.Len(t, store.results, 3)
	require.Equal(t, uint64(5), store.results[0].Seq)
	require.Equal(t, uint64(3_992_120), store.results[2].SecondaryBalance)
}

func TestRunnerRetriesStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.BatchSize = 10
	writeJournal(t, cfg.Journal, lifecycleOps())

	store := &memoryStorage{failResults: 2}
	_, err := NewRunner(cfg, store, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, store.resultCalls)
	require.Len(t, store.results, 7)
}

func TestRunnerStopsOnPermanentError(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeJournal(t, cfg.Journal, lifecycleOps())

	store := &memoryStorage{resultsError: storage.Permanent(errors.New("schema mismatch"))}
	_, err := NewRunner(cfg, store, nil, nil).Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, store.resultCalls)

	_, ok, err := LoadCheckpoint(cfg.CheckpointPath)
	require.NoError(t, err)
	require.False(t, ok, "no checkpoint may be written before results are stored")
}

func TestRunnerRejectsForeignCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeJournal(t, cfg.Journal, lifecycleOps()[:2])
	_, err := NewRunner(cfg, &memoryStorage{}, nil, nil).Run(context.Background())
	require.NoError(t, err)

	cfg.Pool = "other"
	_, err = NewRunner(cfg, &memoryStorage{}, nil, nil).Run(context.Background())
	require.ErrorContains(t, err, "checkpoint belongs to pool")
}

func TestDecodeJournal(t *testing.T) {
	input := strings.Join([]string{
		`{"kind":"opt_in","sender":"ALICE"}`,
		``,
		`# comment`,
		`{"kind":"S","sender":"ALICE","seq":9}`,
	}, "\n")
	ops, err := DecodeJournal(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, uint64(1), ops[0].Seq)
	require.Equal(t, model.OpSwap, ops[1].Kind)
	require.Equal(t, uint64(9), ops[1].Seq)

	_, err = DecodeJournal(strings.NewReader(`{"kind":"mint"}`))
	require.ErrorContains(t, err, "journal line 1")
}
