package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"swapLedger/internal/model"
)

// Sink receives closed window metrics.
type Sink interface {
	PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator folds operation results into per-pool window metrics.
type Aggregator struct {
	cfg          Config
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, logger *zap.Logger) (*Aggregator, error) {
	if cfg.WindowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}, nil
}

// Add records one result. When the result opens a new window for its pool
// the previous window is closed and returned.
func (a *Aggregator) Add(result model.OperationResult) []model.PoolWindowMetrics {
	start := windowStart(result.Timestamp, a.cfg.WindowSeconds)
	end := start + a.cfg.WindowSeconds

	var closed []model.PoolWindowMetrics
	acc := a.accumulators[result.Pool]
	if acc != nil && acc.WindowStart != start {
		closed = append(closed, a.metrics(acc))
		acc = nil
	}
	if acc == nil {
		acc = NewAccumulator(result, start, end)
		a.accumulators[result.Pool] = acc
	}
	acc.AddResult(result)
	return closed
}

// Flush closes every open window, ordered by pool.
func (a *Aggregator) Flush() []model.PoolWindowMetrics {
	out := make([]model.PoolWindowMetrics, 0, len(a.accumulators))
	for _, acc := range a.accumulators {
		out = append(out, a.metrics(acc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pool < out[j].Pool })
	a.accumulators = make(map[string]*Accumulator)
	return out
}

// Run aggregates a results JSONL file into sink. With a recompute point or a
// stored state it skips results at or before that timestamp; otherwise every
// result counts, including ones without a timestamp.
func (a *Aggregator) Run(ctx context.Context, inputPath string, sink Sink) error {
	if sink == nil {
		return fmt.Errorf("sink is nil")
	}

	skipThrough, resume, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var maxTs uint64
	var seen bool
	var total, windows, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var result model.OperationResult
		if err := json.Unmarshal(line, &result); err != nil {
			failed++
			a.logger.Warn("decode result", zap.Error(err))
			continue
		}
		if resume && result.Timestamp <= skipThrough {
			skipped++
			continue
		}

		batch = append(batch, a.Add(result)...)
		if !seen || result.Timestamp > maxTs {
			maxTs, seen = result.Timestamp, true
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := sink.PutWindowMetrics(ctx, batch); err != nil {
				return err
			}
			windows += len(batch)
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	batch = append(batch, a.Flush()...)
	if len(batch) > 0 {
		if err := sink.PutWindowMetrics(ctx, batch); err != nil {
			return err
		}
		windows += len(batch)
	}

	if seen && a.cfg.StateStore != nil {
		if err := a.cfg.StateStore.Save(ctx, maxTs); err != nil {
			return err
		}
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, bool, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, true, nil
	}
	if a.cfg.StateStore == nil {
		return 0, false, nil
	}
	return a.cfg.StateStore.Load(ctx)
}

// saveState records the last timestamp before the earliest open window, so
// a rerun recomputes open windows in full. Nothing is saved while the window
// starting at 0 is open.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	start, ok := minOpenWindowStart(a.accumulators)
	if !ok || start == 0 {
		return nil
	}
	return a.cfg.StateStore.Save(ctx, start-1)
}

func (a *Aggregator) metrics(acc *Accumulator) model.PoolWindowMetrics {
	feeRate := computeFeeRate(acc.PrimaryFee, acc.SecondaryFee, acc.ClosePrimary, acc.CloseSecondary)
	return model.PoolWindowMetrics{
		Pool:                  acc.Pool,
		WindowSizeSecs:        int64(a.cfg.WindowSeconds),
		WindowStart:           time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:             time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:             acc.SwapCount,
		AddCount:              acc.AddCount,
		RemoveCount:           acc.RemoveCount,
		RejectedCount:         acc.RejectedCount,
		PrimaryVolume:         formatAmount(acc.PrimaryVolume),
		SecondaryVolume:       formatAmount(acc.SecondaryVolume),
		PrimaryFee:            formatAmount(acc.PrimaryFee),
		SecondaryFee:          formatAmount(acc.SecondaryFee),
		FeeRate:               feeRate,
		APR:                   computeAPR(feeRate, a.cfg.WindowSeconds),
		ClosePrimaryBalance:   formatUint(acc.ClosePrimary),
		CloseSecondaryBalance: formatUint(acc.CloseSecondary),
		CloseTotalLiquidity:   formatUint(acc.CloseTotal),
		LastSeq:               acc.LastSeq,
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[string]*Accumulator) (uint64, bool) {
	var lowest uint64
	found := false
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if !found || entry.WindowStart < lowest {
			lowest, found = entry.WindowStart, true
		}
	}
	return lowest, found
}
