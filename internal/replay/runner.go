// Package replay drives a pool's operation journal through a sequencer and
// stores the results, window metrics and checkpoints.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"swapLedger/internal/aggregate"
	"swapLedger/internal/model"
	"swapLedger/internal/pool"
	"swapLedger/internal/sequencer"
	"swapLedger/internal/storage"
)

// RunConfig holds runtime settings for one journal replay.
type RunConfig struct {
	Pool              string
	Journal           string
	Params            pool.Params
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LockTTL           time.Duration
	Window            time.Duration
}

// Summary reports what a run did.
type Summary struct {
	Submitted int
	Applied   int
	Rejected  int
	Skipped   int
	LastSeq   uint64
}

// Locker grants an exclusive lease on a pool across processes. Acquire
// waits while another holder owns the lease. The returned context ends when
// release is called or the lease is lost.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (context.Context, func(), error)
}

// Runner replays one journal onto one pool.
type Runner struct {
	cfg        RunConfig
	storage    storage.Storage
	locker     Locker
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. locker may be nil.
func NewRunner(cfg RunConfig, sink storage.Storage, locker Locker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		storage:    sink,
		locker:     locker,
		logger:     logger.With(zap.String("pool", cfg.Pool)),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the replay loop. With a Locker it holds the pool lease from
// before the checkpoint is read until the final snapshot is stored, so a
// second process waits and then resumes from this run's checkpoint.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	if r.storage == nil {
		return Summary{}, fmt.Errorf("storage is nil")
	}
	if r.cfg.Pool == "" {
		return Summary{}, fmt.Errorf("pool name is required")
	}
	if r.cfg.BatchSize <= 0 {
		return Summary{}, fmt.Errorf("batch size must be greater than zero")
	}

	if r.locker != nil {
		parent := ctx
		lease, release, acqErr := r.locker.Acquire(ctx, "pool:"+r.cfg.Pool, r.cfg.LockTTL)
		if acqErr != nil {
			return Summary{}, fmt.Errorf("acquire pool lease: %w", acqErr)
		}
		defer release()
		defer func() {
			if err != nil && parent.Err() == nil && lease.Err() != nil {
				err = fmt.Errorf("pool lease ended: %w", context.Cause(lease))
			}
		}()
		ctx = lease
	}

	ops, err := ReadJournal(r.cfg.Journal)
	if err != nil {
		return Summary{}, err
	}

	seq, err := r.openSequencer()
	if err != nil {
		return Summary{}, err
	}

	window := r.cfg.Window
	if window < time.Second {
		window = 5 * time.Minute
	}
	agg, err := aggregate.NewAggregator(aggregate.Config{WindowSeconds: uint64(window / time.Second)}, r.logger)
	if err != nil {
		return Summary{}, err
	}

	summary = Summary{LastSeq: seq.LastSeq()}
	if len(ops) == 0 {
		r.logger.Info("journal is empty", zap.String("journal", r.cfg.Journal))
		return summary, nil
	}

	ranges, err := SplitRange(0, len(ops)-1, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		results := make([]model.OperationResult, 0, batch.To-batch.From+1)
		var metrics []model.PoolWindowMetrics
		for _, op := range ops[batch.From : batch.To+1] {
			if op.Seq <= seq.LastSeq() {
				summary.Skipped++
				continue
			}
			result, err := seq.Submit(ctx, op)
			if errors.Is(err, sequencer.ErrDuplicate) || errors.Is(err, sequencer.ErrOutOfOrder) {
				summary.Skipped++
				r.logger.Warn("skip operation", zap.Uint64("seq", op.Seq), zap.String("id", op.ID), zap.Error(err))
				continue
			}
			if err != nil {
				return summary, fmt.Errorf("submit seq %d: %w", op.Seq, err)
			}

			summary.Submitted++
			if result.Applied() {
				summary.Applied++
			} else {
				summary.Rejected++
			}
			results = append(results, result)
			metrics = append(metrics, agg.Add(result)...)
		}

		if len(results) == 0 {
			continue
		}
		if err := r.store(ctx, "store results", func(ctx context.Context) error {
			return r.storage.PutResultBatch(ctx, results)
		}); err != nil {
			return summary, err
		}
		if err := r.storeMetrics(ctx, metrics); err != nil {
			return summary, err
		}
		if err := r.checkpoint.Save(seq.Snapshot()); err != nil {
			return summary, err
		}

		summary.LastSeq = seq.LastSeq()
		r.logger.Info("batch complete",
			zap.Int("results", len(results)),
			zap.Int("from", batch.From),
			zap.Int("to", batch.To),
			zap.Uint64("last_seq", summary.LastSeq),
		)
	}

	if err := r.storeMetrics(ctx, agg.Flush()); err != nil {
		return summary, err
	}
	snap := seq.Snapshot()
	if err := r.store(ctx, "store snapshot", func(ctx context.Context) error {
		return r.storage.PutSnapshot(ctx, snap)
	}); err != nil {
		return summary, err
	}

	summary.LastSeq = seq.LastSeq()
	r.logger.Info("replay complete",
		zap.Int("submitted", summary.Submitted),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("skipped", summary.Skipped),
		zap.Uint64("last_seq", summary.LastSeq),
	)
	return summary, nil
}

func (r *Runner) openSequencer() (*sequencer.Sequencer, error) {
	seqCfg := sequencer.Config{Pool: r.cfg.Pool}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		if cp.Snapshot.Pool != r.cfg.Pool {
			return nil, fmt.Errorf("checkpoint belongs to pool %q", cp.Snapshot.Pool)
		}
		r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", cp.Snapshot.LastSeq))
		return sequencer.FromSnapshot(seqCfg, cp.Snapshot, r.logger)
	}

	ledger, err := pool.NewLedger(r.cfg.Params)
	if err != nil {
		return nil, err
	}
	return sequencer.New(seqCfg, ledger, r.logger)
}

func (r *Runner) storeMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	return r.store(ctx, "store window metrics", func(ctx context.Context) error {
		return r.storage.PutWindowMetrics(ctx, metrics)
	})
}

func (r *Runner) store(ctx context.Context, what string, fn func(context.Context) error) error {
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			r.logger.Warn(what+" failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
