// Package sequencer serializes journal operations onto a single pool ledger.
// It decodes application arguments, checks every transfer against the pool's
// assets and escrow, and turns ledger rejections into operation results.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"swapLedger/internal/model"
	"swapLedger/internal/pool"
)

var (
	ErrMalformed    = errors.New("malformed operation")
	ErrEscrowNotSet = errors.New("escrow not set")
	ErrDuplicate    = errors.New("duplicate operation")
	ErrOutOfOrder   = errors.New("operation sequence out of order")
)

// Config holds sequencer settings.
type Config struct {
	Pool string
}

// Sequencer applies operations to one ledger, one at a time.
type Sequencer struct {
	cfg     Config
	mu      sync.Mutex
	ledger  *pool.Ledger
	logger  *zap.Logger
	seen    map[string]struct{}
	lastSeq uint64
	now     func() time.Time
}

// New builds a Sequencer over ledger. Cross-process exclusion is the
// caller's job: hold the pool lease for as long as the Sequencer lives.
func New(cfg Config, ledger *pool.Ledger, logger *zap.Logger) (*Sequencer, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if cfg.Pool == "" {
		return nil, fmt.Errorf("pool name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		cfg:    cfg,
		ledger: ledger,
		logger: logger.With(zap.String("pool", cfg.Pool)),
		seen:   make(map[string]struct{}),
		now:    time.Now,
	}, nil
}

// FromSnapshot restores a ledger from snap and resumes after its last sequence.
func FromSnapshot(cfg Config, snap model.PoolSnapshot, logger *zap.Logger) (*Sequencer, error) {
	ls, err := snap.LedgerSnapshot()
	if err != nil {
		return nil, err
	}
	ledger, err := pool.Restore(ls)
	if err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	s, err := New(cfg, ledger, logger)
	if err != nil {
		return nil, err
	}
	s.lastSeq = snap.LastSeq
	return s, nil
}

func (s *Sequencer) Pool() string { return s.cfg.Pool }

func (s *Sequencer) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// Snapshot returns the persisted form of the current ledger state.
func (s *Sequencer) Snapshot() model.PoolSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := model.NewPoolSnapshot(s.cfg.Pool, s.lastSeq, s.ledger.Snapshot())
	snap.TakenAt = s.now().UTC().Format(time.RFC3339Nano)
	return snap
}

// Submit applies op. Ledger rejections are reported in the result; the
// returned error is reserved for duplicates, ordering and a done context.
func (s *Sequencer) Submit(ctx context.Context, op model.Operation) (model.OperationResult, error) {
	if err := ctx.Err(); err != nil {
		return model.OperationResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if _, ok := s.seen[op.ID]; ok {
		return model.OperationResult{}, fmt.Errorf("%w: %s", ErrDuplicate, op.ID)
	}
	if op.Seq == 0 {
		op.Seq = s.lastSeq + 1
	}
	if op.Seq <= s.lastSeq {
		return model.OperationResult{}, fmt.Errorf("%w: seq %d after %d", ErrOutOfOrder, op.Seq, s.lastSeq)
	}

	handler, ok := handlers[op.Kind]
	var receipt pool.Receipt
	var err error
	if !ok {
		err = fmt.Errorf("%w: unknown kind %q", ErrMalformed, op.Kind)
	} else {
		receipt, err = handler(s.ledger, op)
	}

	s.seen[op.ID] = struct{}{}
	s.lastSeq = op.Seq

	result := s.buildResult(op, receipt, err)
	if err != nil {
		s.logger.Debug("operation rejected",
			zap.Uint64("seq", op.Seq),
			zap.String("kind", string(op.Kind)),
			zap.String("sender", op.Sender),
			zap.Error(err),
		)
	}
	return result, nil
}

func (s *Sequencer) buildResult(op model.Operation, r pool.Receipt, err error) model.OperationResult {
	p := s.ledger.Pool()
	result := model.OperationResult{
		OperationID:          op.ID,
		Pool:                 s.cfg.Pool,
		Seq:                  op.Seq,
		Timestamp:            op.Timestamp,
		Kind:                 op.Kind,
		Sender:               op.Sender,
		Status:               model.StatusApplied,
		PrimaryBalance:       p.PrimaryBalance,
		SecondaryBalance:     p.SecondaryBalance,
		TotalLiquidityTokens: p.TotalLiquidityTokens,
		AppliedAt:            s.now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		result.Status = model.StatusRejected
		result.Error = err.Error()
		return result
	}

	result.PrimaryIn = r.PrimaryIn
	result.SecondaryIn = r.SecondaryIn
	result.PrimaryOut = r.PrimaryOut
	result.SecondaryOut = r.SecondaryOut
	result.Minted = r.Minted
	result.Burned = r.Burned
	result.FeeRetained = r.FeeRetained
	result.PrimaryPaid = r.PrimaryPaid
	result.SecondaryPaid = r.SecondaryPaid
	return result
}
