package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapLedger/internal/config"
	"swapLedger/internal/model"
	"swapLedger/internal/muldiv"
	"swapLedger/internal/pool"
	"swapLedger/internal/replay"
	"swapLedger/internal/storage/postgres"
)

func runAudit(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAudit(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := loadAuditSnapshot(ctx, cfg)
	if err != nil {
		return err
	}

	ls, err := snap.LedgerSnapshot()
	if err != nil {
		logger.Error("snapshot rejected", zap.String("pool", snap.Pool), zap.Error(err))
		return err
	}
	ledger, err := pool.Restore(ls)
	if err != nil {
		logger.Error("invariant check failed", zap.String("pool", snap.Pool), zap.Error(err))
		return err
	}

	p := ledger.Pool()
	fields := []zap.Field{
		zap.String("pool", snap.Pool),
		zap.Uint64("last_seq", snap.LastSeq),
		zap.Bool("created", ledger.Created()),
		zap.Uint64("primary_balance", p.PrimaryBalance),
		zap.Uint64("secondary_balance", p.SecondaryBalance),
		zap.Uint64("total_liquidity_tokens", p.TotalLiquidityTokens),
		zap.Uint16("fee_bps", p.FeeBps),
		zap.String("primary_asset", p.Primary.String()),
		zap.String("secondary_asset", p.Secondary.String()),
		zap.String("constant_product", muldiv.Widen(p.PrimaryBalance, p.SecondaryBalance).String()),
		zap.Int("positions", len(ledger.Accounts())),
	}
	if rate, err := ledger.ExchangeRate(); err == nil {
		fields = append(fields, zap.Uint64("exchange_rate", rate), zap.Uint64("scale", ledger.Params().Scale))
	} else {
		fields = append(fields, zap.NamedError("exchange_rate_error", err))
	}
	logger.Info("invariants ok", fields...)
	return nil
}

func loadAuditSnapshot(ctx context.Context, cfg config.AuditConfig) (model.PoolSnapshot, error) {
	if cfg.Snapshot != "" {
		cp, ok, err := replay.LoadCheckpoint(cfg.Snapshot)
		if err != nil {
			return model.PoolSnapshot{}, err
		}
		if !ok {
			return model.PoolSnapshot{}, fmt.Errorf("checkpoint %s not found", cfg.Snapshot)
		}
		return cp.Snapshot, nil
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	snap, ok, err := store.LoadSnapshot(ctx, cfg.Pool)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("pool %s not found", cfg.Pool)
	}
	return snap, nil
}
