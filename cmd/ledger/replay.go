package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapLedger/internal/config"
	"swapLedger/internal/replay"
	"swapLedger/internal/storage"
	"swapLedger/internal/storage/postgres"
	redislock "swapLedger/internal/storage/redis"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := poolNames(cfg.Journals)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink storage.Storage
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sink = store
	} else {
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	var locker replay.Locker
	if cfg.RedisAddr != "" {
		rl, err := redislock.Dial(ctx, redislock.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rl.Close()
		locker = rl
	}

	logger.Info("replay start",
		zap.Strings("journals", cfg.Journals),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("redis_lock", locker != nil),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("curve", string(cfg.Params.Curve)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint_dir", cfg.CheckpointDir),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, journal := range cfg.Journals {
		runCfg := replay.RunConfig{
			Pool:              pools[i],
			Journal:           journal,
			Params:            cfg.Params,
			BatchSize:         cfg.BatchSize,
			CheckpointPath:    filepath.Join(cfg.CheckpointDir, pools[i]+".json"),
			CheckpointEnabled: cfg.CheckpointEnabled,
			MaxRetries:        cfg.MaxRetries,
			RetryBackoff:      cfg.RetryBackoff,
			LockTTL:           cfg.LockTTL,
			Window:            cfg.Window,
		}
		g.Go(func() error {
			if _, err := replay.NewRunner(runCfg, sink, locker, logger).Run(gctx); err != nil {
				return fmt.Errorf("pool %s: %w", runCfg.Pool, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// poolNames names each pool after its journal file.
func poolNames(journals []string) ([]string, error) {
	names := make([]string, len(journals))
	seen := make(map[string]string, len(journals))
	for i, journal := range journals {
		base := filepath.Base(journal)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if name == "" || name == "." {
			return nil, fmt.Errorf("cannot name pool for journal %q", journal)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("journals %q and %q map to the same pool %q", prev, journal, name)
		}
		seen[name] = journal
		names[i] = name
	}
	return names, nil
}
