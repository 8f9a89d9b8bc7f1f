package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "ledger",
		Short:        "AMM pool ledger tools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay operation journals onto their pools",
		RunE:  runReplay,
	}

	replayCmd.Flags().StringSlice("journal", nil, "operation journal JSONL files, one pool each (comma-separated)")
	replayCmd.Flags().String("out", "./data", "output directory for JSONL results")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN, replaces JSONL output when set")
	replayCmd.Flags().String("redis-addr", "", "Redis address for the cross-process pool lock")
	replayCmd.Flags().String("redis-password", "", "Redis password")
	replayCmd.Flags().Int("redis-db", 0, "Redis database")
	replayCmd.Flags().Duration("lock-ttl", 5*time.Second, "pool lock TTL")
	replayCmd.Flags().Int("batch-size", 500, "operations per batch")
	replayCmd.Flags().String("checkpoint-dir", "./data/checkpoints", "checkpoint directory")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("max-retries", 5, "maximum storage retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().Duration("window", 5*time.Minute, "metrics window")
	replayCmd.Flags().Uint64("scale", 1_000_000, "exchange rate scale")
	replayCmd.Flags().Uint64("ratio-tolerance", 100, "deposit ratio tolerance in basis points")
	replayCmd.Flags().String("curve", "linear", "swap curve (linear, constant_product)")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate stored operation results into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "./data/results.jsonl", "input results JSONL")
	aggregateCmd.Flags().Duration("window", 5*time.Minute, "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("out", "./data", "output directory when no Postgres DSN is set")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Restore a pool snapshot and check its invariants",
		RunE:  runAudit,
	}

	auditCmd.Flags().String("snapshot", "", "checkpoint file to audit")
	auditCmd.Flags().String("pool", "", "pool name to load from Postgres")
	auditCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	auditCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(auditCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
