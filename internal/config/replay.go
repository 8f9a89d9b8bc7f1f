package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"swapLedger/internal/pool"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Journals          []string
	Out               string
	PGDSN             string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	LockTTL           time.Duration
	BatchSize         int
	CheckpointDir     string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Window            time.Duration
	Params            pool.Params
	LogLevel          string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"out":                "./data",
		"batch-size":         500,
		"checkpoint-dir":     "./data/checkpoints",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"lock-ttl":           5 * time.Second,
		"window":             5 * time.Minute,
		"scale":              uint64(pool.DefaultScale),
		"ratio-tolerance":    uint64(pool.DefaultRatioToleranceBps),
		"curve":              string(pool.CurveLinear),
		"log-level":          "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		Journals:          getStringSlice(v, "journal"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		RedisAddr:         v.GetString("redis-addr"),
		RedisPassword:     v.GetString("redis-password"),
		RedisDB:           v.GetInt("redis-db"),
		LockTTL:           v.GetDuration("lock-ttl"),
		BatchSize:         v.GetInt("batch-size"),
		CheckpointDir:     v.GetString("checkpoint-dir"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Window:            v.GetDuration("window"),
		Params: pool.Params{
			Scale:             v.GetUint64("scale"),
			RatioToleranceBps: v.GetUint64("ratio-tolerance"),
			Curve:             pool.Curve(v.GetString("curve")),
		},
		LogLevel: v.GetString("log-level"),
	}

	if len(cfg.Journals) == 0 {
		return ReplayConfig{}, fmt.Errorf("at least one journal is required")
	}
	if cfg.BatchSize <= 0 {
		return ReplayConfig{}, fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.Window < time.Second {
		return ReplayConfig{}, fmt.Errorf("window must be at least 1s")
	}
	if err := cfg.Params.Validate(); err != nil {
		return ReplayConfig{}, err
	}
	return cfg, nil
}
