package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// AuditConfig holds configuration for the audit command.
type AuditConfig struct {
	Snapshot string
	Pool     string
	PGDSN    string
	LogLevel string
}

// LoadAudit merges config file, environment variables, and flags into AuditConfig.
func LoadAudit(cfgFile string, flags *pflag.FlagSet) (AuditConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"log-level": "info",
	})
	if err != nil {
		return AuditConfig{}, err
	}

	cfg := AuditConfig{
		Snapshot: v.GetString("snapshot"),
		Pool:     v.GetString("pool"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Snapshot == "" && (cfg.PGDSN == "" || cfg.Pool == "") {
		return AuditConfig{}, fmt.Errorf("either --snapshot or --pg-dsn with --pool is required")
	}
	return cfg, nil
}
