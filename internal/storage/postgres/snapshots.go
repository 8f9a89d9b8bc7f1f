package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"swapLedger/internal/asset"
	"swapLedger/internal/model"
)

// PutSnapshot replaces the stored state of a pool and its positions.
func (s *Store) PutSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	if snap.Pool == "" {
		return fmt.Errorf("snapshot pool name required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO pools (
			name, last_seq, scale, ratio_tolerance_bps, curve, created,
			primary_balance, secondary_balance, total_liquidity_tokens, fee_bps,
			creator, escrow, primary_kind, primary_asset_id, secondary_kind, secondary_asset_id,
			taken_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now())
		ON CONFLICT (name) DO UPDATE SET
			last_seq = EXCLUDED.last_seq,
			scale = EXCLUDED.scale,
			ratio_tolerance_bps = EXCLUDED.ratio_tolerance_bps,
			curve = EXCLUDED.curve,
			created = EXCLUDED.created,
			primary_balance = EXCLUDED.primary_balance,
			secondary_balance = EXCLUDED.secondary_balance,
			total_liquidity_tokens = EXCLUDED.total_liquidity_tokens,
			fee_bps = EXCLUDED.fee_bps,
			creator = EXCLUDED.creator,
			escrow = EXCLUDED.escrow,
			primary_kind = EXCLUDED.primary_kind,
			primary_asset_id = EXCLUDED.primary_asset_id,
			secondary_kind = EXCLUDED.secondary_kind,
			secondary_asset_id = EXCLUDED.secondary_asset_id,
			taken_at = EXCLUDED.taken_at,
			updated_at = now()
	`,
		snap.Pool,
		int64(snap.LastSeq),
		numeric(snap.Scale),
		int64(snap.RatioToleranceBps),
		snap.Curve,
		snap.Created,
		numeric(snap.PrimaryBalance),
		numeric(snap.SecondaryBalance),
		numeric(snap.TotalLiquidityTokens),
		int32(snap.FeeBps),
		snap.Creator,
		snap.Escrow,
		string(snap.PrimaryAsset.Kind),
		numeric(snap.PrimaryAsset.ID),
		string(snap.SecondaryAsset.Kind),
		numeric(snap.SecondaryAsset.ID),
		snap.TakenAt,
	)
	if err != nil {
		return classify(fmt.Errorf("upsert pool: %w", err))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM positions WHERE pool=$1`, snap.Pool); err != nil {
		return fmt.Errorf("clear positions: %w", err)
	}
	if len(snap.Positions) > 0 {
		batch := &pgx.Batch{}
		for _, p := range snap.Positions {
			batch.Queue(`
				INSERT INTO positions (pool, account, liquidity_tokens, primary_owed, secondary_owed)
				VALUES ($1, $2, $3, $4, $5)
			`, snap.Pool, p.Account, numeric(p.LiquidityTokens), numeric(p.PrimaryOwed), numeric(p.SecondaryOwed))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return classify(fmt.Errorf("insert positions: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored state of a pool.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (model.PoolSnapshot, bool, error) {
	var snap model.PoolSnapshot
	var lastSeq, tolerance int64
	var feeBps int32
	var scale, primary, secondary, total string
	var primaryKind, secondaryKind, primaryID, secondaryID string
	row := s.pool.QueryRow(ctx, `
		SELECT last_seq, scale::text, ratio_tolerance_bps, curve, created,
			primary_balance::text, secondary_balance::text, total_liquidity_tokens::text, fee_bps,
			creator, escrow, primary_kind, primary_asset_id::text, secondary_kind, secondary_asset_id::text,
			taken_at
		FROM pools WHERE name=$1
	`, name)
	err := row.Scan(&lastSeq, &scale, &tolerance, &snap.Curve, &snap.Created,
		&primary, &secondary, &total, &feeBps,
		&snap.Creator, &snap.Escrow, &primaryKind, &primaryID, &secondaryKind, &secondaryID,
		&snap.TakenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, fmt.Errorf("load pool: %w", err)
	}

	snap.Pool = name
	snap.LastSeq = uint64(lastSeq)
	snap.RatioToleranceBps = uint64(tolerance)
	snap.FeeBps = uint16(feeBps)
	fields := []struct {
		name string
		raw  string
		dst  *uint64
	}{
		{"scale", scale, &snap.Scale},
		{"primary_balance", primary, &snap.PrimaryBalance},
		{"secondary_balance", secondary, &snap.SecondaryBalance},
		{"total_liquidity_tokens", total, &snap.TotalLiquidityTokens},
		{"primary_asset_id", primaryID, &snap.PrimaryAsset.ID},
		{"secondary_asset_id", secondaryID, &snap.SecondaryAsset.ID},
	}
	for _, f := range fields {
		if *f.dst, err = parseNumeric(f.name, f.raw); err != nil {
			return model.PoolSnapshot{}, false, err
		}
	}
	snap.PrimaryAsset.Kind = asset.Kind(primaryKind)
	snap.SecondaryAsset.Kind = asset.Kind(secondaryKind)

	rows, err := s.pool.Query(ctx, `
		SELECT account, liquidity_tokens::text, primary_owed::text, secondary_owed::text
		FROM positions WHERE pool=$1 ORDER BY account
	`, name)
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	snap.Positions = make([]model.PositionRecord, 0)
	for rows.Next() {
		var p model.PositionRecord
		var tokens, primaryOwed, secondaryOwed string
		if err := rows.Scan(&p.Account, &tokens, &primaryOwed, &secondaryOwed); err != nil {
			return model.PoolSnapshot{}, false, fmt.Errorf("scan position: %w", err)
		}
		if p.LiquidityTokens, err = parseNumeric("liquidity_tokens", tokens); err != nil {
			return model.PoolSnapshot{}, false, err
		}
		if p.PrimaryOwed, err = parseNumeric("primary_owed", primaryOwed); err != nil {
			return model.PoolSnapshot{}, false, err
		}
		if p.SecondaryOwed, err = parseNumeric("secondary_owed", secondaryOwed); err != nil {
			return model.PoolSnapshot{}, false, err
		}
		snap.Positions = append(snap.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("iterate positions: %w", err)
	}
	return snap, true, nil
}
