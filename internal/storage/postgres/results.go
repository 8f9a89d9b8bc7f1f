package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"swapLedger/internal/model"
)

// PutResultBatch inserts operation results. Results already stored for the
// same pool and sequence are left unchanged.
func (s *Store) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO operation_results (
				pool, seq, operation_id, ts, kind, sender, status, error,
				primary_in, secondary_in, primary_out, secondary_out, minted, burned,
				fee_retained, primary_paid, secondary_paid,
				primary_balance, secondary_balance, total_liquidity_tokens, applied_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
			ON CONFLICT (pool, seq) DO NOTHING
		`,
			r.Pool,
			int64(r.Seq),
			r.OperationID,
			int64(r.Timestamp),
			string(r.Kind),
			r.Sender,
			string(r.Status),
			r.Error,
			numeric(r.PrimaryIn),
			numeric(r.SecondaryIn),
			numeric(r.PrimaryOut),
			numeric(r.SecondaryOut),
			numeric(r.Minted),
			numeric(r.Burned),
			numeric(r.FeeRetained),
			numeric(r.PrimaryPaid),
			numeric(r.SecondaryPaid),
			numeric(r.PrimaryBalance),
			numeric(r.SecondaryBalance),
			numeric(r.TotalLiquidityTokens),
			r.AppliedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return classify(err)
		}
	}
	return nil
}

// PutWindowMetrics inserts or updates window metrics.
func (s *Store) PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, add_count, remove_count, rejected_count,
				primary_volume, secondary_volume, primary_fee, secondary_fee, fee_rate, apr,
				close_primary_balance, close_secondary_balance, close_total_liquidity, last_seq,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now(),now())
			ON CONFLICT (pool, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				add_count = EXCLUDED.add_count,
				remove_count = EXCLUDED.remove_count,
				rejected_count = EXCLUDED.rejected_count,
				primary_volume = EXCLUDED.primary_volume,
				secondary_volume = EXCLUDED.secondary_volume,
				primary_fee = EXCLUDED.primary_fee,
				secondary_fee = EXCLUDED.secondary_fee,
				fee_rate = EXCLUDED.fee_rate,
				apr = EXCLUDED.apr,
				close_primary_balance = EXCLUDED.close_primary_balance,
				close_secondary_balance = EXCLUDED.close_secondary_balance,
				close_total_liquidity = EXCLUDED.close_total_liquidity,
				last_seq = EXCLUDED.last_seq,
				updated_at = now()
		`,
			m.Pool,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.AddCount),
			int64(m.RemoveCount),
			int64(m.RejectedCount),
			m.PrimaryVolume,
			m.SecondaryVolume,
			m.PrimaryFee,
			m.SecondaryFee,
			m.FeeRate,
			m.APR,
			m.ClosePrimaryBalance,
			m.CloseSecondaryBalance,
			m.CloseTotalLiquidity,
			int64(m.LastSeq),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return classify(err)
		}
	}
	return nil
}
