package model

import "time"

// PoolWindowMetrics stores aggregated activity for a pool window.
type PoolWindowMetrics struct {
	Pool                  string    `json:"pool"`
	WindowSizeSecs        int64     `json:"window_size_seconds"`
	WindowStart           time.Time `json:"window_start"`
	WindowEnd             time.Time `json:"window_end"`
	SwapCount             uint64    `json:"swap_count"`
	AddCount              uint64    `json:"add_count"`
	RemoveCount           uint64    `json:"remove_count"`
	RejectedCount         uint64    `json:"rejected_count"`
	PrimaryVolume         string    `json:"primary_volume"`
	SecondaryVolume       string    `json:"secondary_volume"`
	PrimaryFee            string    `json:"primary_fee"`
	SecondaryFee          string    `json:"secondary_fee"`
	FeeRate               *string   `json:"fee_rate,omitempty"`
	APR                   *string   `json:"apr,omitempty"`
	ClosePrimaryBalance   string    `json:"close_primary_balance"`
	CloseSecondaryBalance string    `json:"close_secondary_balance"`
	CloseTotalLiquidity   string    `json:"close_total_liquidity"`
	LastSeq               uint64    `json:"last_seq"`
}
