package model

// Status is the outcome of an operation.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
)

// OperationResult records what an operation did to its pool.
type OperationResult struct {
	OperationID          string `json:"operation_id"`
	Pool                 string `json:"pool"`
	Seq                  uint64 `json:"seq"`
	Timestamp            uint64 `json:"timestamp"`
	Kind                 OpKind `json:"kind"`
	Sender               string `json:"sender"`
	Status               Status `json:"status"`
	Error                string `json:"error,omitempty"`
	PrimaryIn            uint64 `json:"primary_in,omitempty"`
	SecondaryIn          uint64 `json:"secondary_in,omitempty"`
	PrimaryOut           uint64 `json:"primary_out,omitempty"`
	SecondaryOut         uint64 `json:"secondary_out,omitempty"`
	Minted               uint64 `json:"minted,omitempty"`
	Burned               uint64 `json:"burned,omitempty"`
	FeeRetained          uint64 `json:"fee_retained,omitempty"`
	PrimaryPaid          uint64 `json:"primary_paid,omitempty"`
	SecondaryPaid        uint64 `json:"secondary_paid,omitempty"`
	PrimaryBalance       uint64 `json:"primary_balance"`
	SecondaryBalance     uint64 `json:"secondary_balance"`
	TotalLiquidityTokens uint64 `json:"total_liquidity_tokens"`
	AppliedAt            string `json:"applied_at"`
}

func (r OperationResult) Applied() bool {
	return r.Status == StatusApplied
}
