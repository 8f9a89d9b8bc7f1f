package storage

import (
	"context"

	"swapLedger/internal/model"
)

// Storage defines a sink for replay output.
type Storage interface {
	PutResultBatch(ctx context.Context, results []model.OperationResult) error
	PutSnapshot(ctx context.Context, snap model.PoolSnapshot) error
	PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}
