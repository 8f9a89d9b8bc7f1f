package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"swapLedger/internal/storage"
)

// StateStore persists the timestamp of the last fully aggregated result.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps the state in a JSON file.
type FileStateStore struct {
	Path string
}

type stateRecord struct {
	LastAggregated uint64 `json:"last_aggregated_ts"`
	UpdatedAt      string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read state: %w", err)
	}

	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse state: %w", err)
	}
	return rec.LastAggregated, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	data, err := json.Marshal(stateRecord{
		LastAggregated: ts,
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := storage.WriteFileAtomic(s.Path, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
