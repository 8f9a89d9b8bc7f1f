package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"swapLedger/internal/model"
	"swapLedger/internal/storage"
)

// Checkpoint is the ledger state after the last stored batch.
type Checkpoint struct {
	Snapshot  model.PoolSnapshot `json:"snapshot"`
	UpdatedAt string             `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}
	return LoadCheckpoint(c.path)
}

func (c *CheckpointStore) Save(snap model.PoolSnapshot) error {
	if !c.enabled {
		return nil
	}
	data, err := json.Marshal(Checkpoint{
		Snapshot:  snap,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := storage.WriteFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint file. A missing file reports ok=false.
func LoadCheckpoint(path string) (Checkpoint, bool, error) {
	stat, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}
