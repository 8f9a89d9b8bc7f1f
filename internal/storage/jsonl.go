package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swapLedger/internal/model"
)

const (
	ResultsFile   = "results.jsonl"
	SnapshotsFile = "snapshots.jsonl"
	MetricsFile   = "window_metrics.jsonl"
)

// JsonlStorage appends replay output to JSONL files under a directory.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

// PutResultBatch appends operation results as JSON lines.
func (s *JsonlStorage) PutResultBatch(ctx context.Context, results []model.OperationResult) error {
	return appendLines(s, ResultsFile, results)
}

// PutSnapshot appends one snapshot line.
func (s *JsonlStorage) PutSnapshot(ctx context.Context, snap model.PoolSnapshot) error {
	return appendLines(s, SnapshotsFile, []model.PoolSnapshot{snap})
}

// PutWindowMetrics appends window metrics as JSON lines.
func (s *JsonlStorage) PutWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	return appendLines(s, MetricsFile, metrics)
}

func appendLines[T any](s *JsonlStorage, name string, records []T) error {
	if len(records) == 0 {
		return nil
	}

	if s.dir != "." && s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
