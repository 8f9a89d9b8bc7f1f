package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"swapLedger/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestJsonlStorageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewJsonlStorage(dir)
	ctx := context.Background()

	batch := []model.OperationResult{
		{OperationID: "a", Pool: "main", Seq: 1, Kind: model.OpOptIn, Status: model.StatusApplied},
		{OperationID: "b", Pool: "main", Seq: 2, Kind: model.OpSwap, Status: model.StatusRejected, Error: "position has pending withdrawal"},
	}
	if err := s.PutResultBatch(ctx, batch); err != nil {
		t.Fatalf("put results: %v", err)
	}
	if err := s.PutResultBatch(ctx, batch[:1]); err != nil {
		t.Fatalf("put results: %v", err)
	}
	if err := s.PutResultBatch(ctx, nil); err != nil {
		t.Fatalf("put empty results: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, ResultsFile))
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var decoded model.OperationResult
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded != batch[1] {
		t.Fatalf("line mismatch: %+v != %+v", decoded, batch[1])
	}

	if err := s.PutSnapshot(ctx, model.PoolSnapshot{Pool: "main", LastSeq: 2}); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}
	if got := readLines(t, filepath.Join(dir, SnapshotsFile)); len(got) != 1 {
		t.Fatalf("expected 1 snapshot line, got %d", len(got))
	}
}
