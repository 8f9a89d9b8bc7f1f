package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"swapLedger/internal/model"
)

// ReadJournal loads the operations of a JSONL journal file.
func ReadJournal(path string) ([]model.Operation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()
	return DecodeJournal(file)
}

// DecodeJournal reads one operation per line. Operations without a sequence
// number are numbered by their position in the journal, starting at 1.
func DecodeJournal(r io.Reader) ([]model.Operation, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var ops []model.Operation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", lineNo, err)
		}
		if op.Seq == 0 {
			op.Seq = uint64(len(ops) + 1)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return ops, nil
}
