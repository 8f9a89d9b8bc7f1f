package replay

import "fmt"

// Range is an inclusive range of journal positions.
type Range struct {
	From int
	To   int
}

// SplitRange splits [from, to] into batches of at most batchSize positions.
func SplitRange(from, to, batchSize int) ([]Range, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if from < 0 || to < from {
		return nil, fmt.Errorf("invalid range [%d, %d]", from, to)
	}

	ranges := make([]Range, 0, (to-from)/batchSize+1)
	for start := from; start <= to; start += batchSize {
		end := start + batchSize - 1
		if end > to {
			end = to
		}
		ranges = append(ranges, Range{From: start, To: end})
	}
	return ranges, nil
}
