package sequencer

import (
	"fmt"

	"swapLedger/internal/model"
)

// Btoi decodes a big-endian unsigned integer of at most eight bytes.
func Btoi(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, fmt.Errorf("%w: integer argument is %d bytes", ErrMalformed, len(b))
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// Itob encodes v as eight big-endian bytes.
func Itob(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func argUint(op model.Operation, i int) (uint64, error) {
	if i >= len(op.Args) {
		return 0, fmt.Errorf("%w: %s needs argument %d", ErrMalformed, op.Kind, i)
	}
	return Btoi(op.Args[i])
}

func optionalArgUint(op model.Operation, i int, fallback uint64) (uint64, error) {
	if i >= len(op.Args) {
		return fallback, nil
	}
	return Btoi(op.Args[i])
}

func argString(op model.Operation, i int) (string, error) {
	if i >= len(op.Args) || len(op.Args[i]) == 0 {
		return "", fmt.Errorf("%w: %s needs argument %d", ErrMalformed, op.Kind, i)
	}
	return string(op.Args[i]), nil
}
