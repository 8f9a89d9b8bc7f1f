package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"swapLedger/internal/storage"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code      string
		permanent bool
	}{
		{"23505", true}, // unique_violation
		{"23514", true}, // check_violation
		{"22003", true}, // numeric_value_out_of_range
		{"40001", false},
		{"57P01", false},
		{"08006", false},
	}
	for _, c := range cases {
		err := fmt.Errorf("insert positions: %w", &pgconn.PgError{Code: c.code})
		got := classify(err)
		require.Equal(t, c.permanent, storage.IsPermanent(got), c.code)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, got, &pgErr)
	}

	plain := errors.New("conn reset")
	require.Same(t, plain, classify(plain))
	require.NoError(t, classify(nil))
}
