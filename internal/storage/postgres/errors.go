package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"swapLedger/internal/storage"
)

// classify marks data exceptions (class 22) and integrity constraint
// violations (class 23) as permanent. Rerunning the same rows fails the same way.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 {
		switch pgErr.Code[:2] {
		case "22", "23":
			return storage.Permanent(err)
		}
	}
	return err
}
