package repository

import (
	"errors"

	"stockroom/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes that indicate the transaction lost a race rather
// than hit a real fault: serialization_failure, deadlock_detected,
// lock_not_available.
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
)

// classify wraps storage errors, promoting retryable concurrency failures to
// model.ConcurrencyError so the service layer can retry the whole
// transaction. Everything else stays an opaque infrastructure error.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
			return &model.ConcurrencyError{Err: err}
		}
	}
	return err
}
