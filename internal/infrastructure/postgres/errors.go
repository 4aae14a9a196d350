package postgres

import (
	"errors"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// pgx.Row and pgx.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func persistenceErr(op string, err error) error {
	return &domain.PersistenceError{Op: op, Err: err}
}
