package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound signals that no record matched the key or condition.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)

const (
	pgUniqueViolation    = "23505"
	pgInvalidTextLiteral = "22P02"
)

// translate maps driver errors onto the repository sentinels. Anything it
// does not recognise is returned untouched and treated as a transport error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgInvalidTextLiteral:
			// malformed uuid keys cannot match any row
			return ErrNotFound
		}
	}
	return err
}
