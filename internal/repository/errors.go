package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrOpenSessionExists is returned by AppendSession when another session is still OPEN.
	ErrOpenSessionExists = errors.New("an open register session already exists")
	// ErrSessionNotOpen is returned by UpdateSession when the stored row is no longer OPEN.
	ErrSessionNotOpen = errors.New("register session is not open")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
