package postgres

import (
	"errors"
	"fmt"

	"mediafolders/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// NotFound builds the domain error for a missing folder or file row.
func NotFound(kind, id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("%s %s not found", kind, id)}
}

// ValidID reports whether id can be a primary key. Ids are UUIDs; anything
// else cannot exist and is reported as not found instead of a syntax error.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}

// NullableID converts a folder reference into a query argument.
func NullableID(id *string) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
