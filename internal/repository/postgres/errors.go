package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"deptdocs/internal/domain"
)

// SQLSTATE codes the repositories react to
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// IsPgDuplicateError reports a unique constraint violation (sibling names, stored names)
func IsPgDuplicateError(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == codeUniqueViolation
}

// IsPgForeignKeyError reports a reference to a missing department, folder or document
func IsPgForeignKeyError(err error) bool {
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == codeForeignKeyViolation
}

// PgConstraint returns the violated constraint name, if any
func PgConstraint(err error) string {
	if pgErr := pgError(err); pgErr != nil {
		return pgErr.ConstraintName
	}
	return ""
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// concurrencyError turns lost serialization races into domain.ConcurrencyError
// and leaves every other error untouched
func concurrencyError(err error) error {
	pgErr := pgError(err)
	if pgErr == nil {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return &domain.ConcurrencyError{Message: "concurrent modification, retry the request"}
	}
	return err
}
