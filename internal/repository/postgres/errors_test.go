package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"deptdocs/internal/domain"
)

func TestPgErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert folder: %w", &pgconn.PgError{Code: "23505", ConstraintName: "folders_sibling_name"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsPgDuplicateError(dup))
	assert.Equal(t, "folders_sibling_name", PgConstraint(dup))
	assert.False(t, IsPgDuplicateError(fk))
	assert.True(t, IsPgForeignKeyError(fk))
	assert.True(t, IsPgNoRowsError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.Empty(t, PgConstraint(errors.New("plain")))
}

func TestConcurrencyError(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		err := concurrencyError(fmt.Errorf("update: %w", &pgconn.PgError{Code: code}))
		assert.ErrorIs(t, err, domain.ErrConcurrency, code)
	}

	other := &pgconn.PgError{Code: "23505"}
	assert.Equal(t, error(other), concurrencyError(other))

	plain := errors.New("plain")
	assert.Equal(t, plain, concurrencyError(plain))
}
