package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"deptdocs/internal/domain/repositories"
	"deptdocs/internal/repository/postgres"
)

// base carries what every docsystem repository needs
type base struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

func newBase(config *postgres.RepositoryConfig) base {
	return base{pool: config.Pool, tables: config.Tables, logger: config.Logger}
}

func (b *base) executor(ctx context.Context) repositories.DBTX {
	return postgres.GetExecutor(ctx, b.pool)
}

// build renders a squirrel statement and logs it at debug level
func (b *base) build(op string, q sq.Sqlizer) (string, []any, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	b.logger.Debug("sql", "op", op, "query", sqlStr, "args", len(args))
	return sqlStr, args, nil
}

// exec runs a statement and returns the affected row count
func (b *base) exec(ctx context.Context, op string, q sq.Sqlizer) (int64, error) {
	sqlStr, args, err := b.build(op, q)
	if err != nil {
		return 0, err
	}
	tag, err := b.executor(ctx).Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
