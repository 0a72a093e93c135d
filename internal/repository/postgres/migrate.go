package postgres

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const prefixPlaceholder = "${prefix}"

// newMigrator opens a golang-migrate instance over the embedded migrations.
// Each prefix keeps its own migrations table so environments sharing a
// database migrate independently.
func newMigrator(databaseURL, prefix string) (*migrate.Migrate, error) {
	// golang-migrate needs a *sql.DB; this is a separate handle from the pgx pool.
	// Closing the migrator closes it.
	sqldb, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := migratepg.WithInstance(sqldb, &migratepg.Config{
		MigrationsTable: prefix + "schema_migrations",
	})
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	src, err := iofs.New(&prefixFS{fsys: embeddedMigrations, prefix: prefix}, "migrations")
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending migration for the given table prefix.
func RunMigrations(databaseURL, prefix string, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL, prefix)
	if err != nil {
		return err
	}
	defer m.Close()

	logger.Info("applying migrations", "table_prefix", prefix)
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// RollbackMigrations reverts the last steps migrations; steps <= 0 reverts all of them
// and drops every table of the prefix.
func RollbackMigrations(databaseURL, prefix string, steps int, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL, prefix)
	if err != nil {
		return err
	}
	defer m.Close()

	logger.Warn("rolling back migrations", "table_prefix", prefix, "steps", steps)
	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	logger.Info("migrations rolled back", "table_prefix", prefix)
	return nil
}

// prefixFS serves the embedded migrations with the table prefix substituted
type prefixFS struct {
	fsys   embed.FS
	prefix string
}

func (p *prefixFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return p.fsys.ReadDir(name)
}

func (p *prefixFS) Open(name string) (fs.File, error) {
	f, err := p.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return f, err
	}
	defer f.Close()

	data, err := p.fsys.ReadFile(name)
	if err != nil {
		return nil, err
	}
	data = []byte(strings.ReplaceAll(string(data), prefixPlaceholder, p.prefix))
	return &sqlFile{Reader: bytes.NewReader(data), info: sqlFileInfo{FileInfo: info, size: int64(len(data))}}, nil
}

type sqlFile struct {
	*bytes.Reader
	info sqlFileInfo
}

func (f *sqlFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *sqlFile) Close() error               { return nil }

type sqlFileInfo struct {
	fs.FileInfo
	size int64
}

func (i sqlFileInfo) Size() int64 { return i.size }
