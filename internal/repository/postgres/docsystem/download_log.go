package docsystem

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/repository/postgres"
)

var downloadLogColumns = []string{"id", "document_id", "user_id", "downloaded_at", "client_ip", "user_agent"}

// PostgresDownloadLogRepository implements the DownloadLogRepository interface.
// The table rejects UPDATE and DELETE through a trigger.
type PostgresDownloadLogRepository struct {
	base
}

// NewDownloadLogRepository creates a new download log repository
func NewDownloadLogRepository(config *postgres.RepositoryConfig) docsysRepo.DownloadLogRepository {
	return &PostgresDownloadLogRepository{base: newBase(config)}
}

// Append stores an entry and assigns its ID
func (r *PostgresDownloadLogRepository) Append(ctx context.Context, entry *models.DownloadLogEntry) error {
	q := postgres.QB().Insert(r.tables.DownloadLogs).
		Columns("document_id", "user_id", "downloaded_at", "client_ip", "user_agent").
		Values(entry.DocumentID, entry.UserID, entry.DownloadedAt, entry.ClientIP, entry.UserAgent).
		Suffix("RETURNING id")

	sqlStr, args, err := r.build("download_log.append", q)
	if err != nil {
		return err
	}
	if err := r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&entry.ID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", entry.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("append download log: %w", err)
	}
	return nil
}

func (r *PostgresDownloadLogRepository) list(ctx context.Context, op string, q sq.SelectBuilder) ([]models.DownloadLogEntry, error) {
	sqlStr, args, err := r.build(op, q.OrderBy("downloaded_at DESC", "id DESC"))
	if err != nil {
		return nil, err
	}
	rows, err := r.executor(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DownloadLogEntry, error) {
		var e models.DownloadLogEntry
		err := row.Scan(&e.ID, &e.DocumentID, &e.UserID, &e.DownloadedAt, &e.ClientIP, &e.UserAgent)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: scan: %w", op, err)
	}
	if entries == nil {
		entries = []models.DownloadLogEntry{}
	}
	return entries, nil
}

// ListByDocument returns a document's downloads, newest first
func (r *PostgresDownloadLogRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DownloadLogEntry, error) {
	q := postgres.QB().Select(downloadLogColumns...).From(r.tables.DownloadLogs).
		Where(sq.Eq{"document_id": documentID})
	return r.list(ctx, "download_log.list_document", q)
}

// ListByUser returns a user's most recent downloads
func (r *PostgresDownloadLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.DownloadLogEntry, error) {
	q := postgres.QB().Select(downloadLogColumns...).From(r.tables.DownloadLogs).
		Where(sq.Eq{"user_id": userID})
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.list(ctx, "download_log.list_user", q)
}

// HasDownloads reports whether any entry references the document
func (r *PostgresDownloadLogRepository) HasDownloads(ctx context.Context, documentID string) (bool, error) {
	q := postgres.QB().Select("1").From(r.tables.DownloadLogs).
		Where(sq.Eq{"document_id": documentID}).
		Prefix("SELECT EXISTS (").Suffix(")")
	sqlStr, args, err := r.build("download_log.exists", q)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check download history: %w", err)
	}
	return exists, nil
}
