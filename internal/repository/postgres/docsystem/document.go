package docsystem

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/repository/postgres"
)

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	base
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) docsysRepo.DocumentRepository {
	return &PostgresDocumentRepository{base: newBase(config)}
}

func (r *PostgresDocumentRepository) columns() []string {
	return []string{
		"d.id", "d.folder_id", "d.department_id", "d.uploader_id", "d.original_name", "d.stored_name",
		"d.content_type", "d.size_bytes", "d.description", "d.public", "d.status", "d.version",
		"d.download_count", "d.uploaded_at", "d.modified_at", "d.deleted_at",
		fmt.Sprintf("COALESCE((SELECT array_agg(t.tag ORDER BY t.tag) FROM %s t WHERE t.document_id = d.id), '{}'::text[])",
			r.tables.DocumentTags),
	}
}

func scanDocument(row pgx.Row) (models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID,
		&d.FolderID,
		&d.DepartmentID,
		&d.UploaderID,
		&d.OriginalName,
		&d.StoredName,
		&d.ContentType,
		&d.SizeBytes,
		&d.Description,
		&d.Public,
		&d.Status,
		&d.Version,
		&d.DownloadCount,
		&d.UploadedAt,
		&d.ModifiedAt,
		&d.DeletedAt,
		&d.Tags,
	)
	return d, err
}

func (r *PostgresDocumentRepository) selectLive() sq.SelectBuilder {
	return postgres.QB().Select(r.columns()...).
		From(r.tables.Documents + " d").
		Where(sq.Eq{"d.deleted_at": nil})
}

func (r *PostgresDocumentRepository) query(ctx context.Context, op string, q sq.SelectBuilder) ([]models.Document, error) {
	sqlStr, args, err := r.build(op, q)
	if err != nil {
		return nil, err
	}
	rows, err := r.executor(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	q := postgres.QB().Insert(r.tables.Documents).
		Columns("id", "folder_id", "department_id", "uploader_id", "original_name", "stored_name",
			"content_type", "size_bytes", "description", "public", "status", "version",
			"download_count", "uploaded_at", "modified_at").
		Values(doc.ID, doc.FolderID, doc.DepartmentID, doc.UploaderID, doc.OriginalName, doc.StoredName,
			doc.ContentType, doc.SizeBytes, doc.Description, doc.Public, doc.Status, doc.Version,
			doc.DownloadCount, doc.UploadedAt, doc.ModifiedAt)

	if _, err := r.exec(ctx, "document.create", q); err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("stored name %s is already in use", doc.StoredName),
				Reason:       domain.ConflictDuplicate,
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("folder or department of document '%s': %w", doc.OriginalName, domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	sqlStr, args, err := r.build("document.get", r.selectLive().Where(sq.Eq{"d.id": id}))
	if err != nil {
		return nil, err
	}
	d, err := scanDocument(r.executor(ctx).QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// Update persists mutable fields guarded by the version column
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document, expectedVersion int) error {
	q := postgres.QB().Update(r.tables.Documents).
		SetMap(map[string]any{
			"folder_id":     doc.FolderID,
			"department_id": doc.DepartmentID,
			"original_name": doc.OriginalName,
			"description":   doc.Description,
			"public":        doc.Public,
			"status":        doc.Status,
			"modified_at":   doc.ModifiedAt,
			"version":       sq.Expr("version + 1"),
		}).
		Where(sq.Eq{"id": doc.ID, "version": expectedVersion, "deleted_at": nil}).
		Suffix("RETURNING version")
	if doc.FolderID != nil {
		// the folder must still be live and in the document's department when the row is written
		q = q.Where(sq.Expr(
			fmt.Sprintf("EXISTS (SELECT 1 FROM %s f WHERE f.id = ? AND f.department_id = ? AND f.deleted_at IS NULL)", r.tables.Folders),
			*doc.FolderID, doc.DepartmentID,
		))
	}

	sqlStr, args, err := r.build("document.update", q)
	if err != nil {
		return err
	}
	err = r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&doc.Version)
	if err == nil {
		return nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return fmt.Errorf("update document: %w", err)
	}

	// Nothing matched: the row is gone, the version moved on or the folder did
	current, getErr := r.GetByID(ctx, doc.ID)
	if getErr != nil {
		return getErr
	}
	if current.Version != expectedVersion || doc.FolderID == nil {
		return &domain.ConcurrencyError{
			Message: fmt.Sprintf("document %s was modified concurrently (expected version %d)", doc.ID, expectedVersion),
		}
	}
	return &domain.ConcurrencyError{
		Message: fmt.Sprintf("folder %s of document %s was deleted or moved", *doc.FolderID, doc.ID),
	}
}

// Delete physically removes a document; tags cascade
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	q := postgres.QB().Delete(r.tables.Documents).Where(sq.Eq{"id": id})
	n, err := r.exec(ctx, "document.delete", q)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			// A download was recorded after the history check
			return &domain.ConcurrencyError{Message: fmt.Sprintf("document %s gained download history", id)}
		}
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marks the listed documents as deleted
func (r *PostgresDocumentRepository) SoftDelete(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q := postgres.QB().Update(r.tables.Documents).
		Set("deleted_at", at).
		Where(sq.Eq{"id": ids, "deleted_at": nil})
	if _, err := r.exec(ctx, "document.soft_delete", q); err != nil {
		return fmt.Errorf("soft delete documents: %w", err)
	}
	return nil
}

// ListByFolder lists documents in a folder
func (r *PostgresDocumentRepository) ListByFolder(ctx context.Context, departmentID string, folderID *string) ([]models.Document, error) {
	q := r.selectLive()
	if folderID == nil {
		q = q.Where(sq.Eq{"d.department_id": departmentID, "d.folder_id": nil})
	} else {
		q = q.Where(sq.Eq{"d.folder_id": *folderID})
	}
	return r.query(ctx, "document.list_folder", q.OrderBy(orderBy(models.SortName, false)...))
}

// ListByDepartment retrieves all document metadata in a department
func (r *PostgresDocumentRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Document, error) {
	q := r.selectLive().Where(sq.Eq{"d.department_id": departmentID})
	return r.query(ctx, "document.list_department", q.OrderBy(orderBy(models.SortName, false)...))
}

// ListIDsByFolders returns ids of live documents inside the listed folders
func (r *PostgresDocumentRepository) ListIDsByFolders(ctx context.Context, folderIDs []string) ([]string, error) {
	if len(folderIDs) == 0 {
		return []string{}, nil
	}
	q := postgres.QB().Select("id").From(r.tables.Documents).
		Where(sq.Eq{"folder_id": folderIDs, "deleted_at": nil}).
		OrderBy("id")
	sqlStr, args, err := r.build("document.list_ids", q)
	if err != nil {
		return nil, err
	}
	rows, err := r.executor(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect document ids: %w", err)
	}
	return ids, nil
}

// CountByFolder counts documents directly inside a folder
func (r *PostgresDocumentRepository) CountByFolder(ctx context.Context, folderID string) (int, error) {
	q := postgres.QB().Select("count(*)").From(r.tables.Documents).
		Where(sq.Eq{"folder_id": folderID, "deleted_at": nil})
	sqlStr, args, err := r.build("document.count_folder", q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// UpdateDepartmentForFolders rewrites the department of documents inside the listed folders
func (r *PostgresDocumentRepository) UpdateDepartmentForFolders(ctx context.Context, folderIDs []string, departmentID string) error {
	if len(folderIDs) == 0 {
		return nil
	}
	q := postgres.QB().Update(r.tables.Documents).
		Set("department_id", departmentID).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"folder_id": folderIDs})
	if _, err := r.exec(ctx, "document.update_department", q); err != nil {
		return fmt.Errorf("update document departments: %w", err)
	}
	return nil
}

// IncrementDownloadCount adds one in a single statement so concurrent
// downloads never lose an increment
func (r *PostgresDocumentRepository) IncrementDownloadCount(ctx context.Context, id string) (int64, error) {
	q := postgres.QB().Update(r.tables.Documents).
		Set("download_count", sq.Expr("download_count + 1")).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		Suffix("RETURNING download_count")

	sqlStr, args, err := r.build("document.increment_downloads", q)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return 0, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("increment download count: %w", err)
	}
	return count, nil
}

// SetTags replaces the tag set. Callers run it inside ExecTx.
func (r *PostgresDocumentRepository) SetTags(ctx context.Context, id string, tags []string) error {
	del := postgres.QB().Delete(r.tables.DocumentTags).Where(sq.Eq{"document_id": id})
	if _, err := r.exec(ctx, "document.clear_tags", del); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	ins := postgres.QB().Insert(r.tables.DocumentTags).Columns("document_id", "tag")
	for _, tag := range tags {
		ins = ins.Values(id, tag)
	}
	if _, err := r.exec(ctx, "document.insert_tags", ins.Suffix("ON CONFLICT DO NOTHING")); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("insert tags: %w", err)
	}
	return nil
}

// Search runs the scoped filter AST, returning one page and the total count
func (r *PostgresDocumentRepository) Search(ctx context.Context, query *models.SearchQuery) ([]models.Document, int, error) {
	where, err := translateNode(query.Where, r.tables.DocumentTags)
	if err != nil {
		return nil, 0, fmt.Errorf("translate search filter: %w", domain.Invalid("%v", err))
	}

	countQ := postgres.QB().Select("count(*)").
		From(r.tables.Documents + " d").
		Where(sq.Eq{"d.deleted_at": nil}).
		Where(where)
	sqlStr, args, err := r.build("document.search_count", countQ)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}
	if total == 0 {
		return []models.Document{}, 0, nil
	}

	pageQ := r.selectLive().Where(where).OrderBy(orderBy(query.Sort, query.Desc)...)
	if query.Limit > 0 {
		pageQ = pageQ.Limit(uint64(query.Limit))
	}
	if query.Offset > 0 {
		pageQ = pageQ.Offset(uint64(query.Offset))
	}
	docs, err := r.query(ctx, "document.search", pageQ)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}
