package docsystem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/repository/postgres"
)

var folderColumns = []string{
	"id", "parent_id", "department_id", "name", "system", "display_order",
	"created_by", "created_at", "updated_at", "deleted_at",
}

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	base
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *postgres.RepositoryConfig) docsysRepo.FolderRepository {
	return &PostgresFolderRepository{base: newBase(config)}
}

func scanFolder(row pgx.Row) (models.Folder, error) {
	var f models.Folder
	err := row.Scan(
		&f.ID,
		&f.ParentID,
		&f.DepartmentID,
		&f.Name,
		&f.System,
		&f.DisplayOrder,
		&f.CreatedBy,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.DeletedAt,
	)
	return f, err
}

func (r *PostgresFolderRepository) selectLive() sq.SelectBuilder {
	return postgres.QB().Select(folderColumns...).
		From(r.tables.Folders).
		Where(sq.Eq{"deleted_at": nil})
}

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	q := postgres.QB().Insert(r.tables.Folders).
		Columns("id", "parent_id", "department_id", "name", "system", "display_order", "created_by", "created_at", "updated_at").
		Values(folder.ID, folder.ParentID, folder.DepartmentID, folder.Name, folder.System, folder.DisplayOrder,
			folder.CreatedBy, folder.CreatedAt, folder.UpdatedAt)

	if _, err := r.exec(ctx, "folder.create", q); err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.duplicateError(ctx, folder)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("parent folder or department of '%s': %w", folder.Name, domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// duplicateError builds a ConflictError pointing at the live sibling holding the name
func (r *PostgresFolderRepository) duplicateError(ctx context.Context, folder *models.Folder) error {
	conflict := &domain.ConflictError{
		Message:      fmt.Sprintf("folder '%s' already exists in this location", folder.Name),
		Reason:       domain.ConflictDuplicate,
		ResourceType: "folder",
	}

	q := r.selectLive().
		Where(sq.Eq{"department_id": folder.DepartmentID}).
		Where(sq.Expr("lower(name) = ?", strings.ToLower(folder.Name))).
		Where(sq.NotEq{"id": folder.ID})
	if folder.ParentID == nil {
		q = q.Where(sq.Eq{"parent_id": nil})
	} else {
		q = q.Where(sq.Eq{"parent_id": *folder.ParentID})
	}

	sqlStr, args, err := r.build("folder.find_sibling", q.Limit(1))
	if err != nil {
		return conflict
	}
	if existing, err := scanFolder(r.executor(ctx).QueryRow(ctx, sqlStr, args...)); err == nil {
		conflict.ResourceID = existing.ID
	}
	return conflict
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	sqlStr, args, err := r.build("folder.get", r.selectLive().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	f, err := scanFolder(r.executor(ctx).QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &f, nil
}

func (r *PostgresFolderRepository) list(ctx context.Context, op string, q sq.SelectBuilder) ([]models.Folder, error) {
	sqlStr, args, err := r.build(op, q.OrderBy("display_order ASC", "name ASC", "id ASC"))
	if err != nil {
		return nil, err
	}
	rows, err := r.executor(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}
	return folders, nil
}

// ListRoots lists the root folders of a department
func (r *PostgresFolderRepository) ListRoots(ctx context.Context, departmentID string) ([]models.Folder, error) {
	return r.list(ctx, "folder.list_roots", r.selectLive().
		Where(sq.Eq{"department_id": departmentID, "parent_id": nil}))
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID string) ([]models.Folder, error) {
	return r.list(ctx, "folder.list_children", r.selectLive().Where(sq.Eq{"parent_id": parentID}))
}

// ListByDepartment retrieves all folders in a department (flat list)
func (r *PostgresFolderRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Folder, error) {
	return r.list(ctx, "folder.list_department", r.selectLive().Where(sq.Eq{"department_id": departmentID}))
}

// Update updates a folder
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	q := postgres.QB().Update(r.tables.Folders).
		SetMap(map[string]any{
			"name":          folder.Name,
			"parent_id":     folder.ParentID,
			"department_id": folder.DepartmentID,
			"display_order": folder.DisplayOrder,
			"updated_at":    folder.UpdatedAt,
		}).
		Where(sq.Eq{"id": folder.ID, "deleted_at": nil})

	n, err := r.exec(ctx, "folder.update", q)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.duplicateError(ctx, folder)
		}
		return fmt.Errorf("update folder: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateDepartment rewrites the department of every listed folder
func (r *PostgresFolderRepository) UpdateDepartment(ctx context.Context, ids []string, departmentID string) error {
	if len(ids) == 0 {
		return nil
	}
	q := postgres.QB().Update(r.tables.Folders).
		Set("department_id", departmentID).
		Where(sq.Eq{"id": ids})
	if _, err := r.exec(ctx, "folder.update_department", q); err != nil {
		return fmt.Errorf("update folder departments: %w", err)
	}
	return nil
}

// SoftDelete marks the listed folders as deleted
func (r *PostgresFolderRepository) SoftDelete(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q := postgres.QB().Update(r.tables.Folders).
		Set("deleted_at", at).
		Where(sq.Eq{"id": ids, "deleted_at": nil})
	if _, err := r.exec(ctx, "folder.soft_delete", q); err != nil {
		return fmt.Errorf("soft delete folders: %w", err)
	}
	return nil
}

// LockDepartments takes a transaction-scoped advisory lock per department,
// always in sorted order so two movers cannot deadlock
func (r *PostgresFolderRepository) LockDepartments(ctx context.Context, departmentIDs ...string) error {
	tx := repositories.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("lock departments: no active transaction")
	}

	ids := append([]string(nil), departmentIDs...)
	sort.Strings(ids)
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		key := r.tables.Folders + ":" + id
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
			return fmt.Errorf("lock department %s: %w", id, err)
		}
	}
	return nil
}
