package docsystem

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/repository/postgres"
)

// PostgresDepartmentRepository implements the DepartmentRepository interface
type PostgresDepartmentRepository struct {
	base
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(config *postgres.RepositoryConfig) docsysRepo.DepartmentRepository {
	return &PostgresDepartmentRepository{base: newBase(config)}
}

// Create creates a new department
func (r *PostgresDepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	q := postgres.QB().Insert(r.tables.Departments).
		Columns("id", "name", "active").
		Values(dept.ID, dept.Name, dept.Active).
		Suffix("RETURNING created_at")

	sqlStr, args, err := r.build("department.create", q)
	if err != nil {
		return err
	}
	if err := r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&dept.CreatedAt); err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("department %s already exists", dept.ID),
				Reason:       domain.ConflictDuplicate,
				ResourceType: "department",
				ResourceID:   dept.ID,
			}
		}
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// GetByID retrieves a department by ID
func (r *PostgresDepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	q := postgres.QB().Select("id", "name", "active", "created_at").
		From(r.tables.Departments).
		Where(sq.Eq{"id": id})

	sqlStr, args, err := r.build("department.get", q)
	if err != nil {
		return nil, err
	}
	var d models.Department
	err = r.executor(ctx).QueryRow(ctx, sqlStr, args...).Scan(&d.ID, &d.Name, &d.Active, &d.CreatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("department %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &d, nil
}

// List returns departments ordered by name
func (r *PostgresDepartmentRepository) List(ctx context.Context, activeOnly bool) ([]models.Department, error) {
	q := postgres.QB().Select("id", "name", "active", "created_at").
		From(r.tables.Departments).
		OrderBy("name ASC", "id ASC")
	if activeOnly {
		q = q.Where(sq.Eq{"active": true})
	}

	sqlStr, args, err := r.build("department.list", q)
	if err != nil {
		return nil, err
	}
	rows, err := r.executor(ctx).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	depts := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		depts = append(depts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return depts, nil
}
