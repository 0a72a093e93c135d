package docsystem

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// DepartmentRepository defines data access operations for departments
type DepartmentRepository interface {
	// Create inserts a department. A blank ID is generated.
	Create(ctx context.Context, dept *docsystem.Department) error

	// GetByID retrieves a department by ID
	GetByID(ctx context.Context, id string) (*docsystem.Department, error)

	// List returns departments ordered by name
	List(ctx context.Context, activeOnly bool) ([]docsystem.Department, error)
}
