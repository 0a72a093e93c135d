package docsystem

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// DepartmentDirectory lists the departments a principal can browse
type DepartmentDirectory interface {
	List(ctx context.Context, p *docsystem.Principal) ([]docsystem.Department, error)
}
