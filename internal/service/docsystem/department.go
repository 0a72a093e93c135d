package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
)

type departmentDirectory struct {
	deptRepo docsysRepo.DepartmentRepository
	access   docsysSvc.AccessControl
	logger   *slog.Logger
}

// NewDepartmentDirectory creates the department listing service
func NewDepartmentDirectory(deptRepo docsysRepo.DepartmentRepository, access docsysSvc.AccessControl, logger *slog.Logger) docsysSvc.DepartmentDirectory {
	return &departmentDirectory{deptRepo: deptRepo, access: access, logger: logger}
}

// List returns active departments the principal can read, ordered by name
func (s *departmentDirectory) List(ctx context.Context, p *models.Principal) ([]models.Department, error) {
	if p == nil {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}
	depts, err := s.deptRepo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return s.access.GetAccessibleDepartments(p, depts), nil
}
