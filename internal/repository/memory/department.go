package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
)

// DepartmentRepository implements docsystem.DepartmentRepository
type DepartmentRepository struct {
	s *Store
}

// NewDepartmentRepository creates a department repository over the store
func NewDepartmentRepository(s *Store) docsysRepo.DepartmentRepository {
	return &DepartmentRepository{s: s}
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *docsystem.Department) error {
	defer r.s.lock(ctx)()

	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	if _, exists := r.s.departments[dept.ID]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("department %s already exists", dept.ID),
			Reason:       domain.ConflictDuplicate,
			ResourceType: "department",
			ResourceID:   dept.ID,
		}
	}
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*docsystem.Department, error) {
	defer r.s.lock(ctx)()

	dept, ok := r.s.departments[id]
	if !ok {
		return nil, fmt.Errorf("department %s: %w", id, domain.ErrNotFound)
	}
	return &dept, nil
}

func (r *DepartmentRepository) List(ctx context.Context, activeOnly bool) ([]docsystem.Department, error) {
	defer r.s.lock(ctx)()

	out := make([]docsystem.Department, 0, len(r.s.departments))
	for _, d := range r.s.departments {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
