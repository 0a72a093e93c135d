package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
)

// FolderRepository implements docsystem.FolderRepository
type FolderRepository struct {
	s *Store
}

// NewFolderRepository creates a folder repository over the store
func NewFolderRepository(s *Store) docsysRepo.FolderRepository {
	return &FolderRepository{s: s}
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// siblingConflict finds a live sibling with the same case-insensitive name
func (r *FolderRepository) siblingConflict(f *docsystem.Folder) error {
	for _, other := range r.s.folders {
		if other.ID == f.ID || other.DeletedAt != nil {
			continue
		}
		if other.DepartmentID == f.DepartmentID && sameParent(other.ParentID, f.ParentID) &&
			strings.EqualFold(other.Name, f.Name) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("folder '%s' already exists in this location", f.Name),
				Reason:       domain.ConflictDuplicate,
				ResourceType: "folder",
				ResourceID:   other.ID,
			}
		}
	}
	return nil
}

func (r *FolderRepository) Create(ctx context.Context, folder *docsystem.Folder) error {
	defer r.s.lock(ctx)()

	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	if folder.ParentID != nil {
		if _, ok := r.live(*folder.ParentID); !ok {
			return fmt.Errorf("parent folder %s: %w", *folder.ParentID, domain.ErrNotFound)
		}
	}
	if err := r.siblingConflict(folder); err != nil {
		return err
	}
	r.s.folders[folder.ID] = *folder
	return nil
}

func (r *FolderRepository) live(id string) (docsystem.Folder, bool) {
	f, ok := r.s.folders[id]
	if !ok || f.DeletedAt != nil {
		return docsystem.Folder{}, false
	}
	return f, true
}

func (r *FolderRepository) GetByID(ctx context.Context, id string) (*docsystem.Folder, error) {
	defer r.s.lock(ctx)()

	f, ok := r.live(id)
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return &f, nil
}

func (r *FolderRepository) collect(keep func(docsystem.Folder) bool) []docsystem.Folder {
	out := []docsystem.Folder{}
	for _, f := range r.s.folders {
		if f.DeletedAt == nil && keep(f) {
			out = append(out, f)
		}
	}
	sortFolders(out)
	return out
}

// sortFolders orders by display order, then name, then id
func sortFolders(folders []docsystem.Folder) {
	sort.Slice(folders, func(i, j int) bool {
		a, b := folders[i], folders[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func (r *FolderRepository) ListRoots(ctx context.Context, departmentID string) ([]docsystem.Folder, error) {
	defer r.s.lock(ctx)()
	return r.collect(func(f docsystem.Folder) bool {
		return f.ParentID == nil && f.DepartmentID == departmentID
	}), nil
}

func (r *FolderRepository) ListChildren(ctx context.Context, parentID string) ([]docsystem.Folder, error) {
	defer r.s.lock(ctx)()
	return r.collect(func(f docsystem.Folder) bool {
		return f.ParentID != nil && *f.ParentID == parentID
	}), nil
}

func (r *FolderRepository) ListByDepartment(ctx context.Context, departmentID string) ([]docsystem.Folder, error) {
	defer r.s.lock(ctx)()
	return r.collect(func(f docsystem.Folder) bool {
		return f.DepartmentID == departmentID
	}), nil
}

func (r *FolderRepository) Update(ctx context.Context, folder *docsystem.Folder) error {
	defer r.s.lock(ctx)()

	if _, ok := r.live(folder.ID); !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	if err := r.siblingConflict(folder); err != nil {
		return err
	}
	r.s.folders[folder.ID] = *folder
	return nil
}

func (r *FolderRepository) UpdateDepartment(ctx context.Context, ids []string, departmentID string) error {
	defer r.s.lock(ctx)()

	for _, id := range ids {
		if f, ok := r.s.folders[id]; ok {
			f.DepartmentID = departmentID
			r.s.folders[id] = f
		}
	}
	return nil
}

func (r *FolderRepository) SoftDelete(ctx context.Context, ids []string, at time.Time) error {
	defer r.s.lock(ctx)()

	for _, id := range ids {
		if f, ok := r.live(id); ok {
			deletedAt := at
			f.DeletedAt = &deletedAt
			r.s.folders[id] = f
		}
	}
	return nil
}

// LockDepartments is satisfied by the transaction itself: ExecTx already
// holds the store lock
func (r *FolderRepository) LockDepartments(ctx context.Context, departmentIDs ...string) error {
	if !r.s.inTx(ctx) {
		return fmt.Errorf("lock departments: no active transaction")
	}
	return nil
}
