package docsystem

import (
	"context"
	"time"

	"deptdocs/internal/domain/models/docsystem"
)

// FolderRepository defines data access operations for folders.
// Soft-deleted folders are invisible to every read.
type FolderRepository interface {
	// Create creates a new folder. A live sibling with the same name is a ConflictError.
	Create(ctx context.Context, folder *docsystem.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*docsystem.Folder, error)

	// ListRoots lists the root folders of a department
	ListRoots(ctx context.Context, departmentID string) ([]docsystem.Folder, error)

	// ListChildren lists immediate child folders
	ListChildren(ctx context.Context, parentID string) ([]docsystem.Folder, error)

	// ListByDepartment retrieves every folder of a department (flat list)
	ListByDepartment(ctx context.Context, departmentID string) ([]docsystem.Folder, error)

	// Update persists name, parent, department and display order
	Update(ctx context.Context, folder *docsystem.Folder) error

	// UpdateDepartment rewrites the department of every listed folder
	UpdateDepartment(ctx context.Context, ids []string, departmentID string) error

	// SoftDelete marks the listed folders as deleted
	SoftDelete(ctx context.Context, ids []string, at time.Time) error

	// LockDepartments serializes tree mutations on the given departments until
	// the surrounding transaction ends. Must be called inside ExecTx.
	LockDepartments(ctx context.Context, departmentIDs ...string) error
}
