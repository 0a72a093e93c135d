package docsystem

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// FolderTree maintains folder parent/child relationships and department ownership
type FolderTree interface {
	// GetChildren lists the immediate child folders of a folder
	GetChildren(ctx context.Context, folderID string, p *docsystem.Principal) ([]docsystem.Folder, error)

	// GetRoots lists the root folders of a department
	GetRoots(ctx context.Context, departmentID string, p *docsystem.Principal) ([]docsystem.Folder, error)

	// GetWithChildren returns a folder plus its child folders and documents
	GetWithChildren(ctx context.Context, id string, p *docsystem.Principal) (*docsystem.FolderWithChildren, error)

	// GetBreadcrumbs returns the path ordered root to self
	GetBreadcrumbs(ctx context.Context, id string, p *docsystem.Principal) ([]docsystem.Breadcrumb, error)

	// GetDepth returns the number of ancestors (0 for a root)
	GetDepth(ctx context.Context, id string) (int, error)

	// IsDescendantOf reports whether ancestorID appears on childID's parent chain
	IsDescendantOf(ctx context.Context, childID, ancestorID string) (bool, error)

	// Move re-parents a folder (nil = department root)
	Move(ctx context.Context, folderID string, newParentID *string, p *docsystem.Principal) (*docsystem.Folder, error)

	// Create creates a folder
	Create(ctx context.Context, req *CreateFolderRequest, p *docsystem.Principal) (*docsystem.Folder, error)

	// Rename changes a folder's name
	Rename(ctx context.Context, id, name string, p *docsystem.Principal) (*docsystem.Folder, error)

	// Delete removes an empty folder, or with cascade the whole subtree and its documents
	Delete(ctx context.Context, id string, cascade bool, p *docsystem.Principal) error

	// GetDepartmentTree builds the nested folder/document tree of a department
	GetDepartmentTree(ctx context.Context, departmentID string, p *docsystem.Principal) (*docsystem.TreeNode, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	DepartmentID string  `json:"department_id"`       // Required for roots, inherited otherwise
	ParentID     *string `json:"parent_id,omitempty"` // null for root
	Name         string  `json:"name"`
	System       bool    `json:"system,omitempty"`
	DisplayOrder int     `json:"display_order,omitempty"`
}

// MoveFolderRequest represents a folder move request
type MoveFolderRequest struct {
	ParentID *string `json:"parent_id"` // null moves to the department root
}

// RenameFolderRequest represents a folder rename request
type RenameFolderRequest struct {
	Name string `json:"name"`
}
