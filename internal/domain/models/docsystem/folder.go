package docsystem

import (
	"time"
)

type Folder struct {
	ID           string     `json:"id" db:"id"`
	ParentID     *string    `json:"parent_id" db:"parent_id"` // NULL = department root
	DepartmentID string     `json:"department_id" db:"department_id"`
	Name         string     `json:"name" db:"name"`
	System       bool       `json:"system" db:"system"` // Protected from move/delete by normal users
	DisplayOrder int        `json:"display_order" db:"display_order"`
	CreatedBy    string     `json:"created_by" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsRoot reports whether the folder has no parent
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// FolderWithChildren is a folder together with its immediate children
type FolderWithChildren struct {
	Folder    *Folder    `json:"folder"`
	Folders   []Folder   `json:"folders"`
	Documents []Document `json:"documents"`
}

// Breadcrumb is one step of a root→self folder path
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
