package docsystem

import "time"

// TreeNode represents the root level of a department tree
type TreeNode struct {
	DepartmentID string             `json:"department_id"`
	Folders      []*FolderTreeNode  `json:"folders"`
	Documents    []DocumentTreeNode `json:"documents"`
}

// FolderTreeNode represents a folder in the tree with nested children
type FolderTreeNode struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	ParentID     *string            `json:"parent_id"`
	System       bool               `json:"system"`
	DisplayOrder int                `json:"display_order"`
	CreatedAt    time.Time          `json:"created_at"`
	Folders      []*FolderTreeNode  `json:"folders"` // Pointers for proper nesting
	Documents    []DocumentTreeNode `json:"documents"`
}

// DocumentTreeNode represents a document in the tree (metadata only)
type DocumentTreeNode struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	FolderID   *string        `json:"folder_id"`
	Status     DocumentStatus `json:"status"`
	SizeBytes  int64          `json:"size_bytes"`
	Public     bool           `json:"public"`
	ModifiedAt time.Time      `json:"modified_at"`
}
