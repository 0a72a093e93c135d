package docsystem

import (
	"context"
	"time"

	"deptdocs/internal/domain/models/docsystem"
)

// DocumentRepository defines data access operations for documents.
// Soft-deleted documents are invisible to every read.
type DocumentRepository interface {
	// Create creates a new document. A duplicate stored name is a ConflictError.
	Create(ctx context.Context, doc *docsystem.Document) error

	// GetByID retrieves a document by ID, tags included
	GetByID(ctx context.Context, id string) (*docsystem.Document, error)

	// Update persists mutable fields if the stored version equals expectedVersion,
	// then bumps the version. A mismatch is a ConcurrencyError.
	Update(ctx context.Context, doc *docsystem.Document, expectedVersion int) error

	// Delete physically removes the document row and its tags
	Delete(ctx context.Context, id string) error

	// SoftDelete marks the listed documents as deleted
	SoftDelete(ctx context.Context, ids []string, at time.Time) error

	// ListByFolder lists documents directly inside a folder (nil = department root)
	ListByFolder(ctx context.Context, departmentID string, folderID *string) ([]docsystem.Document, error)

	// ListByDepartment retrieves document metadata for a whole department
	ListByDepartment(ctx context.Context, departmentID string) ([]docsystem.Document, error)

	// ListIDsByFolders returns the ids of documents inside any of the listed folders
	ListIDsByFolders(ctx context.Context, folderIDs []string) ([]string, error)

	// CountByFolder counts documents directly inside a folder
	CountByFolder(ctx context.Context, folderID string) (int, error)

	// UpdateDepartmentForFolders rewrites the department of documents inside the listed folders
	UpdateDepartmentForFolders(ctx context.Context, folderIDs []string, departmentID string) error

	// IncrementDownloadCount atomically adds one to the counter and returns the new value
	IncrementDownloadCount(ctx context.Context, id string) (int64, error)

	// SetTags replaces the tag set of a document
	SetTags(ctx context.Context, id string, tags []string) error

	// Search runs a fully scoped query and returns one page plus the total match count
	Search(ctx context.Context, query *docsystem.SearchQuery) ([]docsystem.Document, int, error)
}
