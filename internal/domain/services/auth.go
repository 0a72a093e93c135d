package services

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// ResourceAuthorizer loads a resource and checks the principal may read it.
// Services call it before operating on resources so identification (which
// resource) stays separate from authorization (who can access).
type ResourceAuthorizer interface {
	// CanAccessDepartment checks the principal can read a department's tree
	CanAccessDepartment(ctx context.Context, p *docsystem.Principal, departmentID string) (*docsystem.Department, error)

	// CanAccessFolder returns the folder if the principal can read it
	CanAccessFolder(ctx context.Context, p *docsystem.Principal, folderID string) (*docsystem.Folder, error)

	// CanAccessDocument returns the document if the principal can read it
	CanAccessDocument(ctx context.Context, p *docsystem.Principal, documentID string) (*docsystem.Document, error)
}
