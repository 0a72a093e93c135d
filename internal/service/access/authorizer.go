package access

import (
	"context"
	"fmt"

	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
	docsystemRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/domain/services"
	svc "deptdocs/internal/domain/services/docsystem"
)

// Authorizer implements ResourceAuthorizer by loading the resource and
// applying AccessControl to it
type Authorizer struct {
	policy     svc.AccessControl
	deptRepo   docsystemRepo.DepartmentRepository
	folderRepo docsystemRepo.FolderRepository
	docRepo    docsystemRepo.DocumentRepository
}

var _ services.ResourceAuthorizer = (*Authorizer)(nil)

// NewAuthorizer creates a new resource authorizer
func NewAuthorizer(
	policy svc.AccessControl,
	deptRepo docsystemRepo.DepartmentRepository,
	folderRepo docsystemRepo.FolderRepository,
	docRepo docsystemRepo.DocumentRepository,
) *Authorizer {
	return &Authorizer{
		policy:     policy,
		deptRepo:   deptRepo,
		folderRepo: folderRepo,
		docRepo:    docRepo,
	}
}

// CanAccessDepartment checks the principal belongs to the department, or the
// department is the general one, or the principal is elevated
func (a *Authorizer) CanAccessDepartment(ctx context.Context, p *docsystem.Principal, departmentID string) (*docsystem.Department, error) {
	dept, err := a.deptRepo.GetByID(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("get department for auth: %w", err)
	}
	if len(a.policy.GetAccessibleDepartments(p, []docsystem.Department{*dept})) == 0 {
		return nil, domain.Forbidden(OpRead, "access denied to department %s", departmentID)
	}
	return dept, nil
}

// CanAccessFolder loads a folder and checks it is readable
func (a *Authorizer) CanAccessFolder(ctx context.Context, p *docsystem.Principal, folderID string) (*docsystem.Folder, error) {
	folder, err := a.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("get folder for auth: %w", err)
	}
	if err := a.policy.CanAccessFolder(p, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// CanAccessDocument loads a document and checks it is readable
func (a *Authorizer) CanAccessDocument(ctx context.Context, p *docsystem.Principal, documentID string) (*docsystem.Document, error) {
	doc, err := a.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document for auth: %w", err)
	}
	if err := a.policy.CanAccessDocument(p, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
