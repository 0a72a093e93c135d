package docsystem

import (
	"deptdocs/internal/domain/models/docsystem"
)

// Resource kinds checked by AccessControl
const (
	ResourceFolder   = "folder"
	ResourceDocument = "document"
)

// Resource is the part of a folder or document that access rules look at
type Resource struct {
	Kind         string
	ID           string
	DepartmentID string
	OwnerID      string // creator of a folder, uploader of a document
	Public       bool
	System       bool
}

// FolderResource describes a folder for access checks
func FolderResource(f *docsystem.Folder) Resource {
	return Resource{
		Kind:         ResourceFolder,
		ID:           f.ID,
		DepartmentID: f.DepartmentID,
		OwnerID:      f.CreatedBy,
		System:       f.System,
	}
}

// DocumentResource describes a document for access checks
func DocumentResource(d *docsystem.Document) Resource {
	return Resource{
		Kind:         ResourceDocument,
		ID:           d.ID,
		DepartmentID: d.DepartmentID,
		OwnerID:      d.UploaderID,
		Public:       d.Public,
	}
}

// AccessControl decides whether a principal may perform an operation.
// Every method is a pure function of its arguments and returns nil or an
// *domain.AuthorizationError.
type AccessControl interface {
	// IsElevated reports whether the principal bypasses every check
	IsElevated(p *docsystem.Principal) bool

	// CanReassignDepartment reports whether the principal may move content across departments
	CanReassignDepartment(p *docsystem.Principal) bool

	// GeneralDepartmentID is the department readable by everyone ("" when none)
	GeneralDepartmentID() string

	CanAccessFolder(p *docsystem.Principal, f *docsystem.Folder) error
	CanAccessDocument(p *docsystem.Principal, d *docsystem.Document) error

	// CanUpload checks a new document may be placed in departmentID, inside
	// folder (nil = department root)
	CanUpload(p *docsystem.Principal, departmentID string, folder *docsystem.Folder) error

	// CanCreateFolder checks a folder may be created in departmentID under parent (nil = new root)
	CanCreateFolder(p *docsystem.Principal, departmentID string, parent *docsystem.Folder) error

	CanEdit(p *docsystem.Principal, r Resource) error

	// CanDelete also receives the descendants a cascade would remove
	CanDelete(p *docsystem.Principal, r Resource, descendants []docsystem.Folder) error

	// CanMove checks the principal may relocate r into destination (nil = department root)
	CanMove(p *docsystem.Principal, r Resource, destination *docsystem.Folder) error

	// GetAccessibleDepartments filters departments down to those the principal can read
	GetAccessibleDepartments(p *docsystem.Principal, departments []docsystem.Department) []docsystem.Department
}
