package access

import (
	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
	svc "deptdocs/internal/domain/services/docsystem"
)

// Operation names carried by AuthorizationError
const (
	OpRead         = "read"
	OpUpload       = "upload"
	OpCreateFolder = "create_folder"
	OpEdit         = "edit"
	OpDelete       = "delete"
	OpMove         = "move"
)

// Policy implements AccessControl. Rules, first match wins:
//  1. elevated roles pass every check
//  2. public resources and the general department are readable by anyone
//  3. otherwise the principal's department must match the resource's
//  4. writes also require being the creator/uploader, except uploads into
//     the principal's own department
type Policy struct {
	elevated      map[string]bool
	reassign      map[string]bool
	generalDeptID string
}

var _ svc.AccessControl = (*Policy)(nil)

// NewPolicy creates an access policy from configuration
func NewPolicy(p config.Policy) *Policy {
	return &Policy{
		elevated:      toSet(p.ElevatedRoles),
		reassign:      toSet(p.ReassignRoles),
		generalDeptID: p.GeneralDepartmentID,
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func (a *Policy) IsElevated(p *docsystem.Principal) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if a.elevated[r] {
			return true
		}
	}
	return false
}

func (a *Policy) CanReassignDepartment(p *docsystem.Principal) bool {
	if !a.IsElevated(p) {
		return false
	}
	for _, r := range p.Roles {
		if a.reassign[r] {
			return true
		}
	}
	return false
}

func (a *Policy) GeneralDepartmentID() string {
	return a.generalDeptID
}

// readable applies rules 1-3
func (a *Policy) readable(p *docsystem.Principal, departmentID string, public bool) bool {
	if p == nil {
		return false
	}
	if a.IsElevated(p) || public {
		return true
	}
	if a.generalDeptID != "" && departmentID == a.generalDeptID {
		return true
	}
	return p.DepartmentID == departmentID
}

func (a *Policy) CanAccessFolder(p *docsystem.Principal, f *docsystem.Folder) error {
	if !a.readable(p, f.DepartmentID, false) {
		return domain.Forbidden(OpRead, "access denied to folder %s", f.ID)
	}
	return nil
}

func (a *Policy) CanAccessDocument(p *docsystem.Principal, d *docsystem.Document) error {
	if !a.readable(p, d.DepartmentID, d.Public) {
		return domain.Forbidden(OpRead, "access denied to document %s", d.ID)
	}
	return nil
}

func (a *Policy) CanUpload(p *docsystem.Principal, departmentID string, folder *docsystem.Folder) error {
	if a.IsElevated(p) {
		return nil
	}
	if folder != nil {
		departmentID = folder.DepartmentID
	}
	if p == nil || p.DepartmentID != departmentID {
		return domain.Forbidden(OpUpload, "uploads are limited to your own department")
	}
	return nil
}

func (a *Policy) CanCreateFolder(p *docsystem.Principal, departmentID string, parent *docsystem.Folder) error {
	if a.IsElevated(p) {
		return nil
	}
	if parent != nil {
		departmentID = parent.DepartmentID
	}
	if p == nil || p.DepartmentID != departmentID {
		return domain.Forbidden(OpCreateFolder, "access denied to department %s", departmentID)
	}
	if parent == nil {
		return domain.Forbidden(OpCreateFolder, "only elevated roles may create root folders")
	}
	if parent.CreatedBy != p.ID {
		return domain.Forbidden(OpCreateFolder, "only the creator of folder %s may add subfolders", parent.ID)
	}
	return nil
}

// write applies rules 1, 3 and 4 for an operation on an existing resource
func (a *Policy) write(op string, p *docsystem.Principal, r svc.Resource) error {
	if a.IsElevated(p) {
		return nil
	}
	if p == nil || p.DepartmentID != r.DepartmentID {
		return domain.Forbidden(op, "access denied to %s %s", r.Kind, r.ID)
	}
	if r.System {
		return domain.Forbidden(op, "%s %s is a system folder", r.Kind, r.ID)
	}
	if r.OwnerID != p.ID {
		return domain.Forbidden(op, "only the owner may modify %s %s", r.Kind, r.ID)
	}
	return nil
}

func (a *Policy) CanEdit(p *docsystem.Principal, r svc.Resource) error {
	return a.write(OpEdit, p, r)
}

func (a *Policy) CanDelete(p *docsystem.Principal, r svc.Resource, descendants []docsystem.Folder) error {
	if err := a.write(OpDelete, p, r); err != nil {
		return err
	}
	if a.IsElevated(p) {
		return nil
	}
	for _, f := range descendants {
		if f.System {
			return domain.Forbidden(OpDelete, "subtree contains system folder %s", f.ID)
		}
	}
	return nil
}

// CanMove does not judge department consistency; callers report a
// readable destination in another department as a conflict
func (a *Policy) CanMove(p *docsystem.Principal, r svc.Resource, destination *docsystem.Folder) error {
	if err := a.write(OpMove, p, r); err != nil {
		return err
	}
	if destination != nil && !a.readable(p, destination.DepartmentID, false) {
		return domain.Forbidden(OpMove, "access denied to folder %s", destination.ID)
	}
	return nil
}

func (a *Policy) GetAccessibleDepartments(p *docsystem.Principal, departments []docsystem.Department) []docsystem.Department {
	out := make([]docsystem.Department, 0, len(departments))
	for _, d := range departments {
		if a.readable(p, d.ID, false) {
			out = append(out, d)
		}
	}
	return out
}
