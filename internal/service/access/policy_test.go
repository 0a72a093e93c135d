package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
	svc "deptdocs/internal/domain/services/docsystem"
)

func testPolicy() *Policy {
	p := config.DefaultPolicy()
	p.GeneralDepartmentID = "1"
	return NewPolicy(p)
}

var (
	admin   = &docsystem.Principal{ID: "u-admin", DepartmentID: "9", Roles: []string{"admin"}}
	manager = &docsystem.Principal{ID: "u-mgr", DepartmentID: "9", Roles: []string{"manager"}}
	alice   = &docsystem.Principal{ID: "u-alice", DepartmentID: "2", Roles: []string{"member"}}
	bob     = &docsystem.Principal{ID: "u-bob", DepartmentID: "2", Roles: []string{"member"}}
)

func assertForbidden(t *testing.T, err error, op string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	var authErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, op, authErr.Operation)
}

func TestCanAccessDocument(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		name    string
		p       *docsystem.Principal
		doc     docsystem.Document
		allowed bool
	}{
		{"other department private", alice, docsystem.Document{ID: "d1", DepartmentID: "3"}, false},
		{"general department", alice, docsystem.Document{ID: "d2", DepartmentID: "1"}, true},
		{"other department public", alice, docsystem.Document{ID: "d3", DepartmentID: "3", Public: true}, true},
		{"own department", alice, docsystem.Document{ID: "d4", DepartmentID: "2"}, true},
		{"elevated", manager, docsystem.Document{ID: "d5", DepartmentID: "3"}, true},
		{"anonymous", nil, docsystem.Document{ID: "d6", DepartmentID: "2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.CanAccessDocument(tt.p, &tt.doc)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assertForbidden(t, err, OpRead)
			}
		})
	}
}

func TestDecisionsAreDeterministic(t *testing.T) {
	policy := testPolicy()
	doc := &docsystem.Document{ID: "d1", DepartmentID: "3"}
	first := policy.CanAccessDocument(alice, doc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, policy.CanAccessDocument(alice, doc))
	}
}

func TestWriteRequiresOwnership(t *testing.T) {
	policy := testPolicy()
	doc := &docsystem.Document{ID: "d1", DepartmentID: "2", UploaderID: alice.ID}
	r := svc.DocumentResource(doc)

	assert.NoError(t, policy.CanEdit(alice, r))
	assertForbidden(t, policy.CanEdit(bob, r), OpEdit)
	assert.NoError(t, policy.CanEdit(manager, r))

	assert.NoError(t, policy.CanAccessDocument(bob, doc), "membership still grants read")

	// Public documents in the general department are readable, not writable
	general := &docsystem.Document{ID: "d2", DepartmentID: "1", UploaderID: "u-x", Public: true}
	assertForbidden(t, policy.CanEdit(alice, svc.DocumentResource(general)), OpEdit)
}

func TestCanUpload(t *testing.T) {
	policy := testPolicy()
	foreign := &docsystem.Folder{ID: "f3", DepartmentID: "3", CreatedBy: "someone"}
	own := &docsystem.Folder{ID: "f2", DepartmentID: "2", CreatedBy: "someone"}

	assert.NoError(t, policy.CanUpload(alice, "2", nil))
	assert.NoError(t, policy.CanUpload(alice, "", own), "own department folders are always writable for uploads")
	assertForbidden(t, policy.CanUpload(alice, "", foreign), OpUpload)
	assertForbidden(t, policy.CanUpload(alice, "1", nil), OpUpload)
	assert.NoError(t, policy.CanUpload(admin, "", foreign))
}

func TestCanCreateFolder(t *testing.T) {
	policy := testPolicy()
	mine := &docsystem.Folder{ID: "f1", DepartmentID: "2", CreatedBy: alice.ID}

	assertForbidden(t, policy.CanCreateFolder(alice, "2", nil), OpCreateFolder)
	assert.NoError(t, policy.CanCreateFolder(alice, "", mine))
	assertForbidden(t, policy.CanCreateFolder(bob, "", mine), OpCreateFolder)
	assert.NoError(t, policy.CanCreateFolder(manager, "2", nil))
}

func TestSystemFolders(t *testing.T) {
	policy := testPolicy()
	system := &docsystem.Folder{ID: "sys", DepartmentID: "2", CreatedBy: alice.ID, System: true}
	mine := &docsystem.Folder{ID: "f1", DepartmentID: "2", CreatedBy: alice.ID}

	assertForbidden(t, policy.CanEdit(alice, svc.FolderResource(system)), OpEdit)
	assertForbidden(t, policy.CanMove(alice, svc.FolderResource(system), nil), OpMove)
	assertForbidden(t, policy.CanDelete(alice, svc.FolderResource(mine), []docsystem.Folder{*system}), OpDelete)
	assert.NoError(t, policy.CanDelete(admin, svc.FolderResource(system), nil))
}

func TestCanMoveDestination(t *testing.T) {
	policy := testPolicy()
	doc := svc.DocumentResource(&docsystem.Document{ID: "d1", DepartmentID: "2", UploaderID: alice.ID})

	assert.NoError(t, policy.CanMove(alice, doc, &docsystem.Folder{ID: "f2", DepartmentID: "2"}))
	assert.NoError(t, policy.CanMove(alice, doc, &docsystem.Folder{ID: "g", DepartmentID: "1"}),
		"readable destinations in other departments are left to the department check")
	assertForbidden(t, policy.CanMove(alice, doc, &docsystem.Folder{ID: "f3", DepartmentID: "3"}), OpMove)
}

func TestElevatedAndReassign(t *testing.T) {
	policy := testPolicy()
	assert.True(t, policy.IsElevated(admin))
	assert.True(t, policy.IsElevated(manager))
	assert.False(t, policy.IsElevated(alice))

	assert.True(t, policy.CanReassignDepartment(admin))
	assert.False(t, policy.CanReassignDepartment(manager))
	assert.False(t, policy.CanReassignDepartment(alice))
}

func TestGetAccessibleDepartments(t *testing.T) {
	policy := testPolicy()
	all := []docsystem.Department{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	got := policy.GetAccessibleDepartments(alice, all)
	assert.Equal(t, []docsystem.Department{{ID: "1"}, {ID: "2"}}, got)
	assert.Len(t, policy.GetAccessibleDepartments(admin, all), 3)
}
