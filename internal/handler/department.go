package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/httputil"
)

// DepartmentHandler handles department-scoped HTTP requests
type DepartmentHandler struct {
	departments docsysSvc.DepartmentDirectory
	folders     docsysSvc.FolderTree
	logger      *slog.Logger
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(departments docsysSvc.DepartmentDirectory, folders docsysSvc.FolderTree, logger *slog.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		departments: departments,
		folders:     folders,
		logger:      logger,
	}
}

// ListDepartments returns the departments the caller can browse
// GET /api/departments
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	depts, err := h.departments.List(r.Context(), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, depts)
}

// GetTree returns the nested folder/document tree of a department
// GET /api/departments/{id}/tree
func (h *DepartmentHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	tree, err := h.folders.GetDepartmentTree(r.Context(), r.PathValue("id"), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// ListRootFolders returns the root folders of a department
// GET /api/departments/{id}/folders
func (h *DepartmentHandler) ListRootFolders(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	roots, err := h.folders.GetRoots(r.Context(), r.PathValue("id"), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, roots)
}
