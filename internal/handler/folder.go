package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folders docsysSvc.FolderTree
	logger  *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folders docsysSvc.FolderTree, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folders: folders,
		logger:  logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	folder, err := h.folders.Create(r.Context(), &req, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder with its child folders and documents
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	folder, err := h.folders.GetWithChildren(r.Context(), r.PathValue("id"), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// GetBreadcrumbs returns the path from the department root to the folder
// GET /api/folders/{id}/breadcrumbs
func (h *FolderHandler) GetBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	crumbs, err := h.folders.GetBreadcrumbs(r.Context(), r.PathValue("id"), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, crumbs)
}

// RenameFolder changes a folder's name
// PATCH /api/folders/{id}
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.RenameFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	folder, err := h.folders.Rename(r.Context(), r.PathValue("id"), req.Name, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// MoveFolder re-parents a folder; a null parent_id moves it to the department root
// POST /api/folders/{id}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.MoveFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	folder, err := h.folders.Move(r.Context(), r.PathValue("id"), req.ParentID, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder; ?cascade=true removes its whole subtree
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	cascade, err := httputil.QueryBool(r, "cascade")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.folders.Delete(r.Context(), r.PathValue("id"), cascade != nil && *cascade, p); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
