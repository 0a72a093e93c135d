package handler

import (
	"net/http"
)

// Handlers groups the HTTP handlers served by the API
type Handlers struct {
	Departments *DepartmentHandler
	Folders     *FolderHandler
	Documents   *DocumentHandler
	Metrics     http.Handler
}

// RegisterRoutes wires every API route onto mux (Go 1.22+ method patterns)
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	// Health check and metrics
	mux.HandleFunc("GET /health", h.Documents.HealthCheck)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	// Department routes
	mux.HandleFunc("GET /api/departments", h.Departments.ListDepartments)
	mux.HandleFunc("GET /api/departments/{id}/tree", h.Departments.GetTree)
	mux.HandleFunc("GET /api/departments/{id}/folders", h.Departments.ListRootFolders)

	// Folder routes
	mux.HandleFunc("POST /api/folders", h.Folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", h.Folders.GetFolder)
	mux.HandleFunc("GET /api/folders/{id}/breadcrumbs", h.Folders.GetBreadcrumbs)
	mux.HandleFunc("PATCH /api/folders/{id}", h.Folders.RenameFolder)
	mux.HandleFunc("POST /api/folders/{id}/move", h.Folders.MoveFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.Folders.DeleteFolder)

	// Document routes
	mux.HandleFunc("POST /api/documents", h.Documents.UploadDocument)
	mux.HandleFunc("GET /api/documents/search", h.Documents.SearchDocuments) // Must come before {id} route
	mux.HandleFunc("POST /api/documents/bulk-move", h.Documents.BulkMoveDocuments)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Documents.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.Documents.DeleteDocument)
	mux.HandleFunc("POST /api/documents/{id}/status", h.Documents.TransitionDocument)
	mux.HandleFunc("POST /api/documents/{id}/archive", h.Documents.ArchiveDocument)
	mux.HandleFunc("POST /api/documents/{id}/move", h.Documents.MoveDocument)
	mux.HandleFunc("GET /api/documents/{id}/download", h.Documents.DownloadDocument)
	mux.HandleFunc("GET /api/documents/{id}/downloads", h.Documents.GetDownloadHistory)

	// Download history
	mux.HandleFunc("GET /api/users/me/downloads", h.Documents.GetUserDownloads)
}
