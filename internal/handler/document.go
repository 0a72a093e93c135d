package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	models "deptdocs/internal/domain/models/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/httputil"
)

// multipartOverhead is allowed on top of the upload limit for form fields and boundaries
const multipartOverhead = 1 << 20

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docs      docsysSvc.DocumentStore
	search    docsysSvc.SearchEngine
	auditor   docsysSvc.DownloadAuditor
	maxUpload int64
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	docs docsysSvc.DocumentStore,
	search docsysSvc.SearchEngine,
	auditor docsysSvc.DownloadAuditor,
	maxUpload int64,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		docs:      docs,
		search:    search,
		auditor:   auditor,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// UploadDocument stores a multipart upload
// POST /api/documents
//
// Form fields: file (required), department_id, folder_id, description, public, tags (comma separated).
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		badRequest(w, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, fmt.Errorf("file is required"))
		return
	}
	defer file.Close()

	req := &docsysSvc.SaveDocumentRequest{
		DepartmentID: strings.TrimSpace(r.FormValue("department_id")),
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Content:      file,
		Description:  r.FormValue("description"),
		Tags:         splitList(r.FormValue("tags")),
	}
	if folderID := strings.TrimSpace(r.FormValue("folder_id")); folderID != "" {
		req.FolderID = &folderID
	}
	if raw := r.FormValue("public"); raw != "" {
		public, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, fmt.Errorf("public must be a boolean"))
			return
		}
		req.Public = public
	}

	doc, err := h.docs.Save(r.Context(), req, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// SearchDocuments runs a visibility-scoped search
// GET /api/documents/search?text=&department_id=&folder_id=&from=&to=&status=&tags=&public=&sort=&desc=&page=&page_size=
func (h *DocumentHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	filter, err := parseSearchFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	payload, err := h.search.ExecuteJSON(r.Context(), filter, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondRawJSON(w, http.StatusOK, payload)
}

// GetDocument retrieves a document by ID
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	doc, err := h.docs.Get(r.Context(), r.PathValue("id"), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument changes descriptive metadata
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	doc, err := h.docs.UpdateMetadata(r.Context(), r.PathValue("id"), &req, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// TransitionDocument applies a status change
// POST /api/documents/{id}/status
func (h *DocumentHandler) TransitionDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.TransitionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	doc, err := h.docs.Transition(r.Context(), r.PathValue("id"), req.Status, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ArchiveDocument archives a document
// POST /api/documents/{id}/archive
func (h *DocumentHandler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.ArchiveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	doc, err := h.docs.Archive(r.Context(), r.PathValue("id"), req.Archive, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// MoveDocument relocates a document; a null folder_id moves it to the department root
// POST /api/documents/{id}/move
func (h *DocumentHandler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.MoveDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	doc, err := h.docs.Move(r.Context(), r.PathValue("id"), req.FolderID, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// BulkMoveDocuments moves several documents, reporting one result per id
// POST /api/documents/bulk-move
func (h *DocumentHandler) BulkMoveDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var req docsysSvc.BulkMoveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	results, err := h.docs.BulkMove(r.Context(), req.DocumentIDs, req.FolderID, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// DeleteDocument deletes a document
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	if err := h.docs.Delete(r.Context(), r.PathValue("id"), p); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// DownloadDocument streams the stored bytes and records the download
// GET /api/documents/{id}/download
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	client := models.ClientInfo{IP: httputil.ClientIP(r), UserAgent: r.UserAgent()}
	dl, err := h.docs.Open(r.Context(), r.PathValue("id"), p, client)
	if err != nil {
		handleError(w, err)
		return
	}
	defer dl.Content.Close()

	doc := dl.Document
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName}))
	if dl.AuditWarning != "" {
		w.Header().Set("X-Audit-Warning", dl.AuditWarning)
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Content); err != nil {
		// Headers are sent; the client sees a truncated body
		h.logger.Warn("download interrupted", "document_id", doc.ID, "error", err)
	}
}

// GetDownloadHistory returns every download of a document
// GET /api/documents/{id}/downloads
func (h *DocumentHandler) GetDownloadHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	history, err := h.auditor.GetHistory(r.Context(), r.PathValue("id"), p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, history)
}

// GetUserDownloads returns the caller's recent downloads; elevated callers may pass ?user_id=
// GET /api/users/me/downloads
func (h *DocumentHandler) GetUserDownloads(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	history, err := h.auditor.GetUserHistory(r.Context(), r.URL.Query().Get("user_id"), limit, p)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, history)
}

// HealthCheck is a simple health check endpoint
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}

// parseSearchFilter reads the search filter from query parameters
func parseSearchFilter(r *http.Request) (*models.SearchFilter, error) {
	q := r.URL.Query()
	filter := &models.SearchFilter{
		Text:         strings.TrimSpace(q.Get("text")),
		DepartmentID: strings.TrimSpace(q.Get("department_id")),
		Status:       models.DocumentStatus(q.Get("status")),
		Tags:         splitList(q.Get("tags")),
		Sort:         models.SortField(q.Get("sort")),
	}
	if folderID := strings.TrimSpace(q.Get("folder_id")); folderID != "" {
		filter.FolderID = &folderID
	}

	var err error
	if filter.From, err = parseTime(q.Get("from"), "from"); err != nil {
		return nil, err
	}
	if filter.To, err = parseTime(q.Get("to"), "to"); err != nil {
		return nil, err
	}
	if filter.Public, err = httputil.QueryBool(r, "public"); err != nil {
		return nil, err
	}
	if filter.Desc, err = httputil.QueryBool(r, "desc"); err != nil {
		return nil, err
	}
	if filter.Page, err = httputil.QueryInt(r, "page", 0); err != nil {
		return nil, err
	}
	if filter.PageSize, err = httputil.QueryInt(r, "page_size", 0); err != nil {
		return nil, err
	}
	return filter, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates
func parseTime(raw, name string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD", name)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
