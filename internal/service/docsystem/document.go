package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/domain/services"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/domain/storage"
	"deptdocs/internal/metrics"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// UploadLimits bounds what Save accepts
type UploadLimits struct {
	MaxBytes          int64
	AllowedExtensions []string // lowercase, with leading dot
}

// documentStore implements the DocumentStore interface
type documentStore struct {
	docRepo    docsysRepo.DocumentRepository
	folderRepo docsysRepo.FolderRepository
	deptRepo   docsysRepo.DepartmentRepository
	logRepo    docsysRepo.DownloadLogRepository
	txManager  repositories.TransactionManager
	access     docsysSvc.AccessControl
	authorizer services.ResourceAuthorizer
	auditor    docsysSvc.DownloadAuditor
	files      storage.PhysicalStorage
	limits     UploadLimits
	logger     *slog.Logger
	now        func() time.Time
}

// NewDocumentStore creates a new document store
func NewDocumentStore(
	docRepo docsysRepo.DocumentRepository,
	folderRepo docsysRepo.FolderRepository,
	deptRepo docsysRepo.DepartmentRepository,
	logRepo docsysRepo.DownloadLogRepository,
	txManager repositories.TransactionManager,
	access docsysSvc.AccessControl,
	authorizer services.ResourceAuthorizer,
	auditor docsysSvc.DownloadAuditor,
	files storage.PhysicalStorage,
	limits UploadLimits,
	logger *slog.Logger,
) docsysSvc.DocumentStore {
	return &documentStore{
		docRepo:    docRepo,
		folderRepo: folderRepo,
		deptRepo:   deptRepo,
		logRepo:    logRepo,
		txManager:  txManager,
		access:     access,
		authorizer: authorizer,
		auditor:    auditor,
		files:      files,
		limits:     limits,
		logger:     logger,
		now:        time.Now,
	}
}

// storagePath maps a stored name to its physical path, sharded by prefix
func storagePath(storedName string) string {
	if len(storedName) < 2 {
		return storedName
	}
	return storedName[:2] + "/" + storedName
}

// cleanFileName strips any client-side directory components
func cleanFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" {
		return ""
	}
	base := strings.TrimSpace(path.Base(name))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// normalizeTags lowercases, trims, dedupes and sorts tags
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		if len([]rune(t)) > config.MaxTagLength {
			return nil, domain.Invalid("tag %q exceeds %d characters", t, config.MaxTagLength)
		}
		out = append(out, t)
	}
	if len(out) > config.MaxTagsPerDocument {
		return nil, domain.Invalid("a document may carry at most %d tags", config.MaxTagsPerDocument)
	}
	slices.Sort(out)
	return out, nil
}

func (s *documentStore) validateUpload(req *docsysSvc.SaveDocumentRequest) (string, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.FileName, validation.Required, validation.RuneLength(1, config.MaxDocumentNameLength)),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxDescriptionLength)),
		validation.Field(&req.Content, validation.NotNil),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ext := strings.ToLower(path.Ext(req.FileName))
	if ext == "" || !slices.Contains(s.limits.AllowedExtensions, ext) {
		return "", domain.Invalid("file type %q is not allowed", ext)
	}
	if req.Size <= 0 {
		return "", domain.Invalid("file is empty")
	}
	if s.limits.MaxBytes > 0 && req.Size > s.limits.MaxBytes {
		return "", domain.Invalid("file size %d exceeds the limit of %d bytes", req.Size, s.limits.MaxBytes)
	}
	return ext, nil
}

// storageFailure logs a physical storage error with full context and counts it
func (s *documentStore) storageFailure(op string, doc *models.Document, err error) error {
	var se *domain.StorageError
	if !errors.As(err, &se) {
		err = &domain.StorageError{Op: op, Path: storagePath(doc.StoredName), Err: err}
	}
	metrics.StorageErrors.WithLabelValues(op).Inc()
	s.logger.Error("physical storage failure",
		"op", op,
		"document_id", doc.ID,
		"stored_name", doc.StoredName,
		"path", storagePath(doc.StoredName),
		"error", err,
	)
	return err
}

// Save validates an upload, writes the bytes and records the document.
// Nothing is written when validation fails; the file is removed again when
// the record cannot be inserted.
func (s *documentStore) Save(ctx context.Context, req *docsysSvc.SaveDocumentRequest, p *models.Principal) (*models.Document, error) {
	if req.FolderID != nil && *req.FolderID == "" {
		req.FolderID = nil
	}
	req.FileName = cleanFileName(req.FileName)

	ext, err := s.validateUpload(req)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	var folder *models.Folder
	departmentID := req.DepartmentID
	if req.FolderID != nil {
		if folder, err = s.folderRepo.GetByID(ctx, *req.FolderID); err != nil {
			return nil, fmt.Errorf("target folder: %w", err)
		}
		departmentID = folder.DepartmentID
	} else {
		if departmentID == "" {
			return nil, domain.Invalid("department_id is required for uploads outside a folder")
		}
		dept, err := s.deptRepo.GetByID(ctx, departmentID)
		if err != nil {
			return nil, err
		}
		if !dept.Active {
			return nil, domain.Invalid("department %s is inactive", dept.ID)
		}
	}
	if err := s.access.CanUpload(p, departmentID, folder); err != nil {
		return nil, err
	}

	now := s.now()
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	doc := &models.Document{
		ID:           uuid.NewString(),
		FolderID:     req.FolderID,
		DepartmentID: departmentID,
		UploaderID:   p.ID,
		OriginalName: req.FileName,
		StoredName:   uuid.NewString() + ext,
		ContentType:  contentType,
		SizeBytes:    req.Size,
		Description:  strings.TrimSpace(req.Description),
		Public:       req.Public,
		Status:       models.StatusDraft,
		Version:      1,
		Tags:         tags,
		UploadedAt:   now,
		ModifiedAt:   now,
	}

	if err := s.files.Write(ctx, storagePath(doc.StoredName), req.Content, req.Size, contentType); err != nil {
		return nil, s.storageFailure("write", doc, err)
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.lockPlacement(ctx, doc.DepartmentID, doc.FolderID); err != nil {
			return err
		}
		if err := s.docRepo.Create(ctx, doc); err != nil {
			return err
		}
		if len(tags) > 0 {
			return s.docRepo.SetTags(ctx, doc.ID, tags)
		}
		return nil
	})
	if err != nil {
		// the write already happened; clean it up even if the caller went away
		if delErr := s.files.Delete(context.WithoutCancel(ctx), storagePath(doc.StoredName)); delErr != nil {
			_ = s.storageFailure("delete", doc, delErr)
		}
		return nil, fmt.Errorf("record document: %w", err)
	}

	s.logger.Info("document saved",
		"id", doc.ID,
		"name", doc.OriginalName,
		"stored_name", doc.StoredName,
		"department_id", doc.DepartmentID,
		"folder_id", doc.FolderID,
		"size", doc.SizeBytes,
	)
	return doc, nil
}

func (s *documentStore) Get(ctx context.Context, id string, p *models.Principal) (*models.Document, error) {
	return s.authorizer.CanAccessDocument(ctx, p, id)
}

// loadForWrite fetches a document and checks the principal may edit it
func (s *documentStore) loadForWrite(ctx context.Context, id string, p *models.Principal) (*models.Document, error) {
	doc, err := s.authorizer.CanAccessDocument(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanEdit(p, docsysSvc.DocumentResource(doc)); err != nil {
		return nil, err
	}
	return doc, nil
}

// lockPlacement runs inside a transaction. It takes the department locks
// folder moves and deletes take, then confirms the folder is still live in
// departmentID.
func (s *documentStore) lockPlacement(ctx context.Context, departmentID string, folderID *string, others ...string) error {
	if err := s.folderRepo.LockDepartments(ctx, append([]string{departmentID}, others...)...); err != nil {
		return err
	}
	if folderID == nil {
		return nil
	}
	f, err := s.folderRepo.GetByID(ctx, *folderID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ConcurrencyError{Message: fmt.Sprintf("folder %s was deleted", *folderID)}
	}
	if err != nil {
		return err
	}
	if f.DepartmentID != departmentID {
		return &domain.ConcurrencyError{
			Message: fmt.Sprintf("folder %s moved to department %s", f.ID, f.DepartmentID),
		}
	}
	return nil
}

func immutable(doc *models.Document) error {
	return &domain.ImmutableStateError{Message: fmt.Sprintf("document %s is archived and read-only", doc.ID)}
}

func (s *documentStore) UpdateMetadata(ctx context.Context, id string, req *docsysSvc.UpdateDocumentRequest, p *models.Principal) (*models.Document, error) {
	doc, err := s.loadForWrite(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return nil, immutable(doc)
	}

	err = validation.ValidateStruct(req,
		validation.Field(&req.OriginalName, validation.NilOrNotEmpty, validation.RuneLength(1, config.MaxDocumentNameLength)),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxDescriptionLength)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	expected := doc.Version
	if req.Version != nil {
		expected = *req.Version
	}
	if req.OriginalName != nil {
		name := cleanFileName(*req.OriginalName)
		if !strings.EqualFold(path.Ext(name), path.Ext(doc.OriginalName)) {
			return nil, domain.Invalid("renaming cannot change the file extension")
		}
		doc.OriginalName = name
	}
	if req.Description != nil {
		doc.Description = strings.TrimSpace(*req.Description)
	}
	if req.Public != nil {
		doc.Public = *req.Public
	}
	var tags []string
	if req.Tags != nil {
		if tags, err = normalizeTags(*req.Tags); err != nil {
			return nil, err
		}
		doc.Tags = tags
	}
	doc.ModifiedAt = s.now()

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.docRepo.Update(ctx, doc, expected); err != nil {
			return err
		}
		if req.Tags != nil {
			return s.docRepo.SetTags(ctx, doc.ID, tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated", "id", doc.ID, "version", doc.Version)
	return doc, nil
}

func (s *documentStore) Transition(ctx context.Context, id string, to models.DocumentStatus, p *models.Principal) (*models.Document, error) {
	if !to.Valid() {
		return nil, domain.Invalid("unknown status %q", to)
	}
	doc, err := s.loadForWrite(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransitionTo(to) {
		return nil, &domain.InvalidTransitionError{From: string(doc.Status), To: string(to)}
	}

	from := doc.Status
	doc.Status = to
	doc.ModifiedAt = s.now()
	if err := s.docRepo.Update(ctx, doc, doc.Version); err != nil {
		return nil, err
	}

	s.logger.Info("document status changed",
		"id", doc.ID,
		"from", from,
		"to", to,
	)
	return doc, nil
}

func (s *documentStore) Archive(ctx context.Context, id string, archive bool, p *models.Principal) (*models.Document, error) {
	if archive {
		return s.Transition(ctx, id, models.StatusArchived, p)
	}

	doc, err := s.loadForWrite(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return nil, &domain.InvalidTransitionError{From: string(doc.Status), To: string(models.StatusPublished)}
	}
	return doc, nil
}

func (s *documentStore) Move(ctx context.Context, id string, newFolderID *string, p *models.Principal) (*models.Document, error) {
	if newFolderID != nil && *newFolderID == "" {
		newFolderID = nil
	}

	doc, err := s.authorizer.CanAccessDocument(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived() {
		return nil, immutable(doc)
	}

	var dest *models.Folder
	if newFolderID != nil {
		if dest, err = s.folderRepo.GetByID(ctx, *newFolderID); err != nil {
			return nil, fmt.Errorf("destination folder: %w", err)
		}
	}
	if err := s.access.CanMove(p, docsysSvc.DocumentResource(doc), dest); err != nil {
		return nil, err
	}
	sourceDept := doc.DepartmentID
	if dest != nil && dest.DepartmentID != doc.DepartmentID {
		if !s.access.CanReassignDepartment(p) {
			return nil, crossDepartmentError("document", doc.ID, dest.DepartmentID)
		}
		doc.DepartmentID = dest.DepartmentID
	}

	doc.FolderID = newFolderID
	doc.ModifiedAt = s.now()
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.lockPlacement(ctx, doc.DepartmentID, newFolderID, sourceDept); err != nil {
			return err
		}
		return s.docRepo.Update(ctx, doc, doc.Version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document moved",
		"id", doc.ID,
		"folder_id", doc.FolderID,
		"department_id", doc.DepartmentID,
	)
	return doc, nil
}

// BulkMove moves each document on its own. A failure never undoes earlier successes.
func (s *documentStore) BulkMove(ctx context.Context, ids []string, newFolderID *string, p *models.Principal) ([]docsysSvc.BulkMoveResult, error) {
	if len(ids) == 0 {
		return nil, domain.Invalid("no documents to move")
	}
	if len(ids) > config.MaxBulkMoveItems {
		return nil, domain.Invalid("at most %d documents can be moved at once", config.MaxBulkMoveItems)
	}

	results := make([]docsysSvc.BulkMoveResult, 0, len(ids))
	var failed int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := docsysSvc.BulkMoveResult{DocumentID: id, Success: true}
		if _, err := s.Move(ctx, id, newFolderID, p); err != nil {
			result = docsysSvc.BulkMoveResult{
				DocumentID: id,
				Error:      err.Error(),
				Status:     statusOf(err),
				Err:        err,
			}
			failed++
			metrics.BulkMoveItems.WithLabelValues("failure").Inc()
		} else {
			metrics.BulkMoveItems.WithLabelValues("success").Inc()
		}
		results = append(results, result)
	}

	s.logger.Info("bulk move finished",
		"requested", len(ids),
		"failed", failed,
		"folder_id", newFolderID,
	)
	return results, nil
}

// statusOf returns the HTTP-equivalent status of an error
func statusOf(err error) int {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Delete removes a document. Documents with download history are only
// soft-deleted so their log entries keep resolving; the rest lose their row
// and their file together.
func (s *documentStore) Delete(ctx context.Context, id string, p *models.Principal) error {
	doc, err := s.authorizer.CanAccessDocument(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.access.CanDelete(p, docsysSvc.DocumentResource(doc), nil); err != nil {
		return err
	}

	var soft bool
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		hasHistory, err := s.logRepo.HasDownloads(ctx, doc.ID)
		if err != nil {
			return err
		}
		if hasHistory {
			soft = true
			return s.docRepo.SoftDelete(ctx, []string{doc.ID}, s.now())
		}
		return s.docRepo.Delete(ctx, doc.ID)
	})
	if err != nil {
		return err
	}

	// The bytes go only once the row is gone; a leftover file is logged, not returned
	if !soft {
		err := s.files.Delete(context.WithoutCancel(ctx), storagePath(doc.StoredName))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			_ = s.storageFailure("delete", doc, err)
		}
	}

	s.logger.Info("document deleted",
		"id", doc.ID,
		"soft", soft,
	)
	return nil
}

// Open checks access, opens the stored bytes and records the download. An
// audit failure never fails the download; it is logged and returned as a warning.
func (s *documentStore) Open(ctx context.Context, id string, p *models.Principal, client models.ClientInfo) (*docsysSvc.Download, error) {
	doc, err := s.authorizer.CanAccessDocument(ctx, p, id)
	if err != nil {
		return nil, err
	}

	content, err := s.files.Read(ctx, storagePath(doc.StoredName))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("document content missing",
				"document_id", doc.ID,
				"stored_name", doc.StoredName,
			)
			return nil, fmt.Errorf("content of document %s: %w", doc.ID, err)
		}
		return nil, s.storageFailure("read", doc, err)
	}

	download := &docsysSvc.Download{Document: doc, Content: content}
	if _, err := s.auditor.RegisterDownload(ctx, doc.ID, p, client); err != nil {
		metrics.AuditFailuresTotal.Inc()
		s.logger.Warn("download not recorded",
			"document_id", doc.ID,
			"user_id", p.ID,
			"error", err,
		)
		download.AuditWarning = "download could not be recorded"
		return download, nil
	}
	doc.DownloadCount++
	return download, nil
}
