package docsystem

import (
	"context"
	"io"

	"deptdocs/internal/domain/models/docsystem"
)

// DocumentStore owns document records and physical file naming
type DocumentStore interface {
	// Save validates and stores an uploaded file, then records it
	Save(ctx context.Context, req *SaveDocumentRequest, p *docsystem.Principal) (*docsystem.Document, error)

	// Get retrieves a document the principal can read
	Get(ctx context.Context, id string, p *docsystem.Principal) (*docsystem.Document, error)

	// UpdateMetadata changes descriptive fields; archived documents are read-only
	UpdateMetadata(ctx context.Context, id string, req *UpdateDocumentRequest, p *docsystem.Principal) (*docsystem.Document, error)

	// Delete soft-deletes documents with download history and removes the rest
	Delete(ctx context.Context, id string, p *docsystem.Principal) error

	// Archive moves a document to Archived (archive=true). archive=false is only
	// a no-op for documents that are not archived.
	Archive(ctx context.Context, id string, archive bool, p *docsystem.Principal) (*docsystem.Document, error)

	// Transition applies one status change of the review lifecycle
	Transition(ctx context.Context, id string, to docsystem.DocumentStatus, p *docsystem.Principal) (*docsystem.Document, error)

	// Move relocates a document (nil folder = department root)
	Move(ctx context.Context, id string, newFolderID *string, p *docsystem.Principal) (*docsystem.Document, error)

	// BulkMove moves each document independently and reports one outcome per id
	BulkMove(ctx context.Context, ids []string, newFolderID *string, p *docsystem.Principal) ([]BulkMoveResult, error)

	// Open checks access, opens the stored bytes and records the download
	Open(ctx context.Context, id string, p *docsystem.Principal, client docsystem.ClientInfo) (*Download, error)
}

// SaveDocumentRequest carries an upload. DepartmentID is required only when
// FolderID is nil; otherwise the folder's department is used.
type SaveDocumentRequest struct {
	DepartmentID string
	FolderID     *string
	FileName     string
	ContentType  string
	Size         int64
	Content      io.Reader
	Description  string
	Public       bool
	Tags         []string
}

// UpdateDocumentRequest represents a metadata update. Nil fields are left as is.
type UpdateDocumentRequest struct {
	OriginalName *string   `json:"original_name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Public       *bool     `json:"public,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Version      *int      `json:"version,omitempty"` // Expected version; mismatch is a concurrency error
}

// TransitionRequest represents a status change request
type TransitionRequest struct {
	Status docsystem.DocumentStatus `json:"status"`
}

// ArchiveRequest represents an archive toggle
type ArchiveRequest struct {
	Archive bool `json:"archive"`
}

// MoveDocumentRequest represents a single document move
type MoveDocumentRequest struct {
	FolderID *string `json:"folder_id"`
}

// BulkMoveRequest represents a best-effort multi-document move
type BulkMoveRequest struct {
	DocumentIDs []string `json:"document_ids"`
	FolderID    *string  `json:"folder_id"`
}

// BulkMoveResult is the outcome for one document of a BulkMove
type BulkMoveResult struct {
	DocumentID string `json:"document_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Status     int    `json:"status,omitempty"` // HTTP-equivalent status of the failure
	Err        error  `json:"-"`
}

// Download is an opened document. The caller must close Content.
type Download struct {
	Document     *docsystem.Document
	Content      io.ReadCloser
	AuditWarning string // set when the download could not be recorded
}
