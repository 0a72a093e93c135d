package docsystem

import (
	"time"
)

// DocumentStatus is the review lifecycle of a document
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusPendingReview DocumentStatus = "pending_review"
	StatusPublished     DocumentStatus = "published"
	StatusArchived      DocumentStatus = "archived"
)

// allowedTransitions lists every legal status change.
// Archived is terminal.
var allowedTransitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft:         {StatusPendingReview},
	StatusPendingReview: {StatusPublished},
	StatusPublished:     {StatusArchived},
}

// Valid reports whether s is a known status
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal status change
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Document struct {
	ID            string         `json:"id" db:"id"`
	FolderID      *string        `json:"folder_id" db:"folder_id"` // NULL = department root
	DepartmentID  string         `json:"department_id" db:"department_id"`
	UploaderID    string         `json:"uploader_id" db:"uploader_id"`
	OriginalName  string         `json:"original_name" db:"original_name"`
	StoredName    string         `json:"stored_name" db:"stored_name"` // Immutable physical identifier
	ContentType   string         `json:"content_type" db:"content_type"`
	SizeBytes     int64          `json:"size_bytes" db:"size_bytes"`
	Description   string         `json:"description" db:"description"`
	Public        bool           `json:"public" db:"public"`
	Status        DocumentStatus `json:"status" db:"status"`
	Version       int            `json:"version" db:"version"`
	DownloadCount int64          `json:"download_count" db:"download_count"`
	Tags          []string       `json:"tags"` // Stored in document_tags
	UploadedAt    time.Time      `json:"uploaded_at" db:"uploaded_at"`
	ModifiedAt    time.Time      `json:"modified_at" db:"modified_at"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsArchived reports whether the document is read-only
func (d *Document) IsArchived() bool {
	return d.Status == StatusArchived
}
