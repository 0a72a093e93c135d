package docsystem

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// DownloadLogRepository is the append-only audit store
type DownloadLogRepository interface {
	// Append stores the entry and assigns its ID
	Append(ctx context.Context, entry *docsystem.DownloadLogEntry) error

	// ListByDocument returns a document's downloads, newest first
	ListByDocument(ctx context.Context, documentID string) ([]docsystem.DownloadLogEntry, error)

	// ListByUser returns a user's most recent downloads, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]docsystem.DownloadLogEntry, error)

	// HasDownloads reports whether any entry references the document
	HasDownloads(ctx context.Context, documentID string) (bool, error)
}
