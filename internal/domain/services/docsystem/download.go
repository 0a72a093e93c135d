package docsystem

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// DownloadAuditor records downloads and exposes their history
type DownloadAuditor interface {
	// RegisterDownload appends a log entry and increments the counter as one unit
	RegisterDownload(ctx context.Context, documentID string, p *docsystem.Principal, client docsystem.ClientInfo) (*docsystem.DownloadLogEntry, error)

	// GetHistory returns every download of a document, newest first
	GetHistory(ctx context.Context, documentID string, p *docsystem.Principal) ([]docsystem.DownloadLogEntry, error)

	// GetUserHistory returns a user's most recent downloads
	GetUserHistory(ctx context.Context, userID string, limit int, p *docsystem.Principal) ([]docsystem.DownloadLogEntry, error)
}
