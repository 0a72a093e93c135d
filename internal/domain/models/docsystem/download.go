package docsystem

import "time"

// DownloadLogEntry records a single download. Entries are append-only.
type DownloadLogEntry struct {
	ID           int64     `json:"id" db:"id"`
	DocumentID   string    `json:"document_id" db:"document_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	DownloadedAt time.Time `json:"downloaded_at" db:"downloaded_at"`
	ClientIP     string    `json:"client_ip" db:"client_ip"`
	UserAgent    string    `json:"user_agent" db:"user_agent"`
}

// ClientInfo describes the caller of a download
type ClientInfo struct {
	IP        string
	UserAgent string
}
