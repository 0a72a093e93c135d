package memory

import (
	"context"
	"sort"

	"deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
)

// DownloadLogRepository implements docsystem.DownloadLogRepository
type DownloadLogRepository struct {
	s *Store
}

// NewDownloadLogRepository creates a download log repository over the store
func NewDownloadLogRepository(s *Store) docsysRepo.DownloadLogRepository {
	return &DownloadLogRepository{s: s}
}

func (r *DownloadLogRepository) Append(ctx context.Context, entry *docsystem.DownloadLogEntry) error {
	defer r.s.lock(ctx)()

	r.s.nextLogID++
	entry.ID = r.s.nextLogID
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

// newestFirst orders by timestamp then by id, both descending
func newestFirst(entries []docsystem.DownloadLogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].DownloadedAt.Equal(entries[j].DownloadedAt) {
			return entries[i].DownloadedAt.After(entries[j].DownloadedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}

func (r *DownloadLogRepository) ListByDocument(ctx context.Context, documentID string) ([]docsystem.DownloadLogEntry, error) {
	defer r.s.lock(ctx)()

	out := []docsystem.DownloadLogEntry{}
	for _, e := range r.s.logs {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *DownloadLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]docsystem.DownloadLogEntry, error) {
	defer r.s.lock(ctx)()

	out := []docsystem.DownloadLogEntry{}
	for _, e := range r.s.logs {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DownloadLogRepository) HasDownloads(ctx context.Context, documentID string) (bool, error) {
	defer r.s.lock(ctx)()

	for _, e := range r.s.logs {
		if e.DocumentID == documentID {
			return true, nil
		}
	}
	return false, nil
}
