package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
)

// DocumentRepository implements docsystem.DocumentRepository
type DocumentRepository struct {
	s *Store
}

// NewDocumentRepository creates a document repository over the store
func NewDocumentRepository(s *Store) docsysRepo.DocumentRepository {
	return &DocumentRepository{s: s}
}

func (r *DocumentRepository) live(id string) (docsystem.Document, bool) {
	d, ok := r.s.documents[id]
	if !ok || d.DeletedAt != nil {
		return docsystem.Document{}, false
	}
	return d, true
}

// withTags returns a copy carrying the current tag set
func (r *DocumentRepository) withTags(d docsystem.Document) docsystem.Document {
	d.Tags = slices.Clone(r.s.tags[d.ID])
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}

func (r *DocumentRepository) Create(ctx context.Context, doc *docsystem.Document) error {
	defer r.s.lock(ctx)()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if existing, taken := r.s.storedNames[doc.StoredName]; taken {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("stored name %s is already in use", doc.StoredName),
			Reason:       domain.ConflictDuplicate,
			ResourceType: "document",
			ResourceID:   existing,
		}
	}
	if doc.FolderID != nil {
		f, ok := r.s.folders[*doc.FolderID]
		if !ok || f.DeletedAt != nil {
			return fmt.Errorf("folder %s: %w", *doc.FolderID, domain.ErrNotFound)
		}
		if f.DepartmentID != doc.DepartmentID {
			return &domain.ConcurrencyError{
				Message: fmt.Sprintf("folder %s moved to department %s", f.ID, f.DepartmentID),
			}
		}
	}

	stored := *doc
	stored.Tags = nil
	r.s.documents[doc.ID] = stored
	r.s.storedNames[doc.StoredName] = doc.ID
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*docsystem.Document, error) {
	defer r.s.lock(ctx)()

	d, ok := r.live(id)
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	d = r.withTags(d)
	return &d, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *docsystem.Document, expectedVersion int) error {
	defer r.s.lock(ctx)()

	current, ok := r.live(doc.ID)
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return &domain.ConcurrencyError{
			Message: fmt.Sprintf("document %s was modified concurrently (version %d, expected %d)", doc.ID, current.Version, expectedVersion),
		}
	}

	if err := r.placementError(doc); err != nil {
		return err
	}

	current.FolderID = doc.FolderID
	current.DepartmentID = doc.DepartmentID
	current.OriginalName = doc.OriginalName
	current.Description = doc.Description
	current.Public = doc.Public
	current.Status = doc.Status
	current.ModifiedAt = doc.ModifiedAt
	current.Version = expectedVersion + 1
	r.s.documents[doc.ID] = current

	doc.Version = current.Version
	return nil
}

// placementError rejects a write whose folder was removed or reassigned
// after the caller read it
func (r *DocumentRepository) placementError(doc *docsystem.Document) error {
	if doc.FolderID == nil {
		return nil
	}
	f, ok := r.s.folders[*doc.FolderID]
	if !ok || f.DeletedAt != nil || f.DepartmentID != doc.DepartmentID {
		return &domain.ConcurrencyError{
			Message: fmt.Sprintf("folder %s of document %s was deleted or moved", *doc.FolderID, doc.ID),
		}
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	d, ok := r.s.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.documents, id)
	delete(r.s.tags, id)
	// The stored name stays reserved so it can never be reissued
	r.s.storedNames[d.StoredName] = id
	return nil
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, ids []string, at time.Time) error {
	defer r.s.lock(ctx)()

	for _, id := range ids {
		if d, ok := r.live(id); ok {
			deletedAt := at
			d.DeletedAt = &deletedAt
			r.s.documents[id] = d
		}
	}
	return nil
}

func (r *DocumentRepository) ListByFolder(ctx context.Context, departmentID string, folderID *string) ([]docsystem.Document, error) {
	defer r.s.lock(ctx)()

	var where docsystem.Node
	if folderID == nil {
		where = docsystem.And(
			docsystem.Leaf(docsystem.FieldDepartmentID, docsystem.OpEq, departmentID),
			docsystem.Leaf(docsystem.FieldFolderID, docsystem.OpIsNull, nil),
		)
	} else {
		where = docsystem.Leaf(docsystem.FieldFolderID, docsystem.OpEq, *folderID)
	}
	docs := r.filter(where)
	sortDocuments(docs, docsystem.SortName, false)
	return docs, nil
}

func (r *DocumentRepository) ListByDepartment(ctx context.Context, departmentID string) ([]docsystem.Document, error) {
	defer r.s.lock(ctx)()

	docs := r.filter(docsystem.Leaf(docsystem.FieldDepartmentID, docsystem.OpEq, departmentID))
	sortDocuments(docs, docsystem.SortName, false)
	return docs, nil
}

func (r *DocumentRepository) ListIDsByFolders(ctx context.Context, folderIDs []string) ([]string, error) {
	defer r.s.lock(ctx)()

	ids := []string{}
	for _, d := range r.s.documents {
		if d.DeletedAt == nil && d.FolderID != nil && slices.Contains(folderIDs, *d.FolderID) {
			ids = append(ids, d.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *DocumentRepository) CountByFolder(ctx context.Context, folderID string) (int, error) {
	defer r.s.lock(ctx)()

	n := 0
	for _, d := range r.s.documents {
		if d.DeletedAt == nil && d.FolderID != nil && *d.FolderID == folderID {
			n++
		}
	}
	return n, nil
}

func (r *DocumentRepository) UpdateDepartmentForFolders(ctx context.Context, folderIDs []string, departmentID string) error {
	defer r.s.lock(ctx)()

	for id, d := range r.s.documents {
		if d.FolderID != nil && slices.Contains(folderIDs, *d.FolderID) {
			d.DepartmentID = departmentID
			d.Version++
			r.s.documents[id] = d
		}
	}
	return nil
}

func (r *DocumentRepository) IncrementDownloadCount(ctx context.Context, id string) (int64, error) {
	defer r.s.lock(ctx)()

	d, ok := r.live(id)
	if !ok {
		return 0, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	d.DownloadCount++
	r.s.documents[id] = d
	return d.DownloadCount, nil
}

func (r *DocumentRepository) SetTags(ctx context.Context, id string, tags []string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if len(tags) == 0 {
		delete(r.s.tags, id)
		return nil
	}
	r.s.tags[id] = slices.Clone(tags)
	return nil
}

func (r *DocumentRepository) Search(ctx context.Context, query *docsystem.SearchQuery) ([]docsystem.Document, int, error) {
	defer r.s.lock(ctx)()

	matches := r.filter(query.Where)
	sortDocuments(matches, query.Sort, query.Desc)

	total := len(matches)
	start := min(query.Offset, total)
	end := total
	if query.Limit > 0 {
		end = min(start+query.Limit, total)
	}
	return matches[start:end], total, nil
}

// filter returns live documents matching the AST, tags attached
func (r *DocumentRepository) filter(where docsystem.Node) []docsystem.Document {
	out := []docsystem.Document{}
	for _, d := range r.s.documents {
		if d.DeletedAt != nil {
			continue
		}
		d = r.withTags(d)
		if Match(where, &d) {
			out = append(out, d)
		}
	}
	return out
}
