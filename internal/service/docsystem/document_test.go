package docsystem

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
)

func saveRequest(dept, name, body string) *docsysSvc.SaveDocumentRequest {
	return &docsysSvc.SaveDocumentRequest{
		DepartmentID: dept,
		FileName:     name,
		Size:         int64(len(body)),
		Content:      strings.NewReader(body),
	}
}

func TestSaveValidatesBeforeWriting(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		req  *docsysSvc.SaveDocumentRequest
	}{
		{"extension not allowed", saveRequest("2", "payload.exe", "MZ")},
		{"no extension", saveRequest("2", "README", "text")},
		{"too large", saveRequest("2", "big.pdf", strings.Repeat("x", 2048))},
		{"empty", saveRequest("2", "empty.txt", "")},
		{"missing name", saveRequest("2", "", "text")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.docs.Save(e.ctx, tt.req, alice)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, e.files.count())
		})
	}
}

func TestSaveAssignsUniqueStoredNames(t *testing.T) {
	e := newTestEnv(t)

	req := saveRequest("2", `C:\Users\alice\Report.PDF`, "%PDF-1.7")
	req.Tags = []string{"Finance", " q1 ", "finance"}
	doc, err := e.docs.Save(e.ctx, req, alice)
	require.NoError(t, err)

	assert.Equal(t, "Report.PDF", doc.OriginalName)
	assert.Equal(t, ".pdf", path.Ext(doc.StoredName))
	assert.NotEqual(t, doc.OriginalName, doc.StoredName)
	assert.Equal(t, models.StatusDraft, doc.Status)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, []string{"finance", "q1"}, doc.Tags)
	assert.True(t, e.files.has(doc.StoredName))

	again := e.upload(t, alice, "2", nil, "Report.pdf")
	assert.NotEqual(t, doc.StoredName, again.StoredName)

	stored, err := e.docRepo.GetByID(e.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.StoredName, stored.StoredName)
	assert.Equal(t, []string{"finance", "q1"}, stored.Tags)
}

func TestSaveAccessRules(t *testing.T) {
	e := newTestEnv(t)
	shared := e.folder(t, "2", nil, "Shared", manager.ID)

	// members upload into their own department's folders, whoever created them
	_, err := e.docs.Save(e.ctx, &docsysSvc.SaveDocumentRequest{
		FolderID: &shared.ID, FileName: "notes.txt", Size: 2, Content: strings.NewReader("hi"),
	}, alice)
	require.NoError(t, err)

	_, err = e.docs.Save(e.ctx, saveRequest("3", "notes.txt", "hi"), alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.docs.Save(e.ctx, saveRequest("7", "notes.txt", "hi"), admin)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSaveStorageFailure(t *testing.T) {
	e := newTestEnv(t)
	e.files.failWrite = errors.New("disk full")

	_, err := e.docs.Save(e.ctx, saveRequest("2", "a.txt", "abc"), alice)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)

	docs, err := e.docRepo.ListByDepartment(e.ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGetAcrossDepartments(t *testing.T) {
	e := newTestEnv(t)
	legal := e.upload(t, carol, "3", nil, "contract.pdf")
	general := e.upload(t, admin, "1", nil, "handbook.pdf")

	_, err := e.docs.Get(e.ctx, legal.ID, alice)
	var authErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	got, err := e.docs.Get(e.ctx, general.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, general.ID, got.ID)

	_, err = e.docs.Get(e.ctx, "missing", alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	e := newTestEnv(t)
	doc := e.upload(t, alice, "2", nil, "policy.txt")

	_, err := e.docs.Transition(e.ctx, doc.ID, models.StatusPublished, alice)
	var transErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "draft", transErr.From)
	assert.Equal(t, "published", transErr.To)

	got, err := e.docs.Transition(e.ctx, doc.ID, models.StatusPendingReview, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, got.Status)
	assert.Equal(t, 2, got.Version)

	_, err = e.docs.Transition(e.ctx, doc.ID, models.StatusPublished, alice)
	require.NoError(t, err)

	// archive=false leaves a live document alone
	got, err = e.docs.Archive(e.ctx, doc.ID, false, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)

	got, err = e.docs.Archive(e.ctx, doc.ID, true, alice)
	require.NoError(t, err)
	assert.True(t, got.IsArchived())

	_, err = e.docs.Archive(e.ctx, doc.ID, false, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = e.docs.Transition(e.ctx, doc.ID, models.StatusDraft, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = e.docs.UpdateMetadata(e.ctx, doc.ID, &docsysSvc.UpdateDocumentRequest{Description: ptr("late edit")}, alice)
	assert.ErrorIs(t, err, domain.ErrImmutableState)
	_, err = e.docs.Move(e.ctx, doc.ID, nil, alice)
	assert.ErrorIs(t, err, domain.ErrImmutableState)

	_, err = e.docs.Transition(e.ctx, doc.ID, "lost", alice)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransitionRequiresOwner(t *testing.T) {
	e := newTestEnv(t)
	doc := e.upload(t, alice, "2", nil, "policy.txt")

	_, err := e.docs.Transition(e.ctx, doc.ID, models.StatusPendingReview, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.docs.Transition(e.ctx, doc.ID, models.StatusPendingReview, manager)
	assert.NoError(t, err)
}

func TestUpdateMetadata(t *testing.T) {
	e := newTestEnv(t)
	doc := e.upload(t, alice, "2", nil, "budget.txt")

	got, err := e.docs.UpdateMetadata(e.ctx, doc.ID, &docsysSvc.UpdateDocumentRequest{
		OriginalName: ptr("budget-2026.txt"),
		Description:  ptr("  approved budget "),
		Public:       ptr(true),
		Tags:         ptr([]string{"Budget"}),
		Version:      ptr(1),
	}, alice)
	require.NoError(t, err)
	assert.Equal(t, "budget-2026.txt", got.OriginalName)
	assert.Equal(t, "approved budget", got.Description)
	assert.True(t, got.Public)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, doc.StoredName, got.StoredName)

	stored, err := e.docRepo.GetByID(e.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget"}, stored.Tags)

	t.Run("stale version", func(t *testing.T) {
		_, err := e.docs.UpdateMetadata(e.ctx, doc.ID, &docsysSvc.UpdateDocumentRequest{Description: ptr("x"), Version: ptr(1)}, alice)
		assert.ErrorIs(t, err, domain.ErrConcurrency)
	})

	t.Run("extension change", func(t *testing.T) {
		_, err := e.docs.UpdateMetadata(e.ctx, doc.ID, &docsysSvc.UpdateDocumentRequest{OriginalName: ptr("budget.exe")}, alice)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("not the uploader", func(t *testing.T) {
		_, err := e.docs.UpdateMetadata(e.ctx, doc.ID, &docsysSvc.UpdateDocumentRequest{Description: ptr("x")}, bob)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestBulkMoveIsBestEffort(t *testing.T) {
	e := newTestEnv(t)
	folderX := e.folder(t, "2", nil, "X", alice.ID)
	doc1 := e.upload(t, alice, "2", nil, "one.txt")
	doc2 := e.upload(t, carol, "3", nil, "two.txt")
	doc3 := e.upload(t, alice, "2", nil, "three.txt")

	results, err := e.docs.BulkMove(e.ctx, []string{doc1.ID, doc2.ID, doc3.ID}, &folderX.ID, manager)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, doc2.ID, results[1].DocumentID)
	assert.Equal(t, http.StatusConflict, results[1].Status)
	requireConflict(t, results[1].Err, domain.ConflictCrossDepartment)

	for _, id := range []string{doc1.ID, doc3.ID} {
		got, err := e.docRepo.GetByID(e.ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got.FolderID)
		assert.Equal(t, folderX.ID, *got.FolderID)
	}
	got, err := e.docRepo.GetByID(e.ctx, doc2.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)
	assert.Equal(t, "3", got.DepartmentID)
}

func TestBulkMoveLimits(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.docs.BulkMove(e.ctx, nil, nil, admin)
	assert.ErrorIs(t, err, domain.ErrValidation)

	results, err := e.docs.BulkMove(e.ctx, []string{"missing"}, nil, admin)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, http.StatusNotFound, results[0].Status)
}

func TestMoveDocumentAcrossDepartmentsWithReassign(t *testing.T) {
	e := newTestEnv(t)
	dest := e.folder(t, "3", nil, "Inbox", carol.ID)
	doc := e.upload(t, alice, "2", nil, "handover.txt")

	got, err := e.docs.Move(e.ctx, doc.ID, &dest.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "3", got.DepartmentID)
	assert.Equal(t, dest.ID, *got.FolderID)

	// alice can no longer see it
	_, err = e.docs.Get(e.ctx, doc.ID, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDeleteDocument(t *testing.T) {
	e := newTestEnv(t)

	t.Run("without history the file goes too", func(t *testing.T) {
		doc := e.upload(t, alice, "2", nil, "scratch.txt")
		require.NoError(t, e.docs.Delete(e.ctx, doc.ID, alice))
		assert.False(t, e.files.has(doc.StoredName))
		_, err := e.docRepo.GetByID(e.ctx, doc.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("with history the record stays resolvable", func(t *testing.T) {
		doc := e.upload(t, alice, "2", nil, "minutes.txt")
		dl, err := e.docs.Open(e.ctx, doc.ID, bob, models.ClientInfo{IP: "10.0.0.2"})
		require.NoError(t, err)
		require.NoError(t, dl.Content.Close())

		require.NoError(t, e.docs.Delete(e.ctx, doc.ID, alice))
		assert.True(t, e.files.has(doc.StoredName))

		_, err = e.docRepo.GetByID(e.ctx, doc.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		entries, err := e.logRepo.ListByDocument(e.ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("a failed commit keeps the file", func(t *testing.T) {
		doc := e.upload(t, alice, "2", nil, "draft.txt")
		e.docs.txManager = commitFailure{e.tx}
		defer func() { e.docs.txManager = e.tx }()

		assert.ErrorIs(t, e.docs.Delete(e.ctx, doc.ID, alice), errCommit)
		assert.True(t, e.files.has(doc.StoredName))
		_, err := e.docRepo.GetByID(e.ctx, doc.ID)
		assert.NoError(t, err)
	})

	t.Run("a file that cannot be removed does not fail the delete", func(t *testing.T) {
		doc := e.upload(t, alice, "2", nil, "stuck.txt")
		e.files.failDelete = errors.New("permission denied")
		defer func() { e.files.failDelete = nil }()

		require.NoError(t, e.docs.Delete(e.ctx, doc.ID, alice))
		_, err := e.docRepo.GetByID(e.ctx, doc.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.True(t, e.files.has(doc.StoredName))
	})

	t.Run("members cannot delete others' documents", func(t *testing.T) {
		doc := e.upload(t, alice, "2", nil, "keep.txt")
		assert.ErrorIs(t, e.docs.Delete(e.ctx, doc.ID, bob), domain.ErrForbidden)
	})
}

type failingAuditor struct {
	docsysSvc.DownloadAuditor
}

func (failingAuditor) RegisterDownload(context.Context, string, *models.Principal, models.ClientInfo) (*models.DownloadLogEntry, error) {
	return nil, errors.New("audit store unavailable")
}

func TestOpen(t *testing.T) {
	e := newTestEnv(t)
	doc := e.upload(t, alice, "2", nil, "report.txt")

	dl, err := e.docs.Open(e.ctx, doc.ID, bob, models.ClientInfo{IP: "10.0.0.7", UserAgent: "test"})
	require.NoError(t, err)
	body, err := io.ReadAll(dl.Content)
	require.NoError(t, err)
	require.NoError(t, dl.Content.Close())
	assert.Equal(t, "content of report.txt", string(body))
	assert.Empty(t, dl.AuditWarning)

	stored, err := e.docRepo.GetByID(e.ctx, doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.DownloadCount)

	t.Run("forbidden reads are not recorded", func(t *testing.T) {
		_, err := e.docs.Open(e.ctx, doc.ID, carol, models.ClientInfo{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		entries, err := e.logRepo.ListByDocument(e.ctx, doc.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("missing content", func(t *testing.T) {
		lost := e.upload(t, alice, "2", nil, "lost.txt")
		require.NoError(t, e.files.Delete(e.ctx, storagePath(lost.StoredName)))
		_, err := e.docs.Open(e.ctx, lost.ID, alice, models.ClientInfo{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		has, err := e.logRepo.HasDownloads(e.ctx, lost.ID)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("audit failure is only a warning", func(t *testing.T) {
		e.docs.auditor = failingAuditor{}
		dl, err := e.docs.Open(e.ctx, doc.ID, alice, models.ClientInfo{})
		require.NoError(t, err)
		defer dl.Content.Close()
		assert.NotEmpty(t, dl.AuditWarning)
	})
}

// interleavedDocs runs before once, right before the first Update is written
type interleavedDocs struct {
	docsysRepo.DocumentRepository
	once   sync.Once
	before func(ctx context.Context)
}

func (r *interleavedDocs) Update(ctx context.Context, doc *models.Document, expectedVersion int) error {
	r.once.Do(func() { r.before(ctx) })
	return r.DocumentRepository.Update(ctx, doc, expectedVersion)
}

func TestDocumentWritesRacingFolderReassignment(t *testing.T) {
	tests := []struct {
		name string
		// moved is the folder reassigned to department 3 mid-write
		moved func(src, other *models.Folder) *models.Folder
		write func(e *testEnv, doc *models.Document, other *models.Folder) error
	}{
		{
			name:  "metadata update",
			moved: func(src, _ *models.Folder) *models.Folder { return src },
			write: func(e *testEnv, doc *models.Document, _ *models.Folder) error {
				_, err := e.docs.UpdateMetadata(e.ctx, doc.ID, &docsysSvc.UpdateDocumentRequest{Description: ptr("q3 numbers")}, alice)
				return err
			},
		},
		{
			name:  "status change",
			moved: func(src, _ *models.Folder) *models.Folder { return src },
			write: func(e *testEnv, doc *models.Document, _ *models.Folder) error {
				_, err := e.docs.Transition(e.ctx, doc.ID, models.StatusPendingReview, alice)
				return err
			},
		},
		{
			name:  "move into the reassigned folder",
			moved: func(_, other *models.Folder) *models.Folder { return other },
			write: func(e *testEnv, doc *models.Document, other *models.Folder) error {
				_, err := e.docs.Move(e.ctx, doc.ID, &other.ID, alice)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			src := e.folder(t, "2", nil, "Reports", alice.ID)
			other := e.folder(t, "2", nil, "Drafts", alice.ID)
			legal := e.folder(t, "3", nil, "Legal", carol.ID)
			doc := e.upload(t, alice, "2", src, "q3.txt")

			moved := tt.moved(src, other)
			e.docs.docRepo = &interleavedDocs{
				DocumentRepository: e.docRepo,
				before: func(ctx context.Context) {
					_, err := e.tree.Move(ctx, moved.ID, &legal.ID, admin)
					require.NoError(t, err)
				},
			}

			err := tt.write(e, doc, other)
			assert.ErrorIs(t, err, domain.ErrConcurrency)

			got, err := e.docRepo.GetByID(e.ctx, doc.ID)
			require.NoError(t, err)
			folder, err := e.folderRepo.GetByID(e.ctx, *got.FolderID)
			require.NoError(t, err)
			assert.Equal(t, folder.DepartmentID, got.DepartmentID)
		})
	}
}

func TestDepartmentReassignmentBumpsDocumentVersion(t *testing.T) {
	e := newTestEnv(t)
	src := e.folder(t, "2", nil, "Reports", alice.ID)
	legal := e.folder(t, "3", nil, "Legal", carol.ID)
	doc := e.upload(t, alice, "2", src, "q3.txt")

	_, err := e.tree.Move(e.ctx, src.ID, &legal.ID, admin)
	require.NoError(t, err)

	got, err := e.docRepo.GetByID(e.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", got.DepartmentID)
	assert.Equal(t, doc.Version+1, got.Version)

	// a write based on the pre-move read is refused
	assert.ErrorIs(t, e.docRepo.Update(e.ctx, doc, doc.Version), domain.ErrConcurrency)
}

// interleavedFolders runs before once, when the first department lock is taken
type interleavedFolders struct {
	docsysRepo.FolderRepository
	once   sync.Once
	before func(ctx context.Context)
}

func (r *interleavedFolders) LockDepartments(ctx context.Context, departmentIDs ...string) error {
	r.once.Do(func() { r.before(ctx) })
	return r.FolderRepository.LockDepartments(ctx, departmentIDs...)
}

func TestWritesRacingCascadeDelete(t *testing.T) {
	tests := []struct {
		name  string
		write func(e *testEnv, folders docsysRepo.FolderRepository, src *models.Folder, doc *models.Document) error
	}{
		{
			name: "upload",
			write: func(e *testEnv, folders docsysRepo.FolderRepository, src *models.Folder, _ *models.Document) error {
				e.docs.folderRepo = folders
				body := "late"
				_, err := e.docs.Save(e.ctx, &docsysSvc.SaveDocumentRequest{
					FolderID: &src.ID,
					FileName: "late.txt",
					Size:     int64(len(body)),
					Content:  strings.NewReader(body),
				}, alice)
				return err
			},
		},
		{
			name: "document move",
			write: func(e *testEnv, folders docsysRepo.FolderRepository, src *models.Folder, doc *models.Document) error {
				e.docs.folderRepo = folders
				_, err := e.docs.Move(e.ctx, doc.ID, &src.ID, alice)
				return err
			},
		},
		{
			name: "subfolder",
			write: func(e *testEnv, folders docsysRepo.FolderRepository, src *models.Folder, _ *models.Document) error {
				tree := *e.tree
				tree.folderRepo = folders
				_, err := tree.Create(e.ctx, &docsysSvc.CreateFolderRequest{ParentID: &src.ID, Name: "Late"}, alice)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			src := e.folder(t, "2", nil, "Reports", alice.ID)
			doc := e.upload(t, alice, "2", nil, "loose.txt")
			files := e.files.count()

			folders := &interleavedFolders{
				FolderRepository: e.folderRepo,
				before: func(ctx context.Context) {
					require.NoError(t, e.tree.Delete(ctx, src.ID, true, admin))
				},
			}

			err := tt.write(e, folders, src, doc)
			assert.ErrorIs(t, err, domain.ErrConcurrency)

			// the refused write left nothing under the folder
			docs, err := e.docRepo.ListByFolder(e.ctx, "2", &src.ID)
			require.NoError(t, err)
			assert.Empty(t, docs)
			children, err := e.folderRepo.ListChildren(e.ctx, src.ID)
			require.NoError(t, err)
			assert.Empty(t, children)
			assert.Equal(t, files, e.files.count())
		})
	}
}
