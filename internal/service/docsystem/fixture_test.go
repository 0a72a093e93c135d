package docsystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/repository/memory"
	"deptdocs/internal/service/access"
)

var (
	admin   = &models.Principal{ID: "u-admin", DepartmentID: "9", Roles: []string{"admin"}}
	manager = &models.Principal{ID: "u-mgr", DepartmentID: "9", Roles: []string{"manager"}}
	alice   = &models.Principal{ID: "u-alice", DepartmentID: "2", Roles: []string{"member"}}
	bob     = &models.Principal{ID: "u-bob", DepartmentID: "2", Roles: []string{"member"}}
	carol   = &models.Principal{ID: "u-carol", DepartmentID: "3", Roles: []string{"member"}}
)

func ptr[T any](v T) *T { return &v }

// memFiles is a PhysicalStorage kept in a map
type memFiles struct {
	mu        sync.Mutex
	files     map[string][]byte
	failWrite  error
	failRead   error
	failDelete error
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (m *memFiles) Write(_ context.Context, path string, r io.Reader, _ int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: m.failWrite}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	m.files[path] = data
	return nil
}

func (m *memFiles) Read(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead != nil {
		return nil, &domain.StorageError{Op: "read", Path: path, Err: m.failRead}
	}
	data, ok := m.files[path]
	if !ok {
		return nil, domain.NotFound("file", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memFiles) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return &domain.StorageError{Op: "delete", Path: path, Err: m.failDelete}
	}
	delete(m.files, path)
	return nil
}

func (m *memFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *memFiles) has(storedName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[storagePath(storedName)]
	return ok
}

type testEnv struct {
	ctx        context.Context
	depts      docsysRepo.DepartmentRepository
	folderRepo docsysRepo.FolderRepository
	docRepo    docsysRepo.DocumentRepository
	logRepo    docsysRepo.DownloadLogRepository
	tx         repositories.TransactionManager
	policy     *access.Policy
	files      *memFiles

	tree    *folderTree
	docs    *documentStore
	auditor *downloadAuditor
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	e := &testEnv{
		ctx:        context.Background(),
		depts:      memory.NewDepartmentRepository(store),
		folderRepo: memory.NewFolderRepository(store),
		docRepo:    memory.NewDocumentRepository(store),
		logRepo:    memory.NewDownloadLogRepository(store),
		tx:         memory.NewTransactionManager(store),
		files:      newMemFiles(),
	}

	p := config.DefaultPolicy()
	p.GeneralDepartmentID = "1"
	e.policy = access.NewPolicy(p)
	authorizer := access.NewAuthorizer(e.policy, e.depts, e.folderRepo, e.docRepo)

	for _, d := range []models.Department{
		{ID: "1", Name: "General", Active: true},
		{ID: "2", Name: "Finance", Active: true},
		{ID: "3", Name: "Legal", Active: true},
		{ID: "9", Name: "Board", Active: true},
		{ID: "7", Name: "Closed", Active: false},
	} {
		require.NoError(t, e.depts.Create(e.ctx, &d))
	}

	logger := discardLogger()
	e.tree = NewFolderTree(e.folderRepo, e.docRepo, e.depts, e.tx, e.policy, authorizer, logger).(*folderTree)
	e.auditor = NewDownloadAuditor(e.logRepo, e.docRepo, e.tx, e.policy, authorizer, logger).(*downloadAuditor)
	e.docs = NewDocumentStore(e.docRepo, e.folderRepo, e.depts, e.logRepo, e.tx, e.policy, authorizer, e.auditor, e.files,
		UploadLimits{MaxBytes: 1024, AllowedExtensions: []string{".pdf", ".txt"}}, logger).(*documentStore)
	return e
}

// folder inserts a folder owned by owner without going through access checks
func (e *testEnv) folder(t *testing.T, dept string, parent *models.Folder, name, owner string) *models.Folder {
	t.Helper()
	f := &models.Folder{DepartmentID: dept, Name: name, CreatedBy: owner}
	if parent != nil {
		f.ParentID = &parent.ID
		f.DepartmentID = parent.DepartmentID
	}
	require.NoError(t, e.folderRepo.Create(e.ctx, f))
	return f
}

// upload saves a small text document as p
func (e *testEnv) upload(t *testing.T, p *models.Principal, dept string, folder *models.Folder, name string) *models.Document {
	t.Helper()
	body := "content of " + name
	req := &docsysSvc.SaveDocumentRequest{
		DepartmentID: dept,
		FileName:     name,
		ContentType:  "text/plain",
		Size:         int64(len(body)),
		Content:      strings.NewReader(body),
	}
	if folder != nil {
		req.FolderID = &folder.ID
	}
	doc, err := e.docs.Save(e.ctx, req, p)
	require.NoError(t, err)
	return doc
}

// commitFailure runs fn in a real transaction and then fails as if the
// commit had been rejected, so every write is rolled back
type commitFailure struct {
	repositories.TransactionManager
}

var errCommit = errors.New("commit rejected")

func (c commitFailure) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return c.TransactionManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errCommit
	})
}

func requireConflict(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "want ConflictError, got %T: %v", err, err)
	require.Equal(t, reason, conflict.Reason)
}
