// Package memory implements every repository in process. Transactions are
// serialized: ExecTx holds the store lock for the whole unit of work and
// restores a snapshot when the unit fails.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
)

// Store holds all in-memory state shared by the repositories
type Store struct {
	mu sync.Mutex

	departments map[string]docsystem.Department
	folders     map[string]docsystem.Folder
	documents   map[string]docsystem.Document
	tags        map[string][]string
	storedNames map[string]string // stored name -> document id, deleted rows included
	logs        []docsystem.DownloadLogEntry
	nextLogID   int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		departments: make(map[string]docsystem.Department),
		folders:     make(map[string]docsystem.Folder),
		documents:   make(map[string]docsystem.Document),
		tags:        make(map[string][]string),
		storedNames: make(map[string]string),
	}
}

type snapshot struct {
	departments map[string]docsystem.Department
	folders     map[string]docsystem.Folder
	documents   map[string]docsystem.Document
	tags        map[string][]string
	storedNames map[string]string
	logs        []docsystem.DownloadLogEntry
	nextLogID   int64
}

// Structs are copied by value; tag slices are replaced, never mutated in place
func (s *Store) snapshot() snapshot {
	return snapshot{
		departments: maps.Clone(s.departments),
		folders:     maps.Clone(s.folders),
		documents:   maps.Clone(s.documents),
		tags:        maps.Clone(s.tags),
		storedNames: maps.Clone(s.storedNames),
		logs:        slices.Clone(s.logs),
		nextLogID:   s.nextLogID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.departments = snap.departments
	s.folders = snap.folders
	s.documents = snap.documents
	s.tags = snap.tags
	s.storedNames = snap.storedNames
	s.logs = snap.logs
	s.nextLogID = snap.nextLogID
}

type txKey struct{ s *Store }

func (s *Store) inTx(ctx context.Context) bool {
	active, _ := ctx.Value(txKey{s}).(bool)
	return active
}

// lock acquires the store unless ctx already runs inside one of its transactions
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// TransactionManager implements repositories.TransactionManager over a Store
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager for the store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx runs fn holding the store lock. Nested calls join the outer transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s := tm.store
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}
