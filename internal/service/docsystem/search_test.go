package docsystem

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (e *testEnv) searchEngine(cache docsysSvc.SearchCache) docsysSvc.SearchEngine {
	return NewSearchEngine(e.docRepo, e.policy, cache, SearchOptions{DefaultPageSize: 2, MaxPageSize: 3}, discardLogger())
}

// seedSearch creates one private document in departments 2 and 3, one public
// document in department 3 and one in the general department
func seedSearch(t *testing.T, e *testEnv) {
	t.Helper()
	e.upload(t, alice, "2", nil, "budget.txt")
	e.upload(t, carol, "3", nil, "contract.pdf")

	req := saveRequest("3", "press-release.pdf", "public text")
	req.Public = true
	req.Tags = []string{"press", "2026"}
	_, err := e.docs.Save(e.ctx, req, carol)
	require.NoError(t, err)

	e.upload(t, admin, "1", nil, "handbook.pdf")
}

func names(docs []models.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.OriginalName)
	}
	return out
}

func TestSearchIsScopedToVisibleDocuments(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	engine := e.searchEngine(nil)

	tests := []struct {
		p    *models.Principal
		want []string
	}{
		{alice, []string{"budget.txt", "handbook.pdf", "press-release.pdf"}},
		{carol, []string{"contract.pdf", "handbook.pdf", "press-release.pdf"}},
		{admin, []string{"budget.txt", "contract.pdf", "handbook.pdf", "press-release.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.p.ID, func(t *testing.T) {
			res, err := engine.Execute(e.ctx, &models.SearchFilter{Sort: models.SortName, PageSize: 3}, tt.p)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), res.TotalCount)

			all := res.Documents
			if res.HasNextPage {
				next, err := engine.Execute(e.ctx, &models.SearchFilter{Sort: models.SortName, PageSize: 3, Page: 2}, tt.p)
				require.NoError(t, err)
				all = append(all, next.Documents...)
			}
			assert.Equal(t, tt.want, names(all))
		})
	}

	// an explicit department filter cannot widen visibility
	res, err := engine.Execute(e.ctx, &models.SearchFilter{DepartmentID: "3"}, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"press-release.pdf"}, names(res.Documents))
}

func TestSearchFilters(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	folder := e.folder(t, "2", nil, "Archive", alice.ID)
	e.upload(t, alice, "2", folder, "old-budget.txt")
	engine := e.searchEngine(nil)

	tests := []struct {
		name   string
		filter models.SearchFilter
		want   []string
	}{
		{"text", models.SearchFilter{Text: "BUDGET"}, []string{"budget.txt", "old-budget.txt"}},
		{"tags", models.SearchFilter{Tags: []string{"Press"}}, []string{"press-release.pdf"}},
		{"missing tag", models.SearchFilter{Tags: []string{"press", "other"}}, []string{}},
		{"folder", models.SearchFilter{FolderID: &folder.ID}, []string{"old-budget.txt"}},
		{"public", models.SearchFilter{Public: ptr(true)}, []string{"press-release.pdf"}},
		{"status", models.SearchFilter{Status: models.StatusPublished}, []string{}},
		{"date range", models.SearchFilter{From: ptr(time.Now().Add(time.Hour))}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Sort = models.SortName
			tt.filter.PageSize = 3
			res, err := engine.Execute(e.ctx, &tt.filter, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Documents))
		})
	}
}

func TestSearchPagination(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	engine := e.searchEngine(nil)

	res, err := engine.Execute(e.ctx, &models.SearchFilter{PageSize: 50}, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PageSize)
	assert.Len(t, res.Documents, 3)
	assert.Equal(t, 4, res.TotalCount)
	assert.True(t, res.HasNextPage)
	assert.False(t, res.HasPreviousPage)

	res, err = engine.Execute(e.ctx, &models.SearchFilter{Page: 2}, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageSize)
	assert.Len(t, res.Documents, 2)
	assert.False(t, res.HasNextPage)
	assert.True(t, res.HasPreviousPage)

	_, err = engine.Execute(e.ctx, &models.SearchFilter{Status: "bogus"}, admin)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = engine.Execute(e.ctx, &models.SearchFilter{}, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSearchIsDeterministicAndCachedPayloadsMatch(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	filter := &models.SearchFilter{Text: "e", Sort: models.SortSize}

	uncached := e.searchEngine(nil)
	first, err := uncached.ExecuteJSON(e.ctx, filter, alice)
	require.NoError(t, err)
	second, err := uncached.ExecuteJSON(e.ctx, filter, alice)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cached := e.searchEngine(NewMemorySearchCache(time.Minute, 0, nil))
	miss, err := cached.ExecuteJSON(e.ctx, filter, alice)
	require.NoError(t, err)
	hit, err := cached.ExecuteJSON(e.ctx, filter, alice)
	require.NoError(t, err)
	assert.Equal(t, first, miss)
	assert.Equal(t, miss, hit)

	res, err := cached.Execute(e.ctx, filter, alice)
	require.NoError(t, err)
	direct, err := uncached.Execute(e.ctx, filter, alice)
	require.NoError(t, err)
	assert.Equal(t, direct.TotalCount, res.TotalCount)
	assert.Equal(t, names(direct.Documents), names(res.Documents))
}

func TestSearchCacheStalenessIsBoundedByTTL(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	const ttl = 30 * time.Second
	engine := e.searchEngine(NewMemorySearchCache(ttl, 0, clock.Now))
	filter := &models.SearchFilter{}

	res, err := engine.Execute(e.ctx, filter, alice)
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalCount)

	e.upload(t, alice, "2", nil, "new.txt")

	clock.Advance(ttl - time.Second)
	res, err = engine.Execute(e.ctx, filter, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount, "served from cache within the TTL")

	clock.Advance(time.Second)
	res, err = engine.Execute(e.ctx, filter, alice)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalCount, "recomputed once the TTL elapsed")
}

func TestSearchCacheSeparatesPrincipals(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	engine := e.searchEngine(NewMemorySearchCache(time.Minute, 0, nil))
	filter := &models.SearchFilter{Sort: models.SortName}

	asAlice, err := engine.Execute(e.ctx, filter, alice)
	require.NoError(t, err)
	asCarol, err := engine.Execute(e.ctx, filter, carol)
	require.NoError(t, err)
	assert.Contains(t, names(asAlice.Documents), "budget.txt")
	assert.NotContains(t, names(asCarol.Documents), "budget.txt")

	// same department, different roles
	elevated := &models.Principal{ID: "u-x", DepartmentID: "2", Roles: []string{"manager"}}
	asManager, err := engine.Execute(e.ctx, &models.SearchFilter{Sort: models.SortName, PageSize: 3}, elevated)
	require.NoError(t, err)
	assert.Equal(t, 4, asManager.TotalCount)
}

// gatedSearch holds every Search until release is closed
type gatedSearch struct {
	docsysRepo.DocumentRepository
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
	ctxErr  atomic.Value
}

func (r *gatedSearch) Search(ctx context.Context, q *models.SearchQuery) ([]models.Document, int, error) {
	r.entered <- struct{}{}
	<-r.release
	r.calls.Add(1)
	r.ctxErr.Store(fmt.Sprint(ctx.Err()))
	return r.DocumentRepository.Search(ctx, q)
}

func TestSearchSharedQuerySurvivesCallerCancellation(t *testing.T) {
	e := newTestEnv(t)
	seedSearch(t, e)
	repo := &gatedSearch{
		DocumentRepository: e.docRepo,
		entered:            make(chan struct{}, 1),
		release:            make(chan struct{}),
	}
	engine := NewSearchEngine(repo, e.policy, NewMemorySearchCache(time.Minute, 0, nil),
		SearchOptions{DefaultPageSize: 2, MaxPageSize: 3}, discardLogger())
	filter := &models.SearchFilter{Sort: models.SortName}

	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan error, 1)
	go func() {
		_, err := engine.ExecuteJSON(ctx, filter, alice)
		done <- err
	}()

	<-repo.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(repo.release)

	payload, err := engine.ExecuteJSON(e.ctx, filter, alice)
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, int32(1), repo.calls.Load(), "the abandoned query still completed and filled the cache")
	assert.Equal(t, "<nil>", repo.ctxErr.Load())
}
