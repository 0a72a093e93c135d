package docsystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/metrics"
)

// SearchOptions configures page sizing
type SearchOptions struct {
	DefaultPageSize int
	MaxPageSize     int
}

type searchEngine struct {
	docRepo docsysRepo.DocumentRepository
	access  docsysSvc.AccessControl
	cache   docsysSvc.SearchCache // nil disables caching
	options SearchOptions
	flight  singleflight.Group
	logger  *slog.Logger
}

// NewSearchEngine creates a search engine. cache may be nil.
func NewSearchEngine(
	docRepo docsysRepo.DocumentRepository,
	access docsysSvc.AccessControl,
	cache docsysSvc.SearchCache,
	options SearchOptions,
	logger *slog.Logger,
) docsysSvc.SearchEngine {
	return &searchEngine{
		docRepo: docRepo,
		access:  access,
		cache:   cache,
		options: options,
		logger:  logger,
	}
}

// scope is the visibility conjunct for principals without elevated roles:
// own department, public documents, or the general department
func (s *searchEngine) scope(p *models.Principal) (models.Node, bool) {
	if s.access.IsElevated(p) {
		return models.Node{}, false
	}
	visible := []models.Node{
		models.Leaf(models.FieldDepartmentID, models.OpEq, p.DepartmentID),
		models.Leaf(models.FieldPublic, models.OpEq, true),
	}
	if general := s.access.GeneralDepartmentID(); general != "" {
		visible = append(visible, models.Leaf(models.FieldDepartmentID, models.OpEq, general))
	}
	return models.Or(visible...), true
}

// prepare normalizes a copy of the filter and validates it
func (s *searchEngine) prepare(filter *models.SearchFilter, p *models.Principal) (*models.SearchFilter, error) {
	if p == nil {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}
	f := models.SearchFilter{}
	if filter != nil {
		f = *filter
	}
	f.ApplyDefaults(s.options.DefaultPageSize, s.options.MaxPageSize)
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return &f, nil
}

// cacheKey covers every filter field and the principal's visibility inputs
func (s *searchEngine) cacheKey(f *models.SearchFilter, p *models.Principal) (string, error) {
	raw, err := json.Marshal(struct {
		DepartmentID string               `json:"d"`
		Roles        []string             `json:"r"`
		Elevated     bool                 `json:"e"`
		Filter       *models.SearchFilter `json:"f"`
	}{
		DepartmentID: p.DepartmentID,
		Roles:        p.SortedRoles(),
		Elevated:     s.access.IsElevated(p),
		Filter:       f,
	})
	if err != nil {
		return "", fmt.Errorf("encode search cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return "search:" + hex.EncodeToString(sum[:]), nil
}

func (s *searchEngine) run(ctx context.Context, f *models.SearchFilter, p *models.Principal) (*models.SearchResults, error) {
	where := f.Conditions()
	if scope, ok := s.scope(p); ok {
		where = models.And(where, scope)
	}

	docs, total, err := s.docRepo.Search(ctx, &models.SearchQuery{
		Where:  where,
		Sort:   f.Sort,
		Desc:   *f.Desc,
		Limit:  f.PageSize,
		Offset: (f.Page - 1) * f.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return models.NewSearchResults(docs, total, f), nil
}

func (s *searchEngine) Execute(ctx context.Context, filter *models.SearchFilter, p *models.Principal) (*models.SearchResults, error) {
	if s.cache == nil {
		f, err := s.prepare(filter, p)
		if err != nil {
			return nil, err
		}
		return s.run(ctx, f, p)
	}

	payload, err := s.ExecuteJSON(ctx, filter, p)
	if err != nil {
		return nil, err
	}
	var results models.SearchResults
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	return &results, nil
}

// ExecuteJSON serves cached payloads as stored. Concurrent misses for the
// same key share one query.
func (s *searchEngine) ExecuteJSON(ctx context.Context, filter *models.SearchFilter, p *models.Principal) ([]byte, error) {
	f, err := s.prepare(filter, p)
	if err != nil {
		return nil, err
	}

	compute := func(ctx context.Context) ([]byte, error) {
		results, err := s.run(ctx, f, p)
		if err != nil {
			return nil, err
		}
		return json.Marshal(results)
	}
	if s.cache == nil {
		return compute(ctx)
	}

	key, err := s.cacheKey(f, p)
	if err != nil {
		return nil, err
	}
	if payload, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("search cache read failed", "error", err)
	} else if ok {
		metrics.SearchCacheHits.Inc()
		return payload, nil
	}
	metrics.SearchCacheMisses.Inc()

	// The shared query outlives any single caller; each caller still stops waiting on its own ctx
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		payload, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(flightCtx, key, payload); err != nil {
			s.logger.Warn("search cache write failed", "error", err)
		}
		return payload, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
