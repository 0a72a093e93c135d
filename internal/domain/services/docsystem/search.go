package docsystem

import (
	"context"

	"deptdocs/internal/domain/models/docsystem"
)

// SearchEngine runs visibility-scoped, paginated document searches
type SearchEngine interface {
	// Execute returns one page of documents the principal may see
	Execute(ctx context.Context, filter *docsystem.SearchFilter, p *docsystem.Principal) (*docsystem.SearchResults, error)

	// ExecuteJSON is Execute returning the encoded payload. Cached and uncached
	// answers are byte-identical.
	ExecuteJSON(ctx context.Context, filter *docsystem.SearchFilter, p *docsystem.Principal) ([]byte, error)
}

// SearchCache memoizes encoded search results until a fixed TTL expires.
// Writes are never invalidated actively, so results may be stale for up to the TTL.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
}
