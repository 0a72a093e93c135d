package httputil

import (
	"context"
	"net/http"

	"deptdocs/internal/domain/models/docsystem"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal adds the authenticated principal to the request context
func WithPrincipal(r *http.Request, p *docsystem.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, p)
	return r.WithContext(ctx)
}

// GetPrincipal retrieves the principal from context, nil if the request is anonymous
func GetPrincipal(r *http.Request) *docsystem.Principal {
	p, _ := r.Context().Value(principalKey).(*docsystem.Principal)
	return p
}
