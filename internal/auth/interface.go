package auth

import "deptdocs/internal/domain/models/docsystem"

// TokenVerifier turns a bearer token into the principal it identifies.
// The middleware stays agnostic to how tokens are checked.
type TokenVerifier interface {
	// VerifyToken validates a token string and returns its principal.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*docsystem.Principal, error)

	// Close releases any resources held by the verifier (e.g., HTTP connections for JWKS).
	Close() error
}
