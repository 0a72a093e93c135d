package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"deptdocs/internal/domain"
	"deptdocs/internal/domain/models/docsystem"
)

// Claims is the token shape issued by the identity provider
type Claims struct {
	jwt.RegisteredClaims
	DepartmentID string   `json:"department_id"`
	Roles        []string `json:"roles"`
}

// Principal converts verified claims into the request-time principal
func (c *Claims) Principal() *docsystem.Principal {
	roles := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return &docsystem.Principal{
		ID:           c.Subject,
		DepartmentID: c.DepartmentID,
		Roles:        roles,
	}
}

// JWTVerifier implements TokenVerifier using a JWKS endpoint.
type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	logger  *slog.Logger
}

// NewJWTVerifier creates a verifier that fetches public keys from jwksURL.
// keyfunc v3 caches the keys and refreshes them based on HTTP cache headers.
func NewJWTVerifier(jwksURL string, logger *slog.Logger) (*JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return NewJWTVerifierWithKeyfunc(jwks.Keyfunc, logger), nil
}

// NewJWTVerifierWithKeyfunc builds a verifier around an existing key lookup
func NewJWTVerifierWithKeyfunc(kf jwt.Keyfunc, logger *slog.Logger) *JWTVerifier {
	return &JWTVerifier{keyfunc: kf, logger: logger}
}

// VerifyToken validates a token and extracts the principal.
func (v *JWTVerifier) VerifyToken(tokenString string) (*docsystem.Principal, error) {
	// Prevent algorithm confusion attacks - allow only RS256 or ES256
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyfunc,
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}
	if !token.Valid {
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		v.logger.Error("failed to extract claims from token")
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}

	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, &domain.UnauthorizedError{Message: "token missing subject"}
	}
	if claims.DepartmentID == "" {
		v.logger.Debug("token missing department claim", "user_id", claims.Subject)
		return nil, &domain.UnauthorizedError{Message: "token missing department"}
	}

	return claims.Principal(), nil
}

// Close is a no-op kept for graceful shutdown; keyfunc v3 manages its own refresh goroutine.
func (v *JWTVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
