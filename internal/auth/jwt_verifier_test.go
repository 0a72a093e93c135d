package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deptdocs/internal/domain"
)

func newTestVerifier(t *testing.T) (*JWTVerifier, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return NewJWTVerifierWithKeyfunc(kf, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, key *ecdsa.PrivateKey, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		DepartmentID: "2",
		Roles:        []string{"manager", " ", "member"},
	}
}

func TestVerifyTokenReturnsPrincipal(t *testing.T) {
	v, key := newTestVerifier(t)

	p, err := v.VerifyToken(sign(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "2", p.DepartmentID)
	assert.Equal(t, []string{"manager", "member"}, p.Roles)
}

func TestVerifyTokenRejectsBadTokens(t *testing.T) {
	v, key := newTestVerifier(t)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noSubject := validClaims()
	noSubject.Subject = ""
	noDept := validClaims()
	noDept.DepartmentID = ""
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", sign(t, key, expired)},
		{"no subject", sign(t, key, noSubject)},
		{"no department", sign(t, key, noDept)},
		{"no expiry", sign(t, key, noExpiry)},
		{"hmac algorithm", hmac},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyToken(tt.token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}
