package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(userID string) Claims {
	return Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestIdentityFromCookie(t *testing.T) {
	accessor := NewJWTAccessor(testSecret, "")
	req := httptest.NewRequest(http.MethodGet, "/v1/perfil", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("30123456"))})

	dni, err := accessor.Identity(req)
	require.NoError(t, err)
	assert.Equal(t, "30123456", dni)
}

func TestIdentityFromBearer(t *testing.T) {
	accessor := NewJWTAccessor(testSecret, "portal")
	req := httptest.NewRequest(http.MethodGet, "/v1/perfil", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("27999888")))

	dni, err := accessor.Identity(req)
	require.NoError(t, err)
	assert.Equal(t, "27999888", dni)
}

func TestCookieTakesPrecedence(t *testing.T) {
	accessor := NewJWTAccessor(testSecret, "")
	req := httptest.NewRequest(http.MethodGet, "/v1/perfil", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("11111111"))})
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("22222222")))

	dni, err := accessor.Identity(req)
	require.NoError(t, err)
	assert.Equal(t, "11111111", dni)
}

func TestIdentityRejected(t *testing.T) {
	expired := validClaims("30123456")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("30123456")
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"sin sesión", ""},
		{"basura", "no-es-un-jwt"},
		{"otro secreto", sign(t, jwt.SigningMethodHS256, []byte("otro"), validClaims("30123456"))},
		{"otro algoritmo", sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("30123456"))},
		{"vencido", sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"sin vencimiento", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"sin userId", sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("  "))},
	}

	accessor := NewJWTAccessor(testSecret, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/perfil", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: tt.token})
			}

			dni, err := accessor.Identity(req)
			assert.ErrorIs(t, err, ErrNoSession)
			assert.Empty(t, dni)
		})
	}
}

func TestIgnoresClientSuppliedIdentity(t *testing.T) {
	accessor := NewJWTAccessor(testSecret, "")
	req := httptest.NewRequest(http.MethodGet, "/v1/perfil?dni=30123456", nil)
	req.Header.Set("X-User-Dni", "30123456")

	_, err := accessor.Identity(req)
	assert.ErrorIs(t, err, ErrNoSession)
}
