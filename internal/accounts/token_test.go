// internal/accounts/token_test.go
package accounts

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	profile := &Profile{ID: uuid.New(), Email: "reader@example.com", IsAdmin: true}

	token, err := issuer.Issue(profile)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, profile.Email, claims.Email)
	assert.True(t, claims.Admin)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, profile.ID, userID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	other := NewTokenIssuer([]byte("other-secret"), time.Hour)

	token, err := issuer.Issue(&Profile{ID: uuid.New(), Email: "reader@example.com"})
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), -time.Minute)

	token, err := issuer.Issue(&Profile{ID: uuid.New(), Email: "reader@example.com"})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAuth(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	var gotClaims *Claims

	handler := issuer.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
	}))

	// No header at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token attaches claims.
	token, err := issuer.Issue(&Profile{ID: uuid.New(), Email: "reader@example.com"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "reader@example.com", gotClaims.Email)
}

func TestRequireAdmin(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	handler := issuer.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	customer, err := issuer.Issue(&Profile{ID: uuid.New(), Email: "reader@example.com"})
	require.NoError(t, err)
	admin, err := issuer.Issue(&Profile{ID: uuid.New(), Email: "staff@example.com", IsAdmin: true})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
