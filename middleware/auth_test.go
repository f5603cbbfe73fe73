package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuth("test-secret")
	user := &models.User{ID: 42, Role: models.RoleCaptain}

	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	claims, err := auth.ParseClaims(token)
	require.NoError(t, err)

	ctx := ContextWithClaims(context.Background(), claims)

	userID, err := GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)

	role, err := GetUserRoleFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCaptain, role)
}

func TestParseClaimsRejectsForgedToken(t *testing.T) {
	auth := NewAuth("test-secret")
	other := NewAuth("another-secret")

	token, err := other.GenerateToken(&models.User{ID: 1, Role: models.RoleVolunteer})
	require.NoError(t, err)

	_, err = auth.ParseClaims(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateRequiresBearerHeader(t *testing.T) {
	auth := NewAuth("test-secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"без заголовка", "", http.StatusUnauthorized},
		{"не Bearer", "Basic abc", http.StatusUnauthorized},
		{"мусорный токен", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			auth.Authenticate(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("валидный токен", func(t *testing.T) {
		token, err := auth.GenerateToken(&models.User{ID: 7, Role: models.RoleVolunteer})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		auth.Authenticate(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthorize(t *testing.T) {
	auth := NewAuth("test-secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Authenticate(Authorize(models.RoleAdmin)(next))

	t.Run("роль не подходит", func(t *testing.T) {
		token, err := auth.GenerateToken(&models.User{ID: 1, Role: models.RoleVolunteer})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("администратор проходит", func(t *testing.T) {
		token, err := auth.GenerateToken(&models.User{ID: 1, Role: models.RoleAdmin})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
