package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWT(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	tokenString, err := GenerateJWT(42, "doctor", time.Hour)
	require.NoError(t, err)

	claims := &ClinicClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "doctor", claims.Role)
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserIDFromContext(r)
		require.NoError(t, err)
		role, err := GetRoleFromContext(r)
		require.NoError(t, err)

		assert.Equal(t, uint(42), userID)
		assert.Equal(t, "patient", role)
		w.WriteHeader(http.StatusOK)
	})

	tokenString, err := GenerateJWT(42, "patient", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	AuthMiddleware(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()

		AuthMiddleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		AuthMiddleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString, err := GenerateJWT(42, "patient", -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()

		AuthMiddleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
