package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/anchord/internal/auth"
	"github.com/gosuda/anchord/internal/server/middleware"
)

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

// contextHandler captures context values set by middleware.
type contextHandler struct {
	userID string
	role   string
	called bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.role, _ = middleware.RoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func setUser(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUserID, userID)
	return r.WithContext(ctx)
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestUserIDFromContext(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, "svc-1")
		got, ok := middleware.UserIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "svc-1", got)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()

		got, ok := middleware.UserIDFromContext(context.Background())
		assert.False(t, ok)
		assert.Empty(t, got)
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, 42)
		_, ok := middleware.UserIDFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestRoleFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), middleware.ContextKeyUserRole, "admin")
	got, ok := middleware.RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", got)

	_, ok = middleware.RoleFromContext(context.Background())
	assert.False(t, ok)
}

// ===========================================================================
// 2. RateLimit middleware
// ===========================================================================

func TestRateLimit_NoUserInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "svc-1"))
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "svc-1"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_IndependentPerUser(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "a"))
	require.Equal(t, http.StatusOK, recA.Code)

	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "a"))
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, setUser(httptest.NewRequest(http.MethodGet, "/", http.NoBody), "b"))
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	req := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
		r.RemoteAddr = addr
		return r
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req("10.0.0.1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req("10.0.0.2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ===========================================================================
// 3. Auth middleware
// ===========================================================================

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, "content-service", middleware.RoleService, 15*time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	handler := middleware.Auth(testJWTSecret)(capture)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, capture.called, "inner handler must be called")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content-service", capture.userID)
	assert.Equal(t, middleware.RoleService, capture.role)
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	expired, err := auth.IssueAccessToken(testJWTSecret, "u-1", "member", -1*time.Second)
	require.NoError(t, err)
	foreign, err := auth.IssueAccessToken("other-secret", "u-1", "member", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no credentials", header: ""},
		{name: "garbage token", header: "Bearer totally.invalid.token"},
		{name: "expired", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + foreign},
		{name: "bearer without token", header: "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.Auth(testJWTSecret)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "Unauthorized")
		})
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, "u-1", "member", 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "uppercase Bearer", authHeader: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "lowercase bearer", authHeader: "bearer " + token, wantStatus: http.StatusOK},
		{name: "mixed case BEARER", authHeader: "BEARER " + token, wantStatus: http.StatusOK},
		{name: "Basic scheme falls through to 401", authHeader: "Basic " + token, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.Auth(testJWTSecret)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", tt.authHeader)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
