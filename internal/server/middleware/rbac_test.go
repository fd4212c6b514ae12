package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/anchord/internal/server/middleware"
)

// setRole injects a role into the request context using the same context key
// that the Auth middleware uses.
func setRole(r *http.Request, role string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUserRole, role)
	return r.WithContext(ctx)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireRole(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleMember)(okHandler)

	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "admin passes", role: middleware.RoleAdmin, wantStatus: http.StatusOK},
		{name: "member passes", role: middleware.RoleMember, wantStatus: http.StatusOK},
		{name: "viewer blocked", role: middleware.RoleViewer, wantStatus: http.StatusForbidden},
		{name: "service blocked", role: middleware.RoleService, wantStatus: http.StatusForbidden},
		{name: "empty role is unauthenticated", role: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := setRole(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tt.role)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireIngest(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireIngest()(okHandler)

	for role, want := range map[string]int{
		middleware.RoleService: http.StatusOK,
		middleware.RoleAdmin:   http.StatusOK,
		middleware.RoleMember:  http.StatusForbidden,
		middleware.RoleViewer:  http.StatusForbidden,
	} {
		req := setRole(httptest.NewRequest(http.MethodPost, "/", http.NoBody), role)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Code, role)
	}
}

func TestRequireRole_NoUserInContext_Returns401(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireRole(middleware.RoleAdmin)(okHandler)

	// Request without any role in context (Auth middleware not applied).
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "authentication required")
}

func TestRequireRole_Forbidden_Body(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireRole(middleware.RoleAdmin)(okHandler)
	req := setRole(httptest.NewRequest(http.MethodGet, "/", http.NoBody), middleware.RoleMember)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient permissions")
}
