package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/anchord/internal/api/v1"
	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/store/memory"
)

func TestListWorkspaceAudit(t *testing.T) {
	t.Parallel()

	t.Run("newest_hundred_of_many", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		base := time.Now().Add(-time.Hour).UTC()
		for i := range 150 {
			rec, err := domain.NewAuditRecord("ws-1", domain.EntityMessage, fmt.Sprintf("msg-%d", i), sampleDigest, base.Add(time.Duration(i)*time.Second))
			require.NoError(t, err)
			require.NoError(t, store.AuditRecords().Create(t.Context(), rec))
		}

		_, api := humatest.New(t)
		v1.RegisterAuditRoutes(api, store)

		resp := api.Get("/audit/workspace/ws-1/audit?limit=500")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []*domain.AuditRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 100)
		assert.Equal(t, "msg-149", body[0].EntityID)
		assert.Equal(t, "msg-50", body[99].EntityID)
	})

	t.Run("limit_is_clamped_before_the_store", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			query string
			want  int
		}{
			{"", 100},
			{"?limit=0", 100},
			{"?limit=7", 7},
			{"?limit=1000", 100},
		}
		for _, tt := range tests {
			_, api := humatest.New(t)
			store := &mockDataStore{audits: &mockAuditRepo{
				listByWorkspaceFunc: func(_ context.Context, ws string, limit int) ([]*domain.AuditRecord, error) {
					assert.Equal(t, "ws-9", ws)
					assert.Equal(t, tt.want, limit, tt.query)
					return nil, nil
				},
			}}
			v1.RegisterAuditRoutes(api, store)

			resp := api.Get("/audit/workspace/ws-9/audit" + tt.query)
			require.Equal(t, http.StatusOK, resp.Code)
			assert.JSONEq(t, "[]", resp.Body.String())
		}
	})

	t.Run("store_error", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAuditRoutes(api, &mockDataStore{audits: &mockAuditRepo{
			listByWorkspaceFunc: func(context.Context, string, int) ([]*domain.AuditRecord, error) {
				return nil, errors.New("db connection refused")
			},
		}})

		resp := api.Get("/audit/workspace/ws-1/audit")
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestGetEntityAudit(t *testing.T) {
	t.Parallel()

	store := memory.New()
	rec, err := domain.NewAuditRecord("ws-1", domain.EntityFile, "file-7", sampleDigest, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.AuditRecords().Create(t.Context(), rec))

	_, api := humatest.New(t)
	v1.RegisterAuditRoutes(api, store)

	t.Run("found", func(t *testing.T) {
		resp := api.Get("/audit/entity/file/file-7")
		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.AuditRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, rec.ID, body.ID)
		assert.Equal(t, domain.AuditStatePending, body.State)
	})

	t.Run("wrong_type_is_not_found", func(t *testing.T) {
		resp := api.Get("/audit/entity/message/file-7")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("unknown_type", func(t *testing.T) {
		resp := api.Get("/audit/entity/video/file-7")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
