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
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/anchord/internal/anchoring"
	v1 "github.com/gosuda/anchord/internal/api/v1"
	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/ledger"
	"github.com/gosuda/anchord/internal/store/memory"
)

func anchorBody(entityID string) map[string]any {
	return map[string]any{
		"workspace_id": "ws-1",
		"entity_type":  "message",
		"entity_id":    entityID,
		"digest":       sampleDigest,
	}
}

func TestCreateAnchor(t *testing.T) {
	t.Parallel()

	t.Run("accepted_while_pending", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAnchorRoutes(api, &mockAnchorer{
			anchorAsyncFunc: func(_ context.Context, ws string, et domain.EntityType, id, digest string) (*domain.AuditRecord, error) {
				assert.Equal(t, "ws-1", ws)
				assert.Equal(t, domain.EntityMessage, et)
				assert.Equal(t, "msg-1", id)
				return domain.NewAuditRecord(ws, et, id, digest, time.Now())
			},
		})

		resp := api.Post("/anchors", anchorBody("msg-1"))
		require.Equal(t, http.StatusAccepted, resp.Code)

		var body domain.AuditRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEqual(t, uuid.Nil, body.ID)
		assert.Equal(t, domain.AuditStatePending, body.State)
		assert.Nil(t, body.AnchorTxRef)
	})

	t.Run("error_mapping", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			err  error
			want int
		}{
			{"validation", fmt.Errorf("anchor: %w", domain.ErrValidation), http.StatusBadRequest},
			{"duplicate_entity", fmt.Errorf("anchor: %w", domain.ErrConflict), http.StatusConflict},
			{"store_down", errors.New("db connection refused"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, api := humatest.New(t)
				v1.RegisterAnchorRoutes(api, &mockAnchorer{
					anchorAsyncFunc: func(context.Context, string, domain.EntityType, string, string) (*domain.AuditRecord, error) {
						return nil, tt.err
					},
				})

				resp := api.Post("/anchors", anchorBody("msg-1"))
				assert.Equal(t, tt.want, resp.Code)
			})
		}
	})

	t.Run("coordinator_end_to_end", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		pool := anchoring.NewPool(2)
		coord := anchoring.NewCoordinator(store.AuditRecords(), ledger.NewMock("test"), pool, nil, nil, time.Second)

		_, api := humatest.New(t)
		v1.RegisterAnchorRoutes(api, coord)

		first := api.Post("/anchors", anchorBody("msg-1"))
		require.Equal(t, http.StatusAccepted, first.Code)

		dup := api.Post("/anchors", anchorBody("msg-1"))
		assert.Equal(t, http.StatusConflict, dup.Code)

		bad := anchorBody("msg-2")
		bad["digest"] = "abc"
		assert.Equal(t, http.StatusBadRequest, api.Post("/anchors", bad).Code)

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()
		require.NoError(t, pool.Shutdown(ctx))

		rec, err := store.AuditRecords().FindByEntity(t.Context(), domain.EntityMessage, "msg-1")
		require.NoError(t, err)
		assert.Equal(t, domain.AuditStatePending, rec.State)
	})
}
