package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/anchord/internal/api/v1"
	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/ledger"
	"github.com/gosuda/anchord/internal/store/memory"
	"github.com/gosuda/anchord/internal/verify"
)

var sampleDigest = strings.Repeat("a1", 32)

func TestVerifyDigest(t *testing.T) {
	t.Parallel()

	t.Run("anchored", func(t *testing.T) {
		t.Parallel()

		tx := "0xdead"
		block := uint64(42)
		_, api := humatest.New(t)
		v1.RegisterVerifyRoutes(api, &mockVerifier{
			verifyFunc: func(_ context.Context, digest string) (*verify.Result, error) {
				assert.Equal(t, sampleDigest, digest)
				return &verify.Result{
					Digest:   digest,
					Verified: true,
					Verdict:  verify.VerdictAnchored,
					Local: &domain.AuditRecord{
						Digest:         digest,
						State:          domain.AuditStateConfirmed,
						AnchorTxRef:    &tx,
						AnchorBlockRef: &block,
					},
					Anchor: &verify.Evidence{Found: true, TxRef: tx, BlockRef: block},
				}, nil
			},
		})

		resp := api.Get("/audit/verify/" + sampleDigest)
		require.Equal(t, http.StatusOK, resp.Code)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["verified"])
		assert.Equal(t, "anchored", body["verdict"])
		assert.Equal(t, false, body["mismatch"])
		local, ok := body["local_record"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "0xdead", local["anchor_tx_ref"])
		anchor, ok := body["anchor"].(map[string]any)
		require.True(t, ok)
		assert.InDelta(t, 42, anchor["block_ref"], 0)
	})

	t.Run("error_mapping", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			err  error
			want int
		}{
			{"malformed", fmt.Errorf("verify: %w", domain.ErrValidation), http.StatusBadRequest},
			{"no_local_record", fmt.Errorf("verify: %w", domain.ErrNotFound), http.StatusNotFound},
			{"store_down", errors.New("db connection refused"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, api := humatest.New(t)
				v1.RegisterVerifyRoutes(api, &mockVerifier{
					verifyFunc: func(context.Context, string) (*verify.Result, error) {
						return nil, tt.err
					},
				})

				resp := api.Get("/audit/verify/" + sampleDigest)
				assert.Equal(t, tt.want, resp.Code)
			})
		}
	})

	t.Run("real_service_against_mock_ledger", func(t *testing.T) {
		t.Parallel()

		store := memory.New()
		rec, err := domain.NewAuditRecord("ws-1", domain.EntityMessage, "msg-1", sampleDigest, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.AuditRecords().Create(t.Context(), rec))

		_, api := humatest.New(t)
		v1.RegisterVerifyRoutes(api, verify.NewService(store.AuditRecords(), ledger.NewMock("test"), ledger.PlaceholderTxRef))

		resp := api.Get("/audit/verify/" + strings.ToUpper(sampleDigest))
		require.Equal(t, http.StatusOK, resp.Code)

		var body verify.Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Verified)
		assert.Equal(t, verify.VerdictUnverifiable, body.Verdict)
		assert.False(t, body.Mismatch)
		require.NotNil(t, body.Local)
		assert.Equal(t, rec.ID, body.Local.ID)

		missing := api.Get("/audit/verify/" + strings.Repeat("b2", 32))
		assert.Equal(t, http.StatusNotFound, missing.Code)

		bad := api.Get("/audit/verify/not-a-digest")
		assert.Equal(t, http.StatusBadRequest, bad.Code)
	})
}
