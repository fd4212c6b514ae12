package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/anchord/internal/domain"
)

type CreateAnchorInput struct {
	Body struct {
		WorkspaceID string `json:"workspace_id" doc:"Workspace the entity belongs to"`
		EntityType  string `json:"entity_type" doc:"message or file"`
		EntityID    string `json:"entity_id" doc:"Message or file ID"`
		Digest      string `json:"digest" doc:"SHA-256 digest as 64 hex characters"`
	}
}

type CreateAnchorOutput struct {
	Body *domain.AuditRecord
}

// RegisterAnchorRoutes exposes the ingestion endpoint used by the content
// service. The record is returned while still pending.
func RegisterAnchorRoutes(api huma.API, anchorer Anchorer) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-anchor",
		Method:        http.MethodPost,
		Path:          "/anchors",
		Summary:       "Record a digest and schedule anchoring",
		Tags:          []string{"Anchors"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *CreateAnchorInput) (*CreateAnchorOutput, error) {
		rec, err := anchorer.AnchorAsync(ctx,
			input.Body.WorkspaceID,
			domain.EntityType(input.Body.EntityType),
			input.Body.EntityID,
			input.Body.Digest,
		)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrValidation):
				return nil, huma.Error400BadRequest("invalid anchor request", err)
			case errors.Is(err, domain.ErrConflict):
				return nil, huma.Error409Conflict("entity already has an audit record")
			}
			return nil, huma.Error500InternalServerError("failed to record anchor", err)
		}

		return &CreateAnchorOutput{Body: rec}, nil
	})
}
