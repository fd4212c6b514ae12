package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/anchord/internal/domain"
)

type ListWorkspaceAuditInput struct {
	WorkspaceID string `path:"workspaceID" doc:"Workspace ID"`
	Limit       int    `query:"limit" default:"100" doc:"Max results, clamped to 1..100"`
}

type ListWorkspaceAuditOutput struct {
	Body []*domain.AuditRecord
}

type GetEntityAuditInput struct {
	EntityType string `path:"entityType" doc:"message or file"`
	EntityID   string `path:"entityID" doc:"Entity ID"`
}

type GetEntityAuditOutput struct {
	Body *domain.AuditRecord
}

func RegisterAuditRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workspace-audit",
		Method:      http.MethodGet,
		Path:        "/audit/workspace/{workspaceID}/audit",
		Summary:     "List the newest audit records of a workspace",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListWorkspaceAuditInput) (*ListWorkspaceAuditOutput, error) {
		records, err := store.AuditRecords().ListByWorkspace(ctx, input.WorkspaceID, domain.ClampListLimit(input.Limit))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit records", err)
		}
		if records == nil {
			records = []*domain.AuditRecord{}
		}

		return &ListWorkspaceAuditOutput{Body: records}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-entity-audit",
		Method:      http.MethodGet,
		Path:        "/audit/entity/{entityType}/{entityID}",
		Summary:     "Get the audit record of a message or file",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *GetEntityAuditInput) (*GetEntityAuditOutput, error) {
		entityType := domain.EntityType(input.EntityType)
		if !entityType.Valid() {
			return nil, huma.Error400BadRequest("unknown entity type: " + input.EntityType)
		}

		rec, err := store.AuditRecords().FindByEntity(ctx, entityType, input.EntityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("audit record not found")
			}
			return nil, huma.Error500InternalServerError("failed to get audit record", err)
		}

		return &GetEntityAuditOutput{Body: rec}, nil
	})
}
