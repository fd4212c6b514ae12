package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/anchord/internal/domain"
)

type GetLedgerStatusOutput struct {
	Body domain.LedgerStatus
}

func RegisterStatusRoutes(api huma.API, ledger LedgerReporter) {
	huma.Register(api, huma.Operation{
		OperationID: "get-ledger-status",
		Method:      http.MethodGet,
		Path:        "/audit/status",
		Summary:     "Report anchor ledger connectivity",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, _ *struct{}) (*GetLedgerStatusOutput, error) {
		return &GetLedgerStatusOutput{Body: ledger.Status(ctx)}, nil
	})
}
