package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/verify"
)

type VerifyDigestInput struct {
	Digest string `path:"digest" doc:"SHA-256 digest as 64 hex characters"`
}

type VerifyDigestOutput struct {
	Body *verify.Result
}

func RegisterVerifyRoutes(api huma.API, verifier Verifier) {
	huma.Register(api, huma.Operation{
		OperationID: "verify-digest",
		Method:      http.MethodGet,
		Path:        "/audit/verify/{digest}",
		Summary:     "Verify a digest against the audit trail and the ledger",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *VerifyDigestInput) (*VerifyDigestOutput, error) {
		res, err := verifier.Verify(ctx, input.Digest)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrValidation):
				return nil, huma.Error400BadRequest("digest must be 64 hex characters")
			case errors.Is(err, domain.ErrNotFound):
				return nil, huma.Error404NotFound("no audit record for digest")
			}
			return nil, huma.Error500InternalServerError("failed to verify digest", err)
		}

		return &VerifyDigestOutput{Body: res}, nil
	})
}
