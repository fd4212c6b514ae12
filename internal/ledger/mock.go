package ledger

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/domain"
)

// Mock is the deterministic stand-in used when no live ledger is configured.
// Submit always yields pending with the placeholder reference; Query always
// reports the digest as found under the same placeholder.
type Mock struct {
	reason string
}

// NewMock creates a Mock. reason is reported in logs to explain why the live
// backend is not in use.
func NewMock(reason string) *Mock {
	return &Mock{reason: reason}
}

func (m *Mock) Submit(_ context.Context, digest string, entityType domain.EntityType, entityID string) domain.SubmitResult {
	log.Info().
		Str("mode", string(domain.LedgerModeMock)).
		Str("digest", NormalizeDigest(digest)).
		Str("entity_type", string(entityType)).
		Str("entity_id", entityID).
		Msg("ledger: mock submit, hash not anchored")

	return domain.SubmitResult{
		Outcome:  domain.AuditStatePending,
		TxRef:    PlaceholderTxRef,
		BlockRef: 0,
		Reason:   "mock",
	}
}

func (m *Mock) Query(_ context.Context, digest string) (domain.QueryResult, error) {
	log.Info().
		Str("mode", string(domain.LedgerModeMock)).
		Str("digest", NormalizeDigest(digest)).
		Msg("ledger: mock query, reporting placeholder anchor")

	return domain.QueryResult{
		Found:    true,
		TxRef:    PlaceholderTxRef,
		BlockRef: 0,
	}, nil
}

func (m *Mock) Status(_ context.Context) domain.LedgerStatus {
	return domain.LedgerStatus{
		Connected: false,
		Mode:      domain.LedgerModeMock,
		Readiness: domain.LedgerUninitialized,
	}
}

// Reason explains why the mock backend was selected.
func (m *Mock) Reason() string {
	return m.reason
}
