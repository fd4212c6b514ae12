package v1

import (
	"context"

	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/verify"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store and *memory.Store satisfy this interface.
type DataStore interface {
	AuditRecords() domain.AuditRecordRepository
}

// Verifier cross-checks a digest against local records and the ledger.
// *verify.Service satisfies this interface.
type Verifier interface {
	Verify(ctx context.Context, digest string) (*verify.Result, error)
}

// Anchorer records a digest and schedules its anchoring.
// *anchoring.Coordinator satisfies this interface.
type Anchorer interface {
	AnchorAsync(ctx context.Context, workspaceID string, entityType domain.EntityType, entityID, digest string) (*domain.AuditRecord, error)
}

// LedgerReporter reports anchor client connectivity.
// *ledger.Client satisfies this interface.
type LedgerReporter interface {
	Status(ctx context.Context) domain.LedgerStatus
}
