package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/verify"
)

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	audits domain.AuditRecordRepository
}

func (m *mockDataStore) AuditRecords() domain.AuditRecordRepository { return m.audits }

// ---------------------------------------------------------------------------
// Mock AuditRecordRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	createFunc          func(ctx context.Context, r *domain.AuditRecord) error
	updateStateFunc     func(ctx context.Context, id uuid.UUID, state domain.AuditState, ref *domain.AnchorRef) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	findByDigestFunc    func(ctx context.Context, digest string) (*domain.AuditRecord, error)
	findByEntityFunc    func(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.AuditRecord, error)
	listByWorkspaceFunc func(ctx context.Context, workspaceID string, limit int) ([]*domain.AuditRecord, error)
	listPendingFunc     func(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.AuditRecord, error)
}

func (m *mockAuditRepo) Create(ctx context.Context, r *domain.AuditRecord) error {
	return m.createFunc(ctx, r)
}

func (m *mockAuditRepo) UpdateState(ctx context.Context, id uuid.UUID, state domain.AuditState, ref *domain.AnchorRef) error {
	return m.updateStateFunc(ctx, id, state, ref)
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockAuditRepo) FindByDigest(ctx context.Context, digest string) (*domain.AuditRecord, error) {
	return m.findByDigestFunc(ctx, digest)
}

func (m *mockAuditRepo) FindByEntity(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.AuditRecord, error) {
	return m.findByEntityFunc(ctx, entityType, entityID)
}

func (m *mockAuditRepo) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*domain.AuditRecord, error) {
	return m.listByWorkspaceFunc(ctx, workspaceID, limit)
}

func (m *mockAuditRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.AuditRecord, error) {
	return m.listPendingFunc(ctx, createdBefore, limit)
}

// ---------------------------------------------------------------------------
// Mock Verifier / Anchorer / LedgerReporter
// ---------------------------------------------------------------------------

type mockVerifier struct {
	verifyFunc func(ctx context.Context, digest string) (*verify.Result, error)
}

func (m *mockVerifier) Verify(ctx context.Context, digest string) (*verify.Result, error) {
	return m.verifyFunc(ctx, digest)
}

type mockAnchorer struct {
	anchorAsyncFunc func(ctx context.Context, workspaceID string, entityType domain.EntityType, entityID, digest string) (*domain.AuditRecord, error)
}

func (m *mockAnchorer) AnchorAsync(ctx context.Context, workspaceID string, entityType domain.EntityType, entityID, digest string) (*domain.AuditRecord, error) {
	return m.anchorAsyncFunc(ctx, workspaceID, entityType, entityID, digest)
}

type mockLedger struct {
	status domain.LedgerStatus
}

func (m *mockLedger) Status(context.Context) domain.LedgerStatus { return m.status }
