package anchoring

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/store/memory"
)

type mockAnchor struct {
	mu      sync.Mutex
	submits []string

	submitFn func(ctx context.Context, digest string, entityType domain.EntityType, entityID string) domain.SubmitResult
}

func (m *mockAnchor) Submit(ctx context.Context, digest string, entityType domain.EntityType, entityID string) domain.SubmitResult {
	m.mu.Lock()
	m.submits = append(m.submits, digest)
	m.mu.Unlock()
	if m.submitFn != nil {
		return m.submitFn(ctx, digest, entityType, entityID)
	}
	return domain.SubmitResult{Outcome: domain.AuditStatePending, Reason: "mock"}
}

func (m *mockAnchor) Query(context.Context, string) (domain.QueryResult, error) {
	return domain.QueryResult{}, nil
}

func (m *mockAnchor) Status(context.Context) domain.LedgerStatus {
	return domain.LedgerStatus{}
}

func (m *mockAnchor) submitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submits)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (m *mockPublisher) PublishAuditEvent(_ context.Context, ev domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, domain.AuditEvent{Type: ev.Type, Record: ev.Record.Clone()})
	return m.err
}

func (m *mockPublisher) types() []domain.AuditEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEventType, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

type mockAlerter struct {
	mu     sync.Mutex
	alerts []domain.AnchorAlert
}

func (m *mockAlerter) Alert(_ context.Context, alert domain.AnchorAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockAlerter) list() []domain.AnchorAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AnchorAlert(nil), m.alerts...)
}

// failingStore wraps the memory repo and lets tests break UpdateState.
type failingStore struct {
	*memory.AuditRecordRepo

	updateStateFn func(ctx context.Context, id uuid.UUID, state domain.AuditState, ref *domain.AnchorRef) error
}

func (f *failingStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.AuditState, ref *domain.AnchorRef) error {
	if f.updateStateFn != nil {
		return f.updateStateFn(ctx, id, state, ref)
	}
	return f.AuditRecordRepo.UpdateState(ctx, id, state, ref)
}
