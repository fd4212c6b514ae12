// Package memory is an in-process AuditRecordRepository for tests and
// development runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/anchord/internal/domain"
)

type entityKey struct {
	entityType domain.EntityType
	entityID   string
}

type entry struct {
	seq    uint64
	record *domain.AuditRecord
}

type AuditRecordRepo struct {
	mu       sync.RWMutex
	seq      uint64
	byID     map[uuid.UUID]*entry
	byEntity map[entityKey]uuid.UUID
	now      func() time.Time
}

func NewAuditRecordRepo() *AuditRecordRepo {
	return &AuditRecordRepo{
		byID:     make(map[uuid.UUID]*entry),
		byEntity: make(map[entityKey]uuid.UUID),
		now:      time.Now,
	}
}

var _ domain.AuditRecordRepository = (*AuditRecordRepo)(nil)

func (r *AuditRecordRepo) Create(_ context.Context, rec *domain.AuditRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("memory.Create: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[rec.ID]; ok {
		return fmt.Errorf("memory.Create: %w: id exists", domain.ErrConflict)
	}
	key := entityKey{rec.EntityType, rec.EntityID}
	if _, ok := r.byEntity[key]; ok {
		return fmt.Errorf("memory.Create: %w: entity already recorded", domain.ErrConflict)
	}

	r.seq++
	r.byID[rec.ID] = &entry{seq: r.seq, record: rec.Clone()}
	r.byEntity[key] = rec.ID

	return nil
}

func (r *AuditRecordRepo) UpdateState(_ context.Context, id uuid.UUID, state domain.AuditState, ref *domain.AnchorRef) error {
	if !domain.AuditStatePending.ValidTransition(state) {
		return fmt.Errorf("memory.UpdateState: %w: target %q", domain.ErrInvalidTransition, state)
	}
	if err := domain.ValidateRef(state, ref); err != nil {
		return fmt.Errorf("memory.UpdateState: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("memory.UpdateState: %w", domain.ErrNotFound)
	}
	if !e.record.State.ValidTransition(state) {
		return fmt.Errorf("memory.UpdateState: %w: record is %s", domain.ErrInvalidTransition, e.record.State)
	}

	e.record.State = state
	if ref != nil {
		tx, block := ref.TxRef, ref.BlockRef
		e.record.AnchorTxRef = &tx
		e.record.AnchorBlockRef = &block
	}
	if now := r.now(); now.After(e.record.CreatedAt) {
		e.record.UpdatedAt = now
	} else {
		e.record.UpdatedAt = e.record.CreatedAt
	}

	return nil
}

func (r *AuditRecordRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetByID: %w", domain.ErrNotFound)
	}
	return e.record.Clone(), nil
}

func (r *AuditRecordRepo) FindByDigest(_ context.Context, digest string) (*domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *entry
	for _, e := range r.byID {
		if e.record.Digest != digest {
			continue
		}
		if found == nil || older(e, found) {
			found = e
		}
	}
	if found == nil {
		return nil, fmt.Errorf("memory.FindByDigest: %w", domain.ErrNotFound)
	}
	return found.record.Clone(), nil
}

func (r *AuditRecordRepo) FindByEntity(_ context.Context, entityType domain.EntityType, entityID string) (*domain.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEntity[entityKey{entityType, entityID}]
	if !ok {
		return nil, fmt.Errorf("memory.FindByEntity: %w", domain.ErrNotFound)
	}
	return r.byID[id].record.Clone(), nil
}

func (r *AuditRecordRepo) ListByWorkspace(_ context.Context, workspaceID string, limit int) ([]*domain.AuditRecord, error) {
	return r.collect(domain.ClampListLimit(limit), true, func(rec *domain.AuditRecord) bool {
		return rec.WorkspaceID == workspaceID
	}), nil
}

func (r *AuditRecordRepo) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]*domain.AuditRecord, error) {
	return r.collect(limit, false, func(rec *domain.AuditRecord) bool {
		return rec.State == domain.AuditStatePending && rec.CreatedAt.Before(createdBefore)
	}), nil
}

// collect returns copies of matching records ordered by creation, newest
// first when desc is set. A non-positive limit returns every match.
func (r *AuditRecordRepo) collect(limit int, desc bool, match func(*domain.AuditRecord) bool) []*domain.AuditRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*entry, 0)
	for _, e := range r.byID {
		if match(e.record) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if desc {
			return older(matched[j], matched[i])
		}
		return older(matched[i], matched[j])
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*domain.AuditRecord, len(matched))
	for i, e := range matched {
		out[i] = e.record.Clone()
	}
	return out
}

func older(a, b *entry) bool {
	if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
		return a.record.CreatedAt.Before(b.record.CreatedAt)
	}
	return a.seq < b.seq
}
