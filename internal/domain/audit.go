package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityMessage EntityType = "message"
	EntityFile    EntityType = "file"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t == EntityMessage || t == EntityFile
}

type AuditState string

const (
	AuditStatePending   AuditState = "pending"
	AuditStateConfirmed AuditState = "confirmed"
	AuditStateFailed    AuditState = "failed"
)

// ValidTransition checks if an audit state transition is allowed.
// Allowed: pending->confirmed, pending->failed. Confirmed and failed are terminal.
func (s AuditState) ValidTransition(to AuditState) bool {
	if s != AuditStatePending {
		return false
	}
	return to == AuditStateConfirmed || to == AuditStateFailed
}

// Terminal reports whether no further transition can leave s.
func (s AuditState) Terminal() bool {
	return s == AuditStateConfirmed || s == AuditStateFailed
}

// AnchorRef locates a confirmed anchor on the external ledger.
type AnchorRef struct {
	TxRef    string
	BlockRef uint64
}

// AuditRecord is the local claim that a digest was submitted for anchoring.
// AnchorTxRef and AnchorBlockRef are non-nil iff State is confirmed.
type AuditRecord struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    string     `json:"workspace_id"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	Digest         string     `json:"digest"`
	AnchorTxRef    *string    `json:"anchor_tx_ref,omitempty"`
	AnchorBlockRef *uint64    `json:"anchor_block_ref,omitempty"`
	State          AuditState `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewAuditRecord builds a pending record for a content-creation event.
func NewAuditRecord(workspaceID string, entityType EntityType, entityID, digest string, now time.Time) (*AuditRecord, error) {
	normalized, err := ParseDigest(digest)
	if err != nil {
		return nil, err
	}

	r := &AuditRecord{
		ID:          uuid.New(),
		WorkspaceID: strings.TrimSpace(workspaceID),
		EntityType:  entityType,
		EntityID:    strings.TrimSpace(entityID),
		Digest:      normalized,
		State:       AuditStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks required fields and the ref/state invariant.
func (r *AuditRecord) Validate() error {
	switch {
	case r.ID == uuid.Nil:
		return fmt.Errorf("%w: id is required", ErrValidation)
	case r.WorkspaceID == "":
		return fmt.Errorf("%w: workspace_id is required", ErrValidation)
	case !r.EntityType.Valid():
		return fmt.Errorf("%w: unknown entity_type %q", ErrValidation, r.EntityType)
	case r.EntityID == "":
		return fmt.Errorf("%w: entity_id is required", ErrValidation)
	}
	if _, err := ParseDigest(r.Digest); err != nil {
		return err
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("%w: updated_at precedes created_at", ErrValidation)
	}
	return ValidateRef(r.State, r.refOrNil())
}

// Ref returns the anchor reference of a confirmed record, or nil.
func (r *AuditRecord) Ref() *AnchorRef {
	return r.refOrNil()
}

func (r *AuditRecord) refOrNil() *AnchorRef {
	if r.AnchorTxRef == nil || r.AnchorBlockRef == nil {
		if r.AnchorTxRef == nil && r.AnchorBlockRef == nil {
			return nil
		}
		// Half-set refs are reported as an empty ref so ValidateRef rejects them.
		return &AnchorRef{}
	}
	return &AnchorRef{TxRef: *r.AnchorTxRef, BlockRef: *r.AnchorBlockRef}
}

// ValidateRef enforces that a ref accompanies confirmed state and nothing else.
func ValidateRef(state AuditState, ref *AnchorRef) error {
	switch state {
	case AuditStateConfirmed:
		if ref == nil || ref.TxRef == "" {
			return fmt.Errorf("%w: confirmed state requires an anchor ref", ErrValidation)
		}
	case AuditStatePending, AuditStateFailed:
		if ref != nil {
			return fmt.Errorf("%w: %s state must not carry an anchor ref", ErrValidation, state)
		}
	default:
		return fmt.Errorf("%w: unknown state %q", ErrValidation, state)
	}
	return nil
}

// Clone returns a deep copy so callers never share ref pointers.
func (r *AuditRecord) Clone() *AuditRecord {
	c := *r
	if r.AnchorTxRef != nil {
		tx := *r.AnchorTxRef
		c.AnchorTxRef = &tx
	}
	if r.AnchorBlockRef != nil {
		b := *r.AnchorBlockRef
		c.AnchorBlockRef = &b
	}
	return &c
}

// MaxAuditListLimit bounds workspace listings.
const MaxAuditListLimit = 100

// ClampListLimit maps non-positive or oversized limits onto MaxAuditListLimit.
func ClampListLimit(limit int) int {
	if limit <= 0 || limit > MaxAuditListLimit {
		return MaxAuditListLimit
	}
	return limit
}

type AuditRecordRepository interface {
	Create(ctx context.Context, r *AuditRecord) error
	UpdateState(ctx context.Context, id uuid.UUID, state AuditState, ref *AnchorRef) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuditRecord, error)
	FindByDigest(ctx context.Context, digest string) (*AuditRecord, error)
	FindByEntity(ctx context.Context, entityType EntityType, entityID string) (*AuditRecord, error)
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*AuditRecord, error)
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*AuditRecord, error)
}
