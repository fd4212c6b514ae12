package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/anchord/internal/domain"
)

const uniqueViolation = "23505"

const auditColumns = `id, workspace_id, entity_type, entity_id, digest, anchor_tx_ref, anchor_block_ref, state, created_at, updated_at`

type AuditRecordRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRecordRepo(pool *pgxpool.Pool) *AuditRecordRepo {
	return &AuditRecordRepo{pool: pool}
}

func (r *AuditRecordRepo) Create(ctx context.Context, rec *domain.AuditRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("auditRecordRepo.Create: %w", err)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_records (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.WorkspaceID, rec.EntityType, rec.EntityID, rec.Digest,
		rec.AnchorTxRef, blockToDB(rec.AnchorBlockRef),
		rec.State, rec.CreatedAt, rec.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("auditRecordRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("auditRecordRepo.Create: %w", err)
	}

	return nil
}

// UpdateState moves a pending record to a terminal state. The state guard in
// the WHERE clause makes concurrent updates race-free: only one can win.
func (r *AuditRecordRepo) UpdateState(ctx context.Context, id uuid.UUID, state domain.AuditState, ref *domain.AnchorRef) error {
	if !domain.AuditStatePending.ValidTransition(state) {
		return fmt.Errorf("auditRecordRepo.UpdateState: %w: target %q", domain.ErrInvalidTransition, state)
	}
	if err := domain.ValidateRef(state, ref); err != nil {
		return fmt.Errorf("auditRecordRepo.UpdateState: %w", err)
	}

	var txRef *string
	var blockRef *int64
	if ref != nil {
		txRef = &ref.TxRef
		b := int64(ref.BlockRef) //nolint:gosec // block heights fit in int64
		blockRef = &b
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE audit_records
		 SET state = $1, anchor_tx_ref = $2, anchor_block_ref = $3, updated_at = GREATEST(now(), created_at)
		 WHERE id = $4 AND state = 'pending'`,
		state, txRef, blockRef, id,
	)
	if err != nil {
		return fmt.Errorf("auditRecordRepo.UpdateState: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM audit_records WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("auditRecordRepo.UpdateState: %w", err)
	}
	if !exists {
		return fmt.Errorf("auditRecordRepo.UpdateState: %w", domain.ErrNotFound)
	}

	return fmt.Errorf("auditRecordRepo.UpdateState: %w: record is terminal", domain.ErrInvalidTransition)
}

func (r *AuditRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_records WHERE id = $1`,
		id,
	)
	return scanOne(row, "auditRecordRepo.GetByID")
}

func (r *AuditRecordRepo) FindByDigest(ctx context.Context, digest string) (*domain.AuditRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_records
		 WHERE digest = $1
		 ORDER BY created_at, seq
		 LIMIT 1`,
		digest,
	)
	return scanOne(row, "auditRecordRepo.FindByDigest")
}

func (r *AuditRecordRepo) FindByEntity(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.AuditRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_records
		 WHERE entity_id = $1 AND entity_type = $2`,
		entityID, entityType,
	)
	return scanOne(row, "auditRecordRepo.FindByEntity")
}

func (r *AuditRecordRepo) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_records
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2`,
		workspaceID, domain.ClampListLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("auditRecordRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	return scanMany(rows, "auditRecordRepo.ListByWorkspace")
}

func (r *AuditRecordRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_records
		 WHERE state = 'pending' AND created_at < $1
		 ORDER BY created_at, seq
		 LIMIT $2`,
		createdBefore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRecordRepo.ListPending: %w", err)
	}
	defer rows.Close()

	return scanMany(rows, "auditRecordRepo.ListPending")
}

func scanOne(row pgx.Row, caller string) (*domain.AuditRecord, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}
	return rec, nil
}

func scanMany(rows pgx.Rows, caller string) ([]*domain.AuditRecord, error) {
	records := []*domain.AuditRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var blockRef *int64

	err := row.Scan(
		&rec.ID, &rec.WorkspaceID, &rec.EntityType, &rec.EntityID, &rec.Digest,
		&rec.AnchorTxRef, &blockRef, &rec.State, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if blockRef != nil {
		b := uint64(*blockRef) //nolint:gosec // stored from uint64
		rec.AnchorBlockRef = &b
	}

	return &rec, nil
}

func blockToDB(b *uint64) *int64 {
	if b == nil {
		return nil
	}
	v := int64(*b) //nolint:gosec // block heights fit in int64
	return &v
}
