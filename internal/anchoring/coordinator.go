// Package anchoring records content digests locally and anchors them on the
// external ledger in the background.
package anchoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/domain"
)

const DefaultSubmitTimeout = 5 * time.Minute

// Publisher delivers record lifecycle events to subscribers.
type Publisher interface {
	PublishAuditEvent(ctx context.Context, ev domain.AuditEvent) error
}

// Alerter notifies operators about records that will not be anchored.
type Alerter interface {
	Alert(ctx context.Context, alert domain.AnchorAlert) error
}

// Coordinator creates pending audit records and drives them to a terminal
// state through the anchor client. Publisher and alerter are optional.
type Coordinator struct {
	store         domain.AuditRecordRepository
	anchor        domain.AnchorClient
	pool          *Pool
	publisher     Publisher
	alerter       Alerter
	submitTimeout time.Duration
	now           func() time.Time

	// inflight holds records with a submission queued or running in the pool.
	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewCoordinator(
	store domain.AuditRecordRepository,
	anchor domain.AnchorClient,
	pool *Pool,
	publisher Publisher,
	alerter Alerter,
	submitTimeout time.Duration,
) *Coordinator {
	if submitTimeout <= 0 {
		submitTimeout = DefaultSubmitTimeout
	}
	return &Coordinator{
		store:         store,
		anchor:        anchor,
		pool:          pool,
		publisher:     publisher,
		alerter:       alerter,
		submitTimeout: submitTimeout,
		now:           time.Now,
		inflight:      make(map[uuid.UUID]struct{}),
	}
}

// AnchorAsync persists a pending record for the entity and schedules its
// submission. It returns once the record is stored; ledger I/O happens later.
func (c *Coordinator) AnchorAsync(ctx context.Context, workspaceID string, entityType domain.EntityType, entityID, digest string) (*domain.AuditRecord, error) {
	rec, err := domain.NewAuditRecord(workspaceID, entityType, entityID, digest, c.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("anchoring.Coordinator.AnchorAsync: %w", err)
	}

	if err := c.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("anchoring.Coordinator.AnchorAsync: %w", err)
	}

	log.Info().
		Str("record_id", rec.ID.String()).
		Str("workspace_id", rec.WorkspaceID).
		Str("entity_type", string(rec.EntityType)).
		Str("entity_id", rec.EntityID).
		Str("digest", rec.Digest).
		Msg("anchoring: record created")

	c.publish(ctx, domain.AuditRecordCreated, rec)

	if _, err := c.dispatch(rec.Clone(), nil); err != nil {
		log.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("anchoring: submission not scheduled, record left pending")
	}

	return rec, nil
}

// dispatch hands rec to the pool unless a submission for it is already in
// flight, in which case it returns false. finish, when non-nil, runs exactly
// once after the submission completes or is dropped by the pool; res is nil
// when dropped or when the submission panicked. finish is not called when
// dispatch returns an error.
func (c *Coordinator) dispatch(rec *domain.AuditRecord, finish func(res *domain.SubmitResult)) (bool, error) {
	c.mu.Lock()
	if _, busy := c.inflight[rec.ID]; busy {
		c.mu.Unlock()
		return false, nil
	}
	c.inflight[rec.ID] = struct{}{}
	c.mu.Unlock()

	err := c.pool.Go(func(ctx context.Context) {
		var res *domain.SubmitResult
		defer func() {
			c.release(rec.ID)
			if finish != nil {
				finish(res)
			}
		}()

		r := c.reconcile(ctx, rec)
		res = &r
	}, func() {
		c.release(rec.ID)
		log.Warn().Str("record_id", rec.ID.String()).Msg("anchoring: submission dropped on shutdown, record left pending")
		if finish != nil {
			finish(nil)
		}
	})
	if err != nil {
		c.release(rec.ID)
		return false, err
	}

	return true, nil
}

// InFlight reports whether a submission for id is queued or running.
func (c *Coordinator) InFlight(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

func (c *Coordinator) release(id uuid.UUID) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// reconcile submits rec once and applies the outcome.
func (c *Coordinator) reconcile(ctx context.Context, rec *domain.AuditRecord) domain.SubmitResult {
	submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	res := c.anchor.Submit(submitCtx, rec.Digest, rec.EntityType, rec.EntityID)

	switch res.Outcome {
	case domain.AuditStateConfirmed:
		c.transition(ctx, rec, domain.AuditStateConfirmed, res.Ref())
	case domain.AuditStateFailed:
		if updated, ok := c.transition(ctx, rec, domain.AuditStateFailed, nil); ok {
			c.alert(ctx, domain.AlertAnchorFailed, updated, res.Reason)
		}
	default:
		log.Warn().
			Err(res.Err).
			Str("record_id", rec.ID.String()).
			Str("digest", rec.Digest).
			Str("reason", res.Reason).
			Msg("anchoring: record left pending")
	}

	return res
}

// transition applies a terminal state. Store errors are logged, not returned:
// the record stays pending and the sweep may pick it up.
func (c *Coordinator) transition(ctx context.Context, rec *domain.AuditRecord, state domain.AuditState, ref *domain.AnchorRef) (*domain.AuditRecord, bool) {
	if err := c.store.UpdateState(ctx, rec.ID, state, ref); err != nil {
		log.Error().
			Err(err).
			Str("record_id", rec.ID.String()).
			Str("state", string(state)).
			Msg("anchoring: update state failed")
		return nil, false
	}

	updated, err := c.store.GetByID(ctx, rec.ID)
	if err != nil {
		log.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("anchoring: reload after update failed")
		updated = rec.Clone()
		updated.State = state
		if ref != nil {
			tx, block := ref.TxRef, ref.BlockRef
			updated.AnchorTxRef = &tx
			updated.AnchorBlockRef = &block
		}
	}

	log.Info().
		Str("record_id", rec.ID.String()).
		Str("digest", rec.Digest).
		Str("state", string(state)).
		Msg("anchoring: record updated")

	c.publish(ctx, domain.AuditRecordUpdated, updated)
	return updated, true
}

func (c *Coordinator) publish(ctx context.Context, typ domain.AuditEventType, rec *domain.AuditRecord) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishAuditEvent(ctx, domain.AuditEvent{Type: typ, Record: rec}); err != nil {
		log.Error().Err(err).Str("record_id", rec.ID.String()).Str("event", string(typ)).Msg("anchoring: publish failed")
	}
}

func (c *Coordinator) alert(ctx context.Context, kind domain.AlertKind, rec *domain.AuditRecord, reason string) {
	if c.alerter == nil {
		return
	}
	if err := c.alerter.Alert(ctx, domain.AnchorAlert{Kind: kind, Record: rec, Reason: reason}); err != nil {
		log.Error().Err(err).Str("record_id", rec.ID.String()).Str("alert", string(kind)).Msg("anchoring: alert failed")
	}
}
