package memory

import (
	"context"

	"github.com/gosuda/anchord/internal/domain"
)

// Store exposes the same accessor surface as postgres.Store so the service
// can run without a database.
type Store struct {
	audits *AuditRecordRepo
}

func New() *Store {
	return &Store{audits: NewAuditRecordRepo()}
}

func (s *Store) AuditRecords() domain.AuditRecordRepository { return s.audits }

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}
