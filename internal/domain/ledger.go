package domain

import "context"

type LedgerMode string

const (
	LedgerModeLive LedgerMode = "live"
	LedgerModeMock LedgerMode = "mock"
)

// LedgerReadiness tracks the anchor client lifecycle:
// uninitialized (mock only) -> configured (connected, read-only) -> ready (can sign).
type LedgerReadiness string

const (
	LedgerUninitialized LedgerReadiness = "uninitialized"
	LedgerConfigured    LedgerReadiness = "configured"
	LedgerReady         LedgerReadiness = "ready"
)

// SubmitResult is the outcome of one anchoring submission.
// Outcome pending means "try again later"; it is never an error for the caller.
type SubmitResult struct {
	Outcome  AuditState
	TxRef    string
	BlockRef uint64
	Reason   string // short machine-readable cause, e.g. "gas_estimation", "reverted", "mock"
	Err      error  // wraps ErrTransientAnchor or ErrPermanentAnchor when set
}

// Ref returns the anchor reference for a confirmed result, or nil.
func (r SubmitResult) Ref() *AnchorRef {
	if r.Outcome != AuditStateConfirmed {
		return nil
	}
	return &AnchorRef{TxRef: r.TxRef, BlockRef: r.BlockRef}
}

type QueryResult struct {
	Found    bool
	TxRef    string
	BlockRef uint64
}

type LedgerStatus struct {
	Connected bool            `json:"connected"`
	Network   string          `json:"network,omitempty"`
	Address   string          `json:"address,omitempty"`
	Mode      LedgerMode      `json:"mode"`
	Readiness LedgerReadiness `json:"readiness"`
}

// AnchorClient abstracts the external append-only ledger.
type AnchorClient interface {
	Submit(ctx context.Context, digest string, entityType EntityType, entityID string) SubmitResult
	Query(ctx context.Context, digest string) (QueryResult, error)
	Status(ctx context.Context) LedgerStatus
}
