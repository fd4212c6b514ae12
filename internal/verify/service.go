// Package verify cross-checks local audit records against the external ledger.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/domain"
)

type Verdict string

const (
	VerdictAnchored          Verdict = "anchored"
	VerdictLocalBehind       Verdict = "local_behind"
	VerdictRemoteMissing     Verdict = "remote_missing"
	VerdictRemoteUnavailable Verdict = "remote_unavailable"
	// VerdictUnverifiable marks placeholder evidence from a mock ledger.
	VerdictUnverifiable Verdict = "unverifiable"
)

// Evidence is what the ledger reported for a digest.
type Evidence struct {
	Found    bool   `json:"found"`
	TxRef    string `json:"tx_ref,omitempty"`
	BlockRef uint64 `json:"block_ref,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result places the local record next to the remote evidence.
type Result struct {
	Digest   string              `json:"digest"`
	Verified bool                `json:"verified"`
	Verdict  Verdict             `json:"verdict,omitempty"`
	Mismatch bool                `json:"mismatch"`
	Local    *domain.AuditRecord `json:"local_record"`
	Anchor   *Evidence           `json:"anchor,omitempty"`
}

type Service struct {
	records     domain.AuditRecordRepository
	anchor      domain.AnchorClient
	placeholder string
}

// NewService creates a Service. placeholderRef is the tx ref a mock ledger
// reports; it is never compared against a local ref.
func NewService(records domain.AuditRecordRepository, anchor domain.AnchorClient, placeholderRef string) *Service {
	return &Service{records: records, anchor: anchor, placeholder: placeholderRef}
}

// Verify checks digest locally and then on the ledger. With no local record
// it returns a result with Verified false and an error wrapping
// domain.ErrNotFound, without contacting the ledger.
func (s *Service) Verify(ctx context.Context, digest string) (*Result, error) {
	normalized, err := domain.ParseDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("verify.Service.Verify: %w", err)
	}

	res := &Result{Digest: normalized}

	local, err := s.records.FindByDigest(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		return res, fmt.Errorf("verify.Service.Verify: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("verify.Service.Verify: %w", err)
	}
	res.Local = local

	remote, err := s.anchor.Query(ctx, normalized)
	if err != nil {
		log.Warn().Err(err).Str("digest", normalized).Msg("verify: ledger query failed")
		res.Verdict = VerdictRemoteUnavailable
		res.Anchor = &Evidence{Error: err.Error()}
		return res, nil
	}

	res.Verified = remote.Found
	res.Anchor = &Evidence{Found: remote.Found, TxRef: remote.TxRef, BlockRef: remote.BlockRef}
	res.Verdict = s.verdict(local, remote)
	res.Mismatch = s.mismatch(local, remote)

	return res, nil
}

func (s *Service) verdict(local *domain.AuditRecord, remote domain.QueryResult) Verdict {
	switch {
	case !remote.Found:
		return VerdictRemoteMissing
	case remote.TxRef == s.placeholder:
		return VerdictUnverifiable
	case local.State == domain.AuditStateConfirmed:
		return VerdictAnchored
	default:
		return VerdictLocalBehind
	}
}

// mismatch reports disagreement between the two sides: one side claims an
// anchor the other lacks, or both claim one under different transactions.
// Placeholder evidence from a mock ledger proves nothing either way.
func (s *Service) mismatch(local *domain.AuditRecord, remote domain.QueryResult) bool {
	if remote.Found && remote.TxRef == s.placeholder {
		return false
	}

	localConfirmed := local.State == domain.AuditStateConfirmed
	if localConfirmed != remote.Found {
		return true
	}
	if !localConfirmed || local.AnchorTxRef == nil || *local.AnchorTxRef == s.placeholder {
		return false
	}
	return !strings.EqualFold(*local.AnchorTxRef, remote.TxRef)
}
