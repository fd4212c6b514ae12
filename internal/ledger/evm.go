package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/domain"
)

// chainReader is the subset of ethclient.Client the backend calls directly.
type chainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type transactFunc func(opts *bind.TransactOpts, method string, params ...any) (*types.Transaction, error)

type waitMinedFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// EVM anchors digests through a contract on an EVM-compatible chain.
// Without a signing key it is read-only: Query is live, Submit is skipped.
type EVM struct {
	chain         chainReader
	contract      common.Address
	abi           abi.ABI
	eventID       common.Hash
	key           *ecdsa.PrivateKey
	signer        common.Address
	startBlock    uint64
	gasMultiplier uint64

	transact  transactFunc
	waitMined waitMinedFunc

	mu      sync.Mutex
	chainID *big.Int
}

func newEVM(chain chainReader, contract common.Address, key *ecdsa.PrivateKey, startBlock, gasMultiplier uint64) (*EVM, error) {
	parsed, err := abi.JSON(strings.NewReader(auditContractABI))
	if err != nil {
		return nil, fmt.Errorf("ledger.newEVM: parse abi: %w", err)
	}

	if gasMultiplier == 0 {
		gasMultiplier = 2
	}

	e := &EVM{
		chain:         chain,
		contract:      contract,
		abi:           parsed,
		eventID:       parsed.Events[hashStoredEvent].ID,
		key:           key,
		startBlock:    startBlock,
		gasMultiplier: gasMultiplier,
	}
	if key != nil {
		e.signer = crypto.PubkeyToAddress(key.PublicKey)
	}

	return e, nil
}

// Submit stores the digest on chain and waits for inclusion.
func (e *EVM) Submit(ctx context.Context, digest string, entityType domain.EntityType, entityID string) domain.SubmitResult {
	if e.key == nil {
		log.Warn().Str("digest", NormalizeDigest(digest)).Msg("ledger: no signing key configured, submission skipped")
		return domain.SubmitResult{
			Outcome:  domain.AuditStatePending,
			TxRef:    PlaceholderTxRef,
			BlockRef: 0,
			Reason:   "read_only",
		}
	}

	word, err := digestWord(digest)
	if err != nil {
		return failed("invalid_digest", err)
	}

	data, err := e.abi.Pack(storeHashMethod, word, string(entityType), entityID)
	if err != nil {
		return failed("encode", err)
	}

	gas, err := e.chain.EstimateGas(ctx, ethereum.CallMsg{
		From: e.signer,
		To:   &e.contract,
		Data: data,
	})
	if err != nil {
		return pending("gas_estimation", err)
	}

	chainID, err := e.resolveChainID(ctx)
	if err != nil {
		return pending("network", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(e.key, chainID)
	if err != nil {
		return failed("signer", err)
	}
	opts.Context = ctx
	opts.GasLimit = gas * e.gasMultiplier

	log.Debug().Uint64("estimate", gas).Uint64("gas_limit", opts.GasLimit).Msg("ledger: gas estimated")

	tx, err := e.transact(opts, storeHashMethod, word, string(entityType), entityID)
	if err != nil {
		return classify("send", err)
	}

	log.Info().Str("tx", tx.Hash().Hex()).Str("entity_id", entityID).Msg("ledger: transaction sent")

	receipt, err := e.waitMined(ctx, tx)
	if err != nil {
		return classify("confirmation", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return failed("reverted", fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	log.Info().Str("tx", tx.Hash().Hex()).Uint64("block", block).Msg("ledger: transaction confirmed")

	return domain.SubmitResult{
		Outcome:  domain.AuditStateConfirmed,
		TxRef:    tx.Hash().Hex(),
		BlockRef: block,
	}
}

// Query looks up HashStored events for the digest and returns the first match.
func (e *EVM) Query(ctx context.Context, digest string) (domain.QueryResult, error) {
	word, err := digestWord(digest)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("ledger.EVM.Query: %w", err)
	}

	logs, err := e.chain.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(e.startBlock),
		Addresses: []common.Address{e.contract},
		Topics:    [][]common.Hash{{e.eventID}, {common.Hash(word)}},
	})
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("ledger.EVM.Query: %w", err)
	}

	for _, l := range logs {
		if l.Removed {
			continue
		}
		return domain.QueryResult{
			Found:    true,
			TxRef:    l.TxHash.Hex(),
			BlockRef: l.BlockNumber,
		}, nil
	}

	return domain.QueryResult{Found: false}, nil
}

func (e *EVM) Status(ctx context.Context) domain.LedgerStatus {
	st := domain.LedgerStatus{
		Mode:      domain.LedgerModeLive,
		Readiness: domain.LedgerConfigured,
	}
	if e.key != nil {
		st.Readiness = domain.LedgerReady
	}

	chainID, err := e.resolveChainID(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("ledger: status check failed")
		return st
	}

	st.Connected = true
	st.Network = networkName(chainID)
	if e.key != nil {
		st.Address = e.signer.Hex()
	}

	return st
}

// resolveChainID caches the chain ID after the first successful lookup so an
// unreachable node at startup does not pin the backend offline.
func (e *EVM) resolveChainID(ctx context.Context) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.chainID != nil {
		return e.chainID, nil
	}

	id, err := e.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger.EVM.resolveChainID: %w", err)
	}
	e.chainID = id

	return id, nil
}

func networkName(chainID *big.Int) string {
	if chainID.IsUint64() {
		if name, ok := networkNames[chainID.Uint64()]; ok {
			return name
		}
	}
	return "chain-" + chainID.String()
}

func pending(reason string, err error) domain.SubmitResult {
	log.Warn().Err(err).Str("reason", reason).Msg("ledger: transient submission failure")
	return domain.SubmitResult{
		Outcome: domain.AuditStatePending,
		Reason:  reason,
		Err:     fmt.Errorf("%w: %s: %w", domain.ErrTransientAnchor, reason, err),
	}
}

func failed(reason string, err error) domain.SubmitResult {
	log.Error().Err(err).Str("reason", reason).Msg("ledger: submission failed")
	return domain.SubmitResult{
		Outcome: domain.AuditStateFailed,
		Reason:  reason,
		Err:     fmt.Errorf("%w: %s: %w", domain.ErrPermanentAnchor, reason, err),
	}
}

func classify(reason string, err error) domain.SubmitResult {
	if isTransient(err) {
		return pending(reason, err)
	}
	return failed(reason, err)
}

// isTransient reports network-class errors: timeouts, connection failures,
// and RPC endpoints answering 429 or 5xx.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}

	return false
}
