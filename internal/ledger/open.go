package ledger

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/domain"
)

// placeholderRPCMarker identifies template RPC URLs that were never filled in.
const placeholderRPCMarker = "your-api-key"

// Options configures the ledger connection.
type Options struct {
	RPCURL          string
	PrivateKey      string
	ContractAddress string
	StartBlock      uint64
	GasMultiplier   uint64
}

// mockReason returns a non-empty reason when the options cannot drive a live backend.
func (o Options) mockReason() string {
	switch {
	case o.RPCURL == "":
		return "rpc url not configured"
	case strings.Contains(o.RPCURL, placeholderRPCMarker):
		return "rpc url is a placeholder"
	case o.ContractAddress == "":
		return "contract address not configured"
	case !common.IsHexAddress(o.ContractAddress):
		return "contract address is invalid"
	default:
		return ""
	}
}

// Client is the anchor client handed to the rest of the service. It wraps
// whichever backend Open selected.
type Client struct {
	backend domain.AnchorClient
	mode    domain.LedgerMode
	closeFn func()
}

var _ domain.AnchorClient = (*Client)(nil)

// Open selects a backend from opts. It never fails: missing or unusable
// configuration degrades to the mock backend, and a missing signing key
// degrades the live backend to read-only.
func Open(ctx context.Context, opts Options) *Client {
	if reason := opts.mockReason(); reason != "" {
		log.Warn().Str("reason", reason).Msg("ledger: using mock backend")
		return &Client{backend: NewMock(reason), mode: domain.LedgerModeMock}
	}

	rpcClient, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		log.Warn().Err(err).Msg("ledger: dial failed, using mock backend")
		return &Client{backend: NewMock("dial failed"), mode: domain.LedgerModeMock}
	}

	key := loadKey(opts.PrivateKey)
	contract := common.HexToAddress(opts.ContractAddress)

	evm, err := newEVM(rpcClient, contract, key, opts.StartBlock, opts.GasMultiplier)
	if err != nil {
		rpcClient.Close()
		log.Error().Err(err).Msg("ledger: init failed, using mock backend")
		return &Client{backend: NewMock("init failed"), mode: domain.LedgerModeMock}
	}

	bound := bind.NewBoundContract(contract, evm.abi, rpcClient, rpcClient, rpcClient)
	evm.transact = bound.Transact
	evm.waitMined = func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return bind.WaitMined(ctx, rpcClient, tx)
	}

	log.Info().
		Str("contract", contract.Hex()).
		Bool("signer", key != nil).
		Uint64("start_block", opts.StartBlock).
		Msg("ledger: live backend configured")

	return &Client{backend: evm, mode: domain.LedgerModeLive, closeFn: rpcClient.Close}
}

func loadKey(hexKey string) *ecdsa.PrivateKey {
	if hexKey == "" {
		log.Warn().Msg("ledger: no private key, running read-only")
		return nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		log.Error().Err(err).Msg("ledger: invalid private key, running read-only")
		return nil
	}

	return key
}

func (c *Client) Submit(ctx context.Context, digest string, entityType domain.EntityType, entityID string) domain.SubmitResult {
	return c.backend.Submit(ctx, digest, entityType, entityID)
}

func (c *Client) Query(ctx context.Context, digest string) (domain.QueryResult, error) {
	return c.backend.Query(ctx, digest)
}

func (c *Client) Status(ctx context.Context) domain.LedgerStatus {
	return c.backend.Status(ctx)
}

// Mode reports which backend Open selected.
func (c *Client) Mode() domain.LedgerMode {
	return c.mode
}

// Close releases the RPC connection, if any.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}
