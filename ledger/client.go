/*
client.go - Ledger connection and active sender identity

PURPOSE:
  Holds the one live connection to the ledger endpoint and the currently
  selected sender identity. Both are process-wide, mutable-on-demand
  state: the sender can be switched between operations, but switching it
  does not cancel or retarget an in-flight submission, so callers must
  not change identity while a submission is outstanding.

TRANSPORT:
  RPCBackend adapts go-ethereum's rpc/ethclient pair to the narrow
  Backend interface this module consumes. State-changing calls go through
  eth_sendTransaction with a node-managed sender; key management and
  local signing are explicitly out of scope.

SEE ALSO:
  - submit.go: Three-phase submission protocol built on Backend
  - events.go: Historical log queries built on Backend
*/
package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// =============================================================================
// BACKEND - The consumed RPC surface
// =============================================================================

// Backend is the subset of the ledger RPC surface this module needs.
// Implemented by RPCBackend for a live endpoint and by fakes in tests.
type Backend interface {
	// CallContract executes a non-committing ("call") invocation.
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// EstimateGas estimates the resource cost of a committing call.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// SendTransaction submits a committing call from a node-managed sender
	// and returns the transaction identifier.
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)

	// TransactionReceipt returns the receipt of a mined transaction, or
	// ethereum.NotFound while it is still pending.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// FilterLogs queries historical events over an inclusive block range.
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// BlockNumber returns the latest known sequence position.
	BlockNumber(ctx context.Context) (uint64, error)

	// SuggestGasPrice returns the network default price-per-unit.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client pairs a Backend with the active sender identity.
type Client struct {
	backend Backend

	mu     sync.RWMutex
	sender common.Address

	// PollInterval controls receipt polling while awaiting inclusion.
	PollInterval time.Duration
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend, PollInterval: 500 * time.Millisecond}
}

func (c *Client) Backend() Backend { return c.backend }

// SetSender switches the active sender identity. Takes effect for the next
// operation; in-flight submissions keep the identity they started with.
func (c *Client) SetSender(addr common.Address) {
	c.mu.Lock()
	c.sender = addr
	c.mu.Unlock()
}

func (c *Client) Sender() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sender
}

// WaitMined polls for the receipt of a submitted transaction until it is
// included or ctx expires. The caller owns the deadline; a silently hanging
// endpoint is the primary failure mode of this system.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// =============================================================================
// RPC BACKEND - Live endpoint adapter
// =============================================================================

// RPCBackend implements Backend over a JSON-RPC endpoint.
type RPCBackend struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

var _ Backend = (*RPCBackend)(nil)

// Dial connects to the ledger endpoint.
func Dial(ctx context.Context, url string) (*RPCBackend, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &RPCBackend{rpc: rc, eth: ethclient.NewClient(rc)}, nil
}

func (b *RPCBackend) Close() { b.rpc.Close() }

// Accounts lists the node-managed sender identities.
func (b *RPCBackend) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := b.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (b *RPCBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.eth.CallContract(ctx, msg, blockNumber)
}

func (b *RPCBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return b.eth.EstimateGas(ctx, msg)
}

func (b *RPCBackend) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	var txHash common.Hash
	if err := b.rpc.CallContext(ctx, &txHash, "eth_sendTransaction", toSendArgs(msg)); err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}

func (b *RPCBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return b.eth.TransactionReceipt(ctx, txHash)
}

func (b *RPCBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return b.eth.FilterLogs(ctx, q)
}

func (b *RPCBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.eth.BlockNumber(ctx)
}

func (b *RPCBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return b.eth.SuggestGasPrice(ctx)
}

func toSendArgs(msg ethereum.CallMsg) map[string]any {
	args := map[string]any{"from": msg.From}
	if msg.To != nil {
		args["to"] = *msg.To
	}
	if len(msg.Data) > 0 {
		args["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Gas != 0 {
		args["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.GasPrice != nil {
		args["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}
	if msg.Value != nil {
		args["value"] = (*hexutil.Big)(msg.Value)
	}
	return args
}
