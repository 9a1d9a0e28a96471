/*
submit.go - Three-phase transaction submission protocol

PURPOSE:
  Every state-changing ledger operation goes through the same fixed
  procedure:

    1. DRY RUN    Simulate the call with the same sender, arguments and
                  value. A rejection aborts immediately - the committing
                  phase is never attempted after a failed simulation.
    2. GAS        If the caller supplied no explicit limit, estimate the
                  cost, apply a 25% safety margin, and enforce a floor of
                  300,000 units. If estimation itself fails, fall back to
                  a fixed conservative 1,000,000 units instead of failing
                  the operation.
    3. COMMIT     Submit with the resolved limit, the explicit
                  price-per-unit override if supplied (else the network
                  default), and an optional value transfer; then await
                  inclusion and return the receipt.

  Multi-step workflows run this full protocol once per sub-operation,
  strictly sequentially, with no automatic rollback: a later failure
  leaves the earlier sub-operation applied, and the caller recovers by
  re-reading current state and re-invoking only what remains.

SEE ALSO:
  - errors.go: DryRunError / SubmissionError
  - contract.go: ABI packing that produces the call data fed in here
*/
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Resource-limit constants for the gas resolution phase.
const (
	// gasFloor is the minimum limit ever attached to a committing call.
	gasFloor = 300_000

	// gasFallback is the fixed conservative limit used when estimation fails.
	gasFallback = 1_000_000
)

// TxOpts carries per-submission overrides. The zero value means: estimate
// gas, use the network default price, transfer no value.
type TxOpts struct {
	GasLimit uint64   // explicit resource limit; 0 = estimate
	GasPrice *big.Int // explicit price-per-unit; nil = network default
	Value    *big.Int // optional value transfer
}

// Receipt is the outcome of a committed submission.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Logs        []types.Log
}

// Submit runs the three-phase protocol for one state-changing call.
// The method name is carried only for error context.
func (c *Client) Submit(ctx context.Context, method string, to common.Address, data []byte, opts TxOpts) (*Receipt, error) {
	msg := ethereum.CallMsg{
		From:  c.Sender(),
		To:    &to,
		Value: opts.Value,
		Data:  data,
	}

	// Phase 1: dry run. Same sender, arguments and value as the commit.
	if _, err := c.backend.CallContract(ctx, msg, nil); err != nil {
		return nil, &DryRunError{Method: method, Cause: err}
	}

	// Phase 2: resolve the resource limit.
	msg.Gas = c.resolveGasLimit(ctx, msg, opts.GasLimit)
	msg.GasPrice = opts.GasPrice

	// Phase 3: commit and await inclusion.
	txHash, err := c.backend.SendTransaction(ctx, msg)
	if err != nil {
		return nil, &SubmissionError{Method: method, Cause: err}
	}
	receipt, err := c.WaitMined(ctx, txHash)
	if err != nil {
		return nil, &SubmissionError{Method: method, TxHash: txHash.Hex(), Cause: err}
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, &SubmissionError{Method: method, TxHash: txHash.Hex(), Cause: ErrSubmissionFailed}
	}
	return &Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Logs:        flattenLogs(receipt.Logs),
	}, nil
}

// resolveGasLimit implements phase 2. An explicit caller limit always wins.
// Estimation failure is recovered locally and never surfaced.
func (c *Client) resolveGasLimit(ctx context.Context, msg ethereum.CallMsg, explicit uint64) uint64 {
	if explicit != 0 {
		return explicit
	}
	est, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return gasFallback
	}
	// 25% margin, rounded up, floored at gasFloor.
	padded := (est*5 + 3) / 4
	if padded < gasFloor {
		return gasFloor
	}
	return padded
}

func flattenLogs(logs []*types.Log) []types.Log {
	out := make([]types.Log, 0, len(logs))
	for _, l := range logs {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out
}
