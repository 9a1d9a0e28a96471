package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend scripts every RPC the client can issue and records what was
// actually sent. Shared by the submission and event-source tests.
type fakeBackend struct {
	callErr error

	estGas uint64
	estErr error

	sendHash common.Hash
	sendErr  error

	receipt    *types.Receipt
	receiptErr error
	pending    int // TransactionReceipt returns NotFound this many times first

	logs      []types.Log
	filterErr error
	latest    uint64

	callCount     int
	estimateCount int
	sendCount     int
	sentMsgs      []ethereum.CallMsg
	filterQueries []ethereum.FilterQuery
}

func (f *fakeBackend) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.callCount++
	return nil, f.callErr
}

func (f *fakeBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	f.estimateCount++
	return f.estGas, f.estErr
}

func (f *fakeBackend) SendTransaction(_ context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	f.sendCount++
	f.sentMsgs = append(f.sentMsgs, msg)
	return f.sendHash, f.sendErr
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	if f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	return f.receipt, f.receiptErr
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.filterQueries = append(f.filterQueries, q)
	return f.logs, f.filterErr
}

func (f *fakeBackend) BlockNumber(_ context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func minedBackend() *fakeBackend {
	hash := common.HexToHash("0xabc1")
	return &fakeBackend{
		sendHash: hash,
		receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      hash,
			BlockNumber: big.NewInt(7),
			GasUsed:     21000,
		},
	}
}

func newTestClient(b *fakeBackend) *ledger.Client {
	c := ledger.NewClient(b)
	c.PollInterval = time.Millisecond
	c.SetSender(common.HexToAddress("0x00000000000000000000000000000000000000aa"))
	return c
}

var testTo = common.HexToAddress("0x00000000000000000000000000000000000000bb")

// =============================================================================
// PHASE 1: DRY RUN
// =============================================================================

func TestSubmit_DryRunRejected_NothingCommitted(t *testing.T) {
	// GIVEN: A ledger that rejects the non-committing simulation
	// WHEN: Submitting a state-changing call
	// THEN: The error surfaces as a dry-run rejection and no estimate or
	//       commit was ever attempted

	backend := minedBackend()
	backend.callErr = errors.New("revert: claim does not exist")
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "denyClaim", testTo, []byte{1}, ledger.TxOpts{})

	assert.ErrorIs(t, err, ledger.ErrDryRunRejected)
	var dryErr *ledger.DryRunError
	require.ErrorAs(t, err, &dryErr)
	assert.Equal(t, "denyClaim", dryErr.Method)
	assert.Contains(t, dryErr.Error(), "claim does not exist")

	assert.Equal(t, 0, backend.estimateCount, "no estimate after failed dry run")
	assert.Equal(t, 0, backend.sendCount, "no commit after failed dry run")
}

// =============================================================================
// PHASE 2: GAS RESOLUTION
// =============================================================================

func TestSubmit_GasEstimate_PaddedByQuarter(t *testing.T) {
	// GIVEN: An estimate of 400,000 units
	// WHEN: Submitting without an explicit limit
	// THEN: The committed limit is 500,000 (25% margin)

	backend := minedBackend()
	backend.estGas = 400_000
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "createClaim", testTo, []byte{1}, ledger.TxOpts{})
	require.NoError(t, err)

	require.Len(t, backend.sentMsgs, 1)
	assert.Equal(t, uint64(500_000), backend.sentMsgs[0].Gas)
}

func TestSubmit_GasEstimate_RoundsUp(t *testing.T) {
	backend := minedBackend()
	backend.estGas = 400_001 // * 1.25 = 500_001.25
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "createClaim", testTo, []byte{1}, ledger.TxOpts{})
	require.NoError(t, err)

	assert.Equal(t, uint64(500_002), backend.sentMsgs[0].Gas)
}

func TestSubmit_GasEstimate_FlooredAt300k(t *testing.T) {
	// GIVEN: A small estimate whose padded value is under the floor
	// WHEN: Submitting
	// THEN: The floor of 300,000 units applies

	backend := minedBackend()
	backend.estGas = 100_000 // padded 125,000 < floor
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "setAdjuster", testTo, []byte{1}, ledger.TxOpts{})
	require.NoError(t, err)

	assert.Equal(t, uint64(300_000), backend.sentMsgs[0].Gas)
}

func TestSubmit_EstimateFails_FallsBackTo1M(t *testing.T) {
	// GIVEN: A node whose estimation endpoint errors
	// WHEN: Submitting after a successful dry run
	// THEN: The operation proceeds with the fixed 1,000,000-unit fallback
	//       instead of failing

	backend := minedBackend()
	backend.estErr = errors.New("estimation unavailable")
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "markPaid", testTo, []byte{1}, ledger.TxOpts{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000_000), backend.sentMsgs[0].Gas)
}

func TestSubmit_ExplicitLimit_SkipsEstimation(t *testing.T) {
	// GIVEN: A caller-supplied resource limit
	// WHEN: Submitting
	// THEN: The limit is used verbatim and no estimate is requested

	backend := minedBackend()
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "createClaim", testTo, []byte{1},
		ledger.TxOpts{GasLimit: 42_000})
	require.NoError(t, err)

	assert.Equal(t, 0, backend.estimateCount)
	assert.Equal(t, uint64(42_000), backend.sentMsgs[0].Gas)
}

func TestSubmit_ExplicitPriceAndValueCarried(t *testing.T) {
	backend := minedBackend()
	backend.estGas = 400_000
	client := newTestClient(backend)

	opts := ledger.TxOpts{GasPrice: big.NewInt(2_000_000_000), Value: big.NewInt(777)}
	_, err := client.Submit(context.Background(), "markPaid", testTo, []byte{1}, opts)
	require.NoError(t, err)

	sent := backend.sentMsgs[0]
	assert.Equal(t, "2000000000", sent.GasPrice.String())
	assert.Equal(t, "777", sent.Value.String())
	assert.Equal(t, client.Sender(), sent.From)
}

// =============================================================================
// PHASE 3: COMMIT AND AWAIT
// =============================================================================

func TestSubmit_PendingThenMined(t *testing.T) {
	// GIVEN: A transaction that stays pending for the first two polls
	// WHEN: Awaiting inclusion
	// THEN: Polling continues until the receipt appears

	backend := minedBackend()
	backend.pending = 2
	client := newTestClient(backend)

	receipt, err := client.Submit(context.Background(), "createClaim", testTo, []byte{1}, ledger.TxOpts{})
	require.NoError(t, err)

	assert.Equal(t, backend.sendHash, receipt.TxHash)
	assert.Equal(t, uint64(7), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
}

func TestSubmit_RevertedOnChain(t *testing.T) {
	// GIVEN: A transaction mined with a failure status
	// WHEN: The receipt arrives
	// THEN: The submission fails and the error carries the tx hash

	backend := minedBackend()
	backend.receipt.Status = types.ReceiptStatusFailed
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "approvePayout", testTo, []byte{1}, ledger.TxOpts{})

	assert.ErrorIs(t, err, ledger.ErrSubmissionFailed)
	var subErr *ledger.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, backend.sendHash.Hex(), subErr.TxHash)
}

func TestSubmit_SendRejected(t *testing.T) {
	backend := minedBackend()
	backend.sendErr = errors.New("nonce too low")
	client := newTestClient(backend)

	_, err := client.Submit(context.Background(), "createClaim", testTo, []byte{1}, ledger.TxOpts{})
	assert.ErrorIs(t, err, ledger.ErrSubmissionFailed)
}

func TestSubmit_AwaitHonorsContext(t *testing.T) {
	// A transaction that never mines must not hang past the deadline.
	backend := minedBackend()
	backend.pending = 1 << 30
	client := newTestClient(backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Submit(ctx, "createClaim", testTo, []byte{1}, ledger.TxOpts{})
	assert.ErrorIs(t, err, ledger.ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}
