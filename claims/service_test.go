package claims_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-ledger/claims"
	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// FAKE CONTRACT
// =============================================================================

type call struct {
	method string
	opts   ledger.TxOpts
	args   []any
}

// fakeInvoker scripts read replies per claim token and records every
// submission. Submissions succeed unless submitErr is set for a method.
type fakeInvoker struct {
	replies   map[[8]byte]ledger.Tuple // getClaim replies by token
	submitErr map[string]error

	calls   []call
	submits []call
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		replies:   make(map[[8]byte]ledger.Tuple),
		submitErr: make(map[string]error),
	}
}

func (f *fakeInvoker) serve(code string, values []any) [8]byte {
	tok := token(code)
	f.replies[tok] = ledger.Positional(values)
	return tok
}

func (f *fakeInvoker) Call(_ context.Context, method string, args ...any) (ledger.Tuple, error) {
	f.calls = append(f.calls, call{method: method, args: args})
	if method == "getClaim" {
		if t, ok := f.replies[args[0].([8]byte)]; ok {
			return t, nil
		}
		// An unknown token reads back as an all-zero record.
		return ledger.Positional(zeroClaimValues()), nil
	}
	return ledger.Tuple{}, nil
}

func (f *fakeInvoker) Submit(_ context.Context, opts ledger.TxOpts, method string, args ...any) (*ledger.Receipt, error) {
	f.submits = append(f.submits, call{method: method, opts: opts, args: args})
	if err := f.submitErr[method]; err != nil {
		return nil, err
	}
	return &ledger.Receipt{TxHash: common.HexToHash("0xfeed"), BlockNumber: 9}, nil
}

func (f *fakeInvoker) submitted() []string {
	out := make([]string, len(f.submits))
	for i, s := range f.submits {
		out[i] = s.method
	}
	return out
}

// zeroClaimValues is what the ledger returns for a token it has never seen.
// Only the token and creation time matter for the not-found heuristic.
func zeroClaimValues() []any {
	v := v2Values()
	v[0] = [8]byte{}
	v[2] = big.NewInt(0)
	return v
}

type fakeEvents struct {
	events []ledger.Event
	query  ledger.EventQuery
}

func (f *fakeEvents) Query(_ context.Context, q ledger.EventQuery) ([]ledger.Event, error) {
	f.query = q
	return f.events, nil
}

func newTestService(v claims.SchemaVersion) (*claims.Service, *fakeInvoker, *fakeEvents) {
	inv := newFakeInvoker()
	ev := &fakeEvents{}
	svc := &claims.Service{
		Contract:       inv,
		Events:         ev,
		Version:        v,
		Workflow:       workflowContract,
		SubmittedTopic: submittedEventID,
	}
	return svc, inv, ev
}

var (
	workflowContract = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	submittedEventID = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

// =============================================================================
// READS
// =============================================================================

func TestService_Get(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)
	inv.serve("B7700123", v2Values())

	c, err := svc.Get(context.Background(), "B7700123")
	require.NoError(t, err)
	assert.Equal(t, "B7700123", c.Code.String())
	assert.Equal(t, claims.StatusQuoteSubmitted, c.Status)
}

func TestService_Get_UnknownCodeIsNotFound(t *testing.T) {
	// GIVEN: A well-formed code the ledger has never seen
	// WHEN: Reading it
	// THEN: The all-zero reply surfaces as not-found, not as a zero claim

	svc, _, _ := newTestService(claims.SchemaV2)

	_, err := svc.Get(context.Background(), "Z9999999")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_Get_MalformedCodeNeverReaches(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)

	_, err := svc.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.Empty(t, inv.calls, "nothing sent for a malformed code")
}

func TestService_ListFor(t *testing.T) {
	// GIVEN: Two creation events for a claimant, already ordered
	// WHEN: Listing their claims
	// THEN: Each event's token is followed up with a read, in order

	svc, inv, ev := newTestService(claims.SchemaV2)

	first := v2Values()
	first[0] = token("A0000001")
	second := v2Values()
	second[0] = token("A0000002")
	inv.serve("A0000001", first)
	inv.serve("A0000002", second)

	ev.events = []ledger.Event{
		{Block: 3, Index: 0, Topics: []common.Hash{submittedEventID, tokenTopic("A0000001")}},
		{Block: 8, Index: 1, Topics: []common.Hash{submittedEventID, tokenTopic("A0000002")}},
	}

	claimant := common.HexToAddress("0x0000000000000000000000000000000000000001")
	list, err := svc.ListFor(context.Background(), claimant)
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "A0000001", list[0].Code.String())
	assert.Equal(t, "A0000002", list[1].Code.String())

	assert.Equal(t, workflowContract, ev.query.Contract)
	assert.Equal(t, submittedEventID, ev.query.Event)
	assert.Equal(t, 2, ev.query.TopicPos)
	assert.Equal(t, ledger.AddressTopic(claimant), ev.query.Actor)
}

func TestService_ListFor_Empty(t *testing.T) {
	svc, _, _ := newTestService(claims.SchemaV2)

	list, err := svc.ListFor(context.Background(), claimantAddr)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func tokenTopic(code string) common.Hash {
	var h common.Hash
	copy(h[:], code)
	return h
}

// =============================================================================
// CREATE
// =============================================================================

func TestService_Create(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)

	_, err := svc.Create(context.Background(), claims.CreateParams{
		Code:            "d7654321",
		PolicyID:        "12",
		IncidentAt:      "1699999000",
		IncidentAddress: "12 Harbor St",
		Description:     "rear-end collision",
		IncidentType:    claims.IncidentCollision,
	}, ledger.TxOpts{})
	require.NoError(t, err)

	require.Len(t, inv.submits, 1)
	sub := inv.submits[0]
	assert.Equal(t, "createClaim", sub.method)
	assert.Equal(t, token("D7654321"), sub.args[0], "code normalized before encoding")
	assert.Equal(t, "12", sub.args[1].(*big.Int).String())
	assert.Equal(t, uint64(1699999000), sub.args[2])
	assert.Equal(t, uint8(claims.IncidentCollision), sub.args[5])
}

func TestService_Create_ValidationStopsLocally(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)

	cases := []claims.CreateParams{
		{Code: "bad", PolicyID: "1", IncidentAt: "1", IncidentAddress: "x", Description: "y"},
		{Code: "A1234567", PolicyID: "-1", IncidentAt: "1", IncidentAddress: "x", Description: "y"},
		{Code: "A1234567", PolicyID: "1", IncidentAt: "0", IncidentAddress: "x", Description: "y"},
		{Code: "A1234567", PolicyID: "1", IncidentAt: "1", IncidentAddress: " ", Description: "y"},
		{Code: "A1234567", PolicyID: "1", IncidentAt: "1", IncidentAddress: "x", Description: ""},
	}
	for _, p := range cases {
		_, err := svc.Create(context.Background(), p, ledger.TxOpts{})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}
	assert.Empty(t, inv.submits)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestService_ConfirmSeverity_Canonical(t *testing.T) {
	// GIVEN: A submitted claim with an adjuster, canonical schema
	// WHEN: Confirming severity
	// THEN: Exactly one submission is made

	svc, inv, _ := newTestService(claims.SchemaV2)
	values := v2Values()
	values[13] = uint8(0) // Submitted
	inv.serve("B7700123", values)

	_, err := svc.ConfirmSeverity(context.Background(), "B7700123", "40000", "moderate", ledger.TxOpts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"confirmSeverity"}, inv.submitted())
}

func TestService_ConfirmSeverity_LegacyTwoStep(t *testing.T) {
	// GIVEN: The same situation under the legacy schema
	// WHEN: Confirming severity
	// THEN: Two sequential submissions run (propose, then finalize), each
	//       through the full protocol

	svc, inv, _ := newTestService(claims.SchemaV1)
	values := v1Values()
	values[13] = uint8(0) // Submitted
	inv.serve("C5500987", values)

	_, err := svc.ConfirmSeverity(context.Background(), "C5500987", "25000", "roof", ledger.TxOpts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"proposeSeverity", "finalizeSeverity"}, inv.submitted())
}

func TestService_SubmitShopQuote_TwoSubOperations(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)
	values := v2Values()
	values[13] = uint8(1) // SeveritySubmitted
	values[11] = common.Address{}
	inv.serve("B7700123", values)

	_, err := svc.SubmitShopQuote(context.Background(), "B7700123", shopAddr, "35000", "Q-2024-117", ledger.TxOpts{})
	require.NoError(t, err)

	require.Equal(t, []string{"setShop", "submitRepairQuote"}, inv.submitted())
	assert.Len(t, inv.submits[1].args, 3, "canonical quote carries no currency")
}

func TestService_SubmitShopQuote_LegacyCarriesCurrency(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV1)
	values := v1Values()
	values[13] = uint8(2) // SeverityFinalized
	values[11] = common.Address{}
	inv.serve("C5500987", values)

	_, err := svc.SubmitShopQuote(context.Background(), "C5500987", shopAddr, "22000", "Q-1999-3", ledger.TxOpts{})
	require.NoError(t, err)

	require.Equal(t, []string{"setShop", "submitRepairQuote"}, inv.submitted())
	quoteArgs := inv.submits[1].args
	require.Len(t, quoteArgs, 4)
	assert.Equal(t, common.Address{}, quoteArgs[3], "zero address selects the native unit")
}

func TestService_SubmitShopQuote_FirstFailureStopsSequence(t *testing.T) {
	// No rollback exists; a failed first sub-operation must prevent the
	// second from ever being attempted.
	svc, inv, _ := newTestService(claims.SchemaV2)
	values := v2Values()
	values[13] = uint8(1)
	values[11] = common.Address{}
	inv.serve("B7700123", values)
	inv.submitErr["setShop"] = &ledger.DryRunError{Method: "setShop"}

	_, err := svc.SubmitShopQuote(context.Background(), "B7700123", shopAddr, "35000", "Q-1", ledger.TxOpts{})
	assert.ErrorIs(t, err, ledger.ErrDryRunRejected)
	assert.Equal(t, []string{"setShop"}, inv.submitted())
}

func TestService_ApprovePayout_OverCapRejectedLocally(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)
	inv.serve("B7700123", v2Values()) // QuoteSubmitted, cap 40000, quote 35000

	_, err := svc.ApprovePayout(context.Background(), "B7700123", payeeAddr, "36000", ledger.TxOpts{})
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
	assert.Empty(t, inv.submits)

	_, err = svc.ApprovePayout(context.Background(), "B7700123", payeeAddr, "35000", ledger.TxOpts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"approvePayout"}, inv.submitted())
}

func TestService_MarkPaid_ShopSettlement(t *testing.T) {
	// GIVEN: An approved claim with quote 35000 and approved 30000
	// WHEN: Settling with the shop
	// THEN: The submission transfers the 5000 gap and flags the shop path

	svc, inv, _ := newTestService(claims.SchemaV2)
	values := v2Values()
	values[13] = uint8(3) // PayoutApproved
	values[27] = big.NewInt(30_000)
	inv.serve("B7700123", values)

	payment, receipt, err := svc.MarkPaid(context.Background(), "B7700123", claims.ShopSettlement, ledger.TxOpts{})
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, shopAddr, payment.Payee)
	assert.Equal(t, "5000", payment.Value.String())

	require.Len(t, inv.submits, 1)
	sub := inv.submits[0]
	assert.Equal(t, "markPaid", sub.method)
	assert.Equal(t, true, sub.args[1])
	assert.Equal(t, "5000", sub.opts.Value.String(), "planned value rides the submission")
}

func TestService_MarkPaid_DirectReimbursement(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)
	values := v2Values()
	values[13] = uint8(3)
	values[27] = big.NewInt(30_000)
	inv.serve("B7700123", values)

	payment, _, err := svc.MarkPaid(context.Background(), "B7700123", claims.DirectReimbursement, ledger.TxOpts{})
	require.NoError(t, err)

	assert.Equal(t, claimantAddr, payment.Payee)
	assert.Equal(t, "30000", payment.Value.String())
	assert.Equal(t, false, inv.submits[0].args[1])
	assert.Equal(t, "30000", inv.submits[0].opts.Value.String())
}

func TestService_Deny_AfterSettlementRejected(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)
	values := v2Values()
	values[13] = uint8(5) // Paid
	inv.serve("B7700123", values)

	_, err := svc.Deny(context.Background(), "B7700123", "fraud", ledger.TxOpts{})
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
	assert.Empty(t, inv.submits)
}

func TestService_Close_CanonicalSchemaHasNoClose(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV2)

	_, err := svc.Close(context.Background(), "B7700123", ledger.TxOpts{})
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
	assert.Empty(t, inv.calls, "no read is even attempted")
}

func TestService_Close_LegacyFromPaid(t *testing.T) {
	svc, inv, _ := newTestService(claims.SchemaV1)
	inv.serve("C5500987", v1Values()) // Paid

	_, err := svc.Close(context.Background(), "C5500987", ledger.TxOpts{})
	require.NoError(t, err)
	assert.Equal(t, []string{"closeClaim"}, inv.submitted())
}
