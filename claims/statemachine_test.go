package claims_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-ledger/claims"
	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amount(t *testing.T, s string) ledger.Amount {
	t.Helper()
	a, err := ledger.ParseAmount("amount", s)
	require.NoError(t, err)
	return a
}

// approvedClaim is a claim sitting at PayoutApproved with quote 1000 and
// approved payout 800, ready for either settlement direction.
func approvedClaim(t *testing.T) *claims.Claim {
	t.Helper()
	code, err := claims.EncodeCode("A1234567")
	require.NoError(t, err)
	return &claims.Claim{
		Code:           code,
		Claimant:       claimantAddr,
		Adjuster:       adjusterAddr,
		Shop:           shopAddr,
		Status:         claims.StatusPayoutApproved,
		CapAmount:      amount(t, "900"),
		QuoteAmount:    amount(t, "1000"),
		ApprovedAmount: amount(t, "800"),
	}
}

// =============================================================================
// TRANSITION GUARDS
// =============================================================================

func TestCanAssignAdjuster(t *testing.T) {
	c := &claims.Claim{Status: claims.StatusSubmitted}

	assert.NoError(t, claims.CanAssignAdjuster(c, adjusterAddr))

	err := claims.CanAssignAdjuster(c, common.Address{})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	c.Status = claims.StatusQuoteSubmitted
	err = claims.CanAssignAdjuster(c, adjusterAddr)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
}

func TestCanConfirmSeverity(t *testing.T) {
	c := &claims.Claim{Status: claims.StatusSubmitted, Adjuster: adjusterAddr}

	assert.NoError(t, claims.CanConfirmSeverity(c, amount(t, "40000")))

	// No adjuster yet.
	bare := &claims.Claim{Status: claims.StatusSubmitted}
	err := claims.CanConfirmSeverity(bare, amount(t, "40000"))
	assert.ErrorIs(t, err, ledger.ErrPrecondition)

	// A zero cap is not a ceiling.
	err = claims.CanConfirmSeverity(c, amount(t, "0"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestCanSubmitQuote_StatusPerVersion(t *testing.T) {
	// GIVEN: The severity stage differs by schema generation
	// WHEN: Checking the quote guard against each version
	// THEN: v2 wants SeveritySubmitted, v1 wants SeverityFinalized

	quote := amount(t, "35000")

	v2Claim := &claims.Claim{Status: claims.StatusSeveritySubmitted}
	assert.NoError(t, claims.CanSubmitQuote(claims.SchemaV2, v2Claim, shopAddr, quote, "Q-1"))
	assert.ErrorIs(t, claims.CanSubmitQuote(claims.SchemaV1, v2Claim, shopAddr, quote, "Q-1"),
		ledger.ErrPrecondition)

	v1Claim := &claims.Claim{Status: claims.StatusSeverityFinalized}
	assert.NoError(t, claims.CanSubmitQuote(claims.SchemaV1, v1Claim, shopAddr, quote, "Q-1"))
	assert.ErrorIs(t, claims.CanSubmitQuote(claims.SchemaV2, v1Claim, shopAddr, quote, "Q-1"),
		ledger.ErrPrecondition)
}

func TestCanSubmitQuote_ShopReassignmentRejected(t *testing.T) {
	// GIVEN: A claim whose shop is already bound
	// WHEN: Submitting a quote naming a different shop
	// THEN: The guard rejects; re-invoking with the same shop is fine

	c := &claims.Claim{Status: claims.StatusSeveritySubmitted, Shop: shopAddr}
	quote := amount(t, "35000")

	assert.NoError(t, claims.CanSubmitQuote(claims.SchemaV2, c, shopAddr, quote, "Q-1"))

	other := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	err := claims.CanSubmitQuote(claims.SchemaV2, c, other, quote, "Q-1")
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
}

func TestCanSubmitQuote_InputValidation(t *testing.T) {
	c := &claims.Claim{Status: claims.StatusSeveritySubmitted}
	quote := amount(t, "35000")

	assert.ErrorIs(t, claims.CanSubmitQuote(claims.SchemaV2, c, common.Address{}, quote, "Q-1"),
		ledger.ErrValidation)
	assert.ErrorIs(t, claims.CanSubmitQuote(claims.SchemaV2, c, shopAddr, amount(t, "0"), "Q-1"),
		ledger.ErrValidation)
	assert.ErrorIs(t, claims.CanSubmitQuote(claims.SchemaV2, c, shopAddr, quote, ""),
		ledger.ErrValidation)
}

func TestCanApprovePayout_CeilingIsMinOfQuoteAndCap(t *testing.T) {
	// GIVEN: cap 900 and quote 1000
	// WHEN: Approving amounts around the lower of the two
	// THEN: 900 passes, 901 fails

	c := &claims.Claim{
		Status:      claims.StatusQuoteSubmitted,
		CapAmount:   amount(t, "900"),
		QuoteAmount: amount(t, "1000"),
	}

	assert.NoError(t, claims.CanApprovePayout(c, payeeAddr, amount(t, "900")))
	assert.ErrorIs(t, claims.CanApprovePayout(c, payeeAddr, amount(t, "901")),
		ledger.ErrPrecondition)

	// The quote can also be the binding ceiling.
	c.CapAmount = amount(t, "5000")
	assert.NoError(t, claims.CanApprovePayout(c, payeeAddr, amount(t, "1000")))
	assert.ErrorIs(t, claims.CanApprovePayout(c, payeeAddr, amount(t, "1001")),
		ledger.ErrPrecondition)
}

func TestCanDeny(t *testing.T) {
	open := &claims.Claim{Status: claims.StatusSeveritySubmitted}
	assert.NoError(t, claims.CanDeny(claims.SchemaV2, open, "no coverage"))

	assert.ErrorIs(t, claims.CanDeny(claims.SchemaV2, open, ""), ledger.ErrValidation)

	for _, s := range []claims.Status{claims.StatusDenied, claims.StatusPaid, claims.StatusClosed} {
		settled := &claims.Claim{Status: s}
		assert.ErrorIs(t, claims.CanDeny(claims.SchemaV2, settled, "late"),
			ledger.ErrPrecondition, "deny from %s", s)
	}
}

func TestTerminal_PerVersion(t *testing.T) {
	// Denied and Paid are terminal in the canonical graph but may still
	// advance to Closed under the legacy one.
	assert.True(t, claims.StatusDenied.Terminal(claims.SchemaV2))
	assert.True(t, claims.StatusPaid.Terminal(claims.SchemaV2))
	assert.False(t, claims.StatusDenied.Terminal(claims.SchemaV1))
	assert.False(t, claims.StatusPaid.Terminal(claims.SchemaV1))
	assert.True(t, claims.StatusClosed.Terminal(claims.SchemaV1))
	assert.False(t, claims.StatusSubmitted.Terminal(claims.SchemaV2))
}

// =============================================================================
// PAYMENT PLANNING
// =============================================================================

func TestPlanPayment_ShopSettlement(t *testing.T) {
	// GIVEN: quote 1000, approved 800
	// WHEN: Settling with the shop
	// THEN: The shop receives the 200 the insurer did not approve

	p, err := claims.PlanPayment(approvedClaim(t), claims.ShopSettlement)
	require.NoError(t, err)

	assert.Equal(t, claims.ShopSettlement, p.Direction)
	assert.Equal(t, shopAddr, p.Payee)
	assert.Equal(t, "200", p.Value.String())
}

func TestPlanPayment_DirectReimbursement(t *testing.T) {
	// GIVEN: The same claim
	// WHEN: Reimbursing directly
	// THEN: The claimant receives the approved amount as-is

	p, err := claims.PlanPayment(approvedClaim(t), claims.DirectReimbursement)
	require.NoError(t, err)

	assert.Equal(t, claims.DirectReimbursement, p.Direction)
	assert.Equal(t, claimantAddr, p.Payee)
	assert.Equal(t, "800", p.Value.String())
}

func TestPlanPayment_DirectionsDiffer(t *testing.T) {
	// The two directions are genuinely distinct code paths: different
	// payee, different transferred value.
	c := approvedClaim(t)
	shop, err := claims.PlanPayment(c, claims.ShopSettlement)
	require.NoError(t, err)
	direct, err := claims.PlanPayment(c, claims.DirectReimbursement)
	require.NoError(t, err)

	assert.NotEqual(t, shop.Payee, direct.Payee)
	assert.NotEqual(t, shop.Value.String(), direct.Value.String())
}

func TestPlanPayment_ShopSettlementNeedsShop(t *testing.T) {
	c := approvedClaim(t)
	c.Shop = common.Address{}

	_, err := claims.PlanPayment(c, claims.ShopSettlement)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)

	// Direct reimbursement does not involve the shop at all.
	_, err = claims.PlanPayment(c, claims.DirectReimbursement)
	assert.NoError(t, err)
}

func TestPlanPayment_ApprovedExceedingQuote(t *testing.T) {
	c := approvedClaim(t)
	c.ApprovedAmount = amount(t, "1200")

	_, err := claims.PlanPayment(c, claims.ShopSettlement)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
}

func TestPlanPayment_OnlyFromApproved(t *testing.T) {
	c := approvedClaim(t)
	c.Status = claims.StatusQuoteSubmitted

	_, err := claims.PlanPayment(c, claims.DirectReimbursement)
	assert.ErrorIs(t, err, ledger.ErrPrecondition)
}

func TestParsePaymentDirection(t *testing.T) {
	d, err := claims.ParsePaymentDirection("shop-settlement")
	require.NoError(t, err)
	assert.Equal(t, claims.ShopSettlement, d)

	d, err = claims.ParsePaymentDirection("direct-reimbursement")
	require.NoError(t, err)
	assert.Equal(t, claims.DirectReimbursement, d)

	_, err = claims.ParsePaymentDirection("escrow")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
