/*
statemachine.go - Claim workflow transitions and client-side preconditions

PURPOSE:
  The canonical transition graph:

    Submitted -> SeveritySubmitted -> QuoteSubmitted -> PayoutApproved -> { Denied | Paid }

  Legacy variant (documented alternate configuration):

    Submitted -> SeverityProposed -> SeverityFinalized -> QuoteSubmitted
              -> PayoutApproved -> { Denied | Paid } -> Closed

  Terminal states: Denied, Paid (legacy adds Closed). Status only ever
  advances forward through this graph.

ADVISORY ONLY:
  Authoritative enforcement and the actual status value live in the
  ledger. The checks here exist to fail fast with a clear precondition
  error instead of wasting a transaction; they mirror, never replace,
  the ledger-side rules.

SEE ALSO:
  - service.go: Runs a guard before every submission
  - schema.go: Per-version status enumerations
*/
package claims

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// STATUS PREDICATES
// =============================================================================

// Terminal reports whether no further transition can leave s. The legacy
// graph allows Denied and Paid to advance once more, to Closed.
func (s Status) Terminal(v SchemaVersion) bool {
	switch s {
	case StatusDenied, StatusPaid:
		return v != SchemaV1
	case StatusClosed:
		return true
	}
	return false
}

// severityStage is the state a claim reaches once the adjuster has
// confirmed severity, per version.
func severityStage(v SchemaVersion) Status {
	if v == SchemaV1 {
		return StatusSeverityFinalized
	}
	return StatusSeveritySubmitted
}

func requireStatus(op string, c *Claim, want Status) error {
	if c.Status != want {
		return &ledger.PreconditionError{
			Op:     op,
			Reason: fmt.Sprintf("claim %s is %s, want %s", c.Code, c.Status, want),
		}
	}
	return nil
}

// =============================================================================
// TRANSITION GUARDS
// =============================================================================

// CanAssignAdjuster checks the assign-adjuster transition: the claim must
// exist and still be freshly submitted.
func CanAssignAdjuster(c *Claim, adjuster common.Address) error {
	if adjuster == (common.Address{}) {
		return &ledger.ValidationError{Field: "adjuster", Value: adjuster.Hex(), Reason: "zero address"}
	}
	return requireStatus("assign-adjuster", c, StatusSubmitted)
}

// CanConfirmSeverity checks the confirm-severity transition: an adjuster
// must already be assigned and the cap amount must be a real ceiling.
func CanConfirmSeverity(c *Claim, cap ledger.Amount) error {
	if c.Adjuster == (common.Address{}) {
		return &ledger.PreconditionError{Op: "confirm-severity", Reason: "no adjuster assigned"}
	}
	if cap.IsZero() {
		return &ledger.ValidationError{Field: "capAmount", Value: cap.String(), Reason: "zero cap"}
	}
	return requireStatus("confirm-severity", c, StatusSubmitted)
}

// CanSubmitQuote checks the assign-shop + submit-quote pair. Shop
// assignment is not idempotent against a differing address once quote
// work has started.
func CanSubmitQuote(v SchemaVersion, c *Claim, shop common.Address, amount ledger.Amount, ref string) error {
	if shop == (common.Address{}) {
		return &ledger.ValidationError{Field: "shop", Value: shop.Hex(), Reason: "zero address"}
	}
	if amount.IsZero() {
		return &ledger.ValidationError{Field: "quoteAmount", Value: amount.String(), Reason: "zero quote"}
	}
	if ref == "" {
		return &ledger.ValidationError{Field: "quoteRef", Value: ref, Reason: "empty reference"}
	}
	if c.Shop != (common.Address{}) && c.Shop != shop {
		return &ledger.PreconditionError{
			Op:     "assign-shop",
			Reason: fmt.Sprintf("shop already assigned to %s", c.Shop.Hex()),
		}
	}
	return requireStatus("submit-quote", c, severityStage(v))
}

// CanApprovePayout checks the approve-payout transition. The approved
// amount must not exceed the lesser of the shop quote and the adjuster
// cap; the ledger is the final arbiter, but an over-cap amount is
// rejected here rather than spending a doomed transaction.
func CanApprovePayout(c *Claim, payee common.Address, amount ledger.Amount) error {
	if payee == (common.Address{}) {
		return &ledger.ValidationError{Field: "payee", Value: payee.Hex(), Reason: "zero address"}
	}
	if err := requireStatus("approve-payout", c, StatusQuoteSubmitted); err != nil {
		return err
	}
	ceiling := c.QuoteAmount.Min(c.CapAmount)
	if amount.Cmp(ceiling) > 0 {
		return &ledger.PreconditionError{
			Op:     "approve-payout",
			Reason: fmt.Sprintf("amount %s exceeds ceiling %s (min of quote and cap)", amount, ceiling),
		}
	}
	return nil
}

// CanDeny checks the deny transition: legal from any pre-payout state,
// requires a reason.
func CanDeny(v SchemaVersion, c *Claim, reason string) error {
	if reason == "" {
		return &ledger.ValidationError{Field: "reason", Value: reason, Reason: "empty denial reason"}
	}
	switch c.Status {
	case StatusDenied, StatusPaid, StatusClosed:
		return &ledger.PreconditionError{
			Op:     "deny",
			Reason: fmt.Sprintf("claim %s is already %s", c.Code, c.Status),
		}
	}
	return nil
}

// CanMarkPaid checks the mark-paid transition. Only an approved payout can
// be paid; the relaxed also-from-Denied reimbursement variant observed in
// older deployments is intentionally not honored here.
func CanMarkPaid(c *Claim) error {
	return requireStatus("mark-paid", c, StatusPayoutApproved)
}

// =============================================================================
// PAYMENT PLANNING - Two distinct code paths
// =============================================================================

// Payment is the resolved payee and transferred value for one mark-paid
// submission.
type Payment struct {
	Direction PaymentDirection
	Payee     common.Address
	Value     ledger.Amount
}

// PlanPayment computes who gets paid and how much for the chosen
// direction:
//
//	ShopSettlement:      payee = shop,     value = quoteAmount - approvedAmount
//	DirectReimbursement: payee = claimant, value = approvedAmount
//
// The claimant settling with the shop contributes the gap the insurer did
// not approve; a direct reimbursement transfers the approved amount as-is.
func PlanPayment(c *Claim, d PaymentDirection) (Payment, error) {
	if err := CanMarkPaid(c); err != nil {
		return Payment{}, err
	}
	switch d {
	case ShopSettlement:
		if c.Shop == (common.Address{}) {
			return Payment{}, &ledger.PreconditionError{Op: "mark-paid", Reason: "no shop assigned"}
		}
		if c.QuoteAmount.Cmp(c.ApprovedAmount) < 0 {
			return Payment{}, &ledger.PreconditionError{
				Op:     "mark-paid",
				Reason: fmt.Sprintf("approved %s exceeds quote %s", c.ApprovedAmount, c.QuoteAmount),
			}
		}
		return Payment{
			Direction: d,
			Payee:     c.Shop,
			Value:     c.QuoteAmount.Sub(c.ApprovedAmount),
		}, nil
	case DirectReimbursement:
		return Payment{
			Direction: d,
			Payee:     c.Claimant,
			Value:     c.ApprovedAmount,
		}, nil
	}
	return Payment{}, &ledger.ValidationError{
		Field:  "direction",
		Value:  fmt.Sprintf("%d", d),
		Reason: "unknown payment direction",
	}
}
