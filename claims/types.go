/*
Package claims implements the claim side of the workflow client.

PURPOSE:
  This package contains the domain model and operations for insurance
  claims coordinated against the external Claim workflow contract:
  the claim-code codec, the versioned tuple schema, the advisory state
  machine, and the service driving state transitions through the
  three-phase submission protocol.

KEY CONCEPTS IN THIS FILE (types.go):
  - Claim: The in-memory projection of one ledger claim record
  - PolicySnapshot: Policy fields denormalized into the claim at
    creation time and never refreshed afterwards
  - Status: The workflow state enumeration (both schema generations)
  - IncidentType: What happened to the insured vehicle
  - PaymentDirection: Who pays whom when a claim is marked paid

OWNERSHIP:
  The ledger is the sole owner and sole writer of persisted state. A
  Claim value here is a transient, derived projection rebuilt on demand,
  never a cached writable copy.

SEE ALSO:
  - schema.go: Versioned field layouts and tuple mapping
  - statemachine.go: Legal transitions and client-side preconditions
  - service.go: The operations themselves
*/
package claims

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// STATUS - Workflow states across both schema generations
// =============================================================================

type Status string

const (
	StatusSubmitted         Status = "Submitted"
	StatusSeveritySubmitted Status = "SeveritySubmitted" // canonical schema
	StatusSeverityProposed  Status = "SeverityProposed"  // legacy schema only
	StatusSeverityFinalized Status = "SeverityFinalized" // legacy schema only
	StatusQuoteSubmitted    Status = "QuoteSubmitted"
	StatusPayoutApproved    Status = "PayoutApproved"
	StatusDenied            Status = "Denied"
	StatusPaid              Status = "Paid"
	StatusClosed            Status = "Closed" // legacy schema only
)

// =============================================================================
// INCIDENT TYPE
// =============================================================================

type IncidentType uint8

const (
	IncidentCollision IncidentType = iota
	IncidentTheft
	IncidentVandalism
	IncidentWeather
	IncidentOther
)

var incidentNames = [...]string{"Collision", "Theft", "Vandalism", "Weather", "Other"}

func (t IncidentType) String() string {
	if int(t) < len(incidentNames) {
		return incidentNames[t]
	}
	return "Other"
}

// ParseIncidentType accepts the enumerated name, case-sensitive.
func ParseIncidentType(s string) (IncidentType, error) {
	for i, n := range incidentNames {
		if n == s {
			return IncidentType(i), nil
		}
	}
	return 0, &ledger.ValidationError{Field: "incidentType", Value: s, Reason: "unknown incident type"}
}

// =============================================================================
// PAYMENT DIRECTION - Explicit tagged variant, chosen by the caller
// =============================================================================

// PaymentDirection selects the mark-paid code path. The two paths compute
// different payees and different transferred values; the caller picks one
// explicitly instead of the system inferring it from the active identity.
type PaymentDirection int

const (
	// ShopSettlement: the claimant settles with the repair shop, paying the
	// difference between the quoted amount and the approved payout.
	ShopSettlement PaymentDirection = iota

	// DirectReimbursement: another party (typically the adjuster's insurer)
	// pays the approved amount directly to the claimant.
	DirectReimbursement
)

func (d PaymentDirection) String() string {
	if d == ShopSettlement {
		return "shop-settlement"
	}
	return "direct-reimbursement"
}

// ParsePaymentDirection accepts the hyphenated wire name.
func ParsePaymentDirection(s string) (PaymentDirection, error) {
	switch s {
	case "shop-settlement":
		return ShopSettlement, nil
	case "direct-reimbursement":
		return DirectReimbursement, nil
	}
	return 0, &ledger.ValidationError{Field: "direction", Value: s, Reason: "unknown payment direction"}
}

// =============================================================================
// CLAIM - Derived in-memory projection of one ledger record
// =============================================================================

// PolicySnapshot holds the policy fields captured into the claim at
// creation time. They are never refreshed, even if the referenced policy
// later changes meaning.
type PolicySnapshot struct {
	Holder      common.Address
	EffectiveAt uint64
	ExpiresAt   uint64
	MaxCoverage ledger.Amount
	Deductible  ledger.Amount
	Details     string
}

type Claim struct {
	Code      Code
	Claimant  common.Address
	CreatedAt uint64
	PolicyID  *big.Int
	Policy    PolicySnapshot

	Adjuster common.Address
	Shop     common.Address
	Payee    common.Address

	Status Status

	// One optional timestamp per transition; zero = not reached.
	SubmittedAt         uint64
	SeverityConfirmedAt uint64 // canonical schema
	SeverityProposedAt  uint64 // legacy schema
	SeverityFinalizedAt uint64 // legacy schema
	QuoteSubmittedAt    uint64
	ApprovedAt          uint64
	PaidAt              uint64
	ClosedAt            uint64 // legacy schema

	IncidentAt      uint64
	IncidentAddress string
	Description     string
	IncidentType    IncidentType

	CapAmount     ledger.Amount
	AdjusterNotes string

	QuoteAmount ledger.Amount
	QuoteRef    string

	ApprovedAmount ledger.Amount
	DenialReason   string // canonical schema

	// Legacy-schema extras, zero-valued under the canonical schema.
	CapLocked      bool
	QuoteCurrency  common.Address
	PayoutCurrency common.Address
	EscrowID       *big.Int
	PayoutToShop   bool
	PayoutTxRef    [32]byte
}
