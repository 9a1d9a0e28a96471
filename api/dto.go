/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNT ENCODING:
  Monetary values cross the API boundary as base-10 decimal strings, never
  as JSON numbers. The underlying values are 128-bit unsigned integers and
  do not survive a float64 round trip.

TYPES:
  Claim:
    ClaimDTO, CreateClaimRequest, AssignAdjusterRequest,
    ConfirmSeverityRequest, SubmitQuoteRequest, ApprovePayoutRequest,
    DenyClaimRequest, MarkPaidRequest

  Policy:
    PolicyDTO, CreatePolicyRequest

  Submission:
    ReceiptDTO, PaymentDTO, TxOptsDTO

SEE ALSO:
  - handlers.go: Uses these types
  - claims/types.go: Domain model these are projected from
*/
package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/warp/claims-ledger/claims"
	"github.com/warp/claims-ledger/ledger"
	"github.com/warp/claims-ledger/policies"
)

// =============================================================================
// CLAIM TYPES
// =============================================================================

// ClaimDTO represents a reconstructed claim in API responses.
type ClaimDTO struct {
	Code      string            `json:"code"`
	Claimant  string            `json:"claimant"`
	CreatedAt uint64            `json:"created_at"`
	PolicyID  string            `json:"policy_id"`
	Policy    PolicySnapshotDTO `json:"policy"`

	Adjuster string `json:"adjuster,omitempty"`
	Shop     string `json:"shop,omitempty"`
	Payee    string `json:"payee,omitempty"`

	Status string `json:"status"`

	SubmittedAt         uint64 `json:"submitted_at,omitempty"`
	SeverityConfirmedAt uint64 `json:"severity_confirmed_at,omitempty"`
	SeverityProposedAt  uint64 `json:"severity_proposed_at,omitempty"`
	SeverityFinalizedAt uint64 `json:"severity_finalized_at,omitempty"`
	QuoteSubmittedAt    uint64 `json:"quote_submitted_at,omitempty"`
	ApprovedAt          uint64 `json:"approved_at,omitempty"`
	PaidAt              uint64 `json:"paid_at,omitempty"`
	ClosedAt            uint64 `json:"closed_at,omitempty"`

	IncidentAt      uint64 `json:"incident_at"`
	IncidentAddress string `json:"incident_address"`
	Description     string `json:"description"`
	IncidentType    string `json:"incident_type"`

	CapAmount     string `json:"cap_amount"`
	AdjusterNotes string `json:"adjuster_notes,omitempty"`

	QuoteAmount string `json:"quote_amount"`
	QuoteRef    string `json:"quote_ref,omitempty"`

	ApprovedAmount string `json:"approved_amount"`
	DenialReason   string `json:"denial_reason,omitempty"`
}

// PolicySnapshotDTO is the policy excerpt frozen into a claim at creation.
type PolicySnapshotDTO struct {
	Holder      string `json:"holder"`
	EffectiveAt uint64 `json:"effective_at"`
	ExpiresAt   uint64 `json:"expires_at"`
	MaxCoverage string `json:"max_coverage"`
	Deductible  string `json:"deductible"`
	Details     string `json:"details,omitempty"`
}

// CreateClaimRequest is the request to submit a new claim.
type CreateClaimRequest struct {
	Code            string    `json:"code"`
	PolicyID        string    `json:"policy_id"`
	IncidentAt      string    `json:"incident_at"`
	IncidentAddress string    `json:"incident_address"`
	Description     string    `json:"description"`
	IncidentType    string    `json:"incident_type"`
	Tx              TxOptsDTO `json:"tx"`
}

// AssignAdjusterRequest assigns an adjuster to a submitted claim.
type AssignAdjusterRequest struct {
	Adjuster string    `json:"adjuster"`
	Tx       TxOptsDTO `json:"tx"`
}

// ConfirmSeverityRequest records the adjuster's severity assessment.
type ConfirmSeverityRequest struct {
	CapAmount string    `json:"cap_amount"`
	Notes     string    `json:"notes"`
	Tx        TxOptsDTO `json:"tx"`
}

// SubmitQuoteRequest binds a repair shop and its quoted amount.
type SubmitQuoteRequest struct {
	Shop     string    `json:"shop"`
	Amount   string    `json:"amount"`
	QuoteRef string    `json:"quote_ref"`
	Tx       TxOptsDTO `json:"tx"`
}

// ApprovePayoutRequest approves a payout for a quoted claim.
type ApprovePayoutRequest struct {
	Payee  string    `json:"payee"`
	Amount string    `json:"amount"`
	Tx     TxOptsDTO `json:"tx"`
}

// DenyClaimRequest denies a claim with a reason.
type DenyClaimRequest struct {
	Reason string    `json:"reason"`
	Tx     TxOptsDTO `json:"tx"`
}

// MarkPaidRequest settles an approved claim. Direction is one of
// "shop-settlement" or "direct-reimbursement".
type MarkPaidRequest struct {
	Direction string    `json:"direction"`
	Tx        TxOptsDTO `json:"tx"`
}

// =============================================================================
// POLICY TYPES
// =============================================================================

// PolicyDTO represents a registered policy in API responses.
type PolicyDTO struct {
	ID          string `json:"id"`
	Holder      string `json:"holder"`
	EffectiveAt uint64 `json:"effective_at"`
	ExpiresAt   uint64 `json:"expires_at"`
	MaxCoverage string `json:"max_coverage"`
	Deductible  string `json:"deductible"`
	Active      bool   `json:"active"`
	Details     string `json:"details,omitempty"`
}

// CreatePolicyRequest is the request to register a new policy.
type CreatePolicyRequest struct {
	EffectiveAt string    `json:"effective_at"`
	ExpiresAt   string    `json:"expires_at"`
	MaxCoverage string    `json:"max_coverage"`
	Deductible  string    `json:"deductible"`
	Details     string    `json:"details"`
	Tx          TxOptsDTO `json:"tx"`
}

// =============================================================================
// SUBMISSION TYPES
// =============================================================================

// TxOptsDTO carries optional per-submission overrides. All fields may be
// omitted; resource limits are then estimated and padded automatically.
type TxOptsDTO struct {
	GasLimit uint64 `json:"gas_limit,omitempty"`
	GasPrice string `json:"gas_price,omitempty"`
}

// ReceiptDTO is the outcome of a committed submission.
type ReceiptDTO struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// PaymentDTO reports the payee and value computed for a settlement.
type PaymentDTO struct {
	Direction string `json:"direction"`
	Payee     string `json:"payee"`
	Value     string `json:"value"`
}

// MarkPaidResponse wraps the settlement plan together with the receipt.
type MarkPaidResponse struct {
	Payment PaymentDTO `json:"payment"`
	Receipt ReceiptDTO `json:"receipt"`
}

// CreatePolicyResponse echoes the ledger-assigned policy id.
type CreatePolicyResponse struct {
	PolicyID string     `json:"policy_id"`
	Receipt  ReceiptDTO `json:"receipt"`
}

// RawCallRequest executes an arbitrary read by method name. Arguments are
// strings coerced by the declared interface types.
type RawCallRequest struct {
	Method string   `json:"method"`
	Args   []string `json:"args"`
}

// RawCallResponse carries the reply fields rendered as strings.
type RawCallResponse struct {
	Values []string `json:"values"`
}

// RawSendRequest executes an arbitrary state-changing call by method name.
type RawSendRequest struct {
	Method string    `json:"method"`
	Args   []string  `json:"args"`
	Tx     TxOptsDTO `json:"tx"`
}

// SenderRequest sets the active submitting account.
type SenderRequest struct {
	Address string `json:"address"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PROJECTIONS
// =============================================================================

func toClaimDTO(c *claims.Claim) ClaimDTO {
	return ClaimDTO{
		Code:      c.Code.String(),
		Claimant:  c.Claimant.Hex(),
		CreatedAt: c.CreatedAt,
		PolicyID:  c.PolicyID.String(),
		Policy: PolicySnapshotDTO{
			Holder:      c.Policy.Holder.Hex(),
			EffectiveAt: c.Policy.EffectiveAt,
			ExpiresAt:   c.Policy.ExpiresAt,
			MaxCoverage: c.Policy.MaxCoverage.String(),
			Deductible:  c.Policy.Deductible.String(),
			Details:     c.Policy.Details,
		},
		Adjuster:            hexOrEmpty(c.Adjuster),
		Shop:                hexOrEmpty(c.Shop),
		Payee:               hexOrEmpty(c.Payee),
		Status:              string(c.Status),
		SubmittedAt:         c.SubmittedAt,
		SeverityConfirmedAt: c.SeverityConfirmedAt,
		SeverityProposedAt:  c.SeverityProposedAt,
		SeverityFinalizedAt: c.SeverityFinalizedAt,
		QuoteSubmittedAt:    c.QuoteSubmittedAt,
		ApprovedAt:          c.ApprovedAt,
		PaidAt:              c.PaidAt,
		ClosedAt:            c.ClosedAt,
		IncidentAt:          c.IncidentAt,
		IncidentAddress:     c.IncidentAddress,
		Description:         c.Description,
		IncidentType:        c.IncidentType.String(),
		CapAmount:           c.CapAmount.String(),
		AdjusterNotes:       c.AdjusterNotes,
		QuoteAmount:         c.QuoteAmount.String(),
		QuoteRef:            c.QuoteRef,
		ApprovedAmount:      c.ApprovedAmount.String(),
		DenialReason:        c.DenialReason,
	}
}

func toPolicyDTO(p *policies.Policy) PolicyDTO {
	return PolicyDTO{
		ID:          p.ID.String(),
		Holder:      p.Holder.Hex(),
		EffectiveAt: p.EffectiveAt,
		ExpiresAt:   p.ExpiresAt,
		MaxCoverage: p.MaxCoverage.String(),
		Deductible:  p.Deductible.String(),
		Active:      p.Active,
		Details:     p.Details,
	}
}

func toReceiptDTO(r *ledger.Receipt) ReceiptDTO {
	return ReceiptDTO{
		TxHash:      r.TxHash.Hex(),
		BlockNumber: r.BlockNumber,
		GasUsed:     r.GasUsed,
	}
}

func toPaymentDTO(p claims.Payment) PaymentDTO {
	return PaymentDTO{
		Direction: p.Direction.String(),
		Payee:     p.Payee.Hex(),
		Value:     p.Value.String(),
	}
}

func hexOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}
