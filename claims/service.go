/*
service.go - Claim workflow operations

PURPOSE:
  Drives every claim state transition against the external workflow
  contract. Each operation follows the same shape:

    1. Validate inputs locally (codec, amounts, timestamps)
    2. Read current state and run the advisory state-machine guard
    3. Submit through the three-phase protocol

  Multi-step operations (severity under the legacy schema, the
  assign-shop + submit-quote pair) run the full protocol once per
  sub-operation, strictly sequentially, with no rollback: if the second
  step fails the caller observes a partially-applied workflow and
  recovers by re-reading state and re-invoking only what remains.

RECONSTRUCTION:
  ListFor rebuilds the set of claims a claimant owns from ClaimSubmitted
  events: full-range indexed query, (block, log index) ordering, one
  follow-up read per event. Events carry only the identifying token plus
  a few denormalized fields, never the full record.

SEE ALSO:
  - statemachine.go: The guards
  - schema.go: Reply decoding
  - ledger/submit.go: The submission protocol
*/
package claims

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/warp/claims-ledger/ledger"
)

// EventQuerier is the reconstruction dependency; *ledger.EventSource is
// the live implementation.
type EventQuerier interface {
	Query(ctx context.Context, q ledger.EventQuery) ([]ledger.Event, error)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service coordinates claims against the workflow contract.
type Service struct {
	Contract ledger.Invoker
	Events   EventQuerier
	Version  SchemaVersion

	// Workflow identifies the deployed contract for event queries;
	// SubmittedTopic is the ClaimSubmitted event identifier.
	Workflow       common.Address
	SubmittedTopic common.Hash
}

// NewService binds a live contract to the claim workflow.
func NewService(contract *ledger.Contract, events EventQuerier, v SchemaVersion) *Service {
	return &Service{
		Contract:       contract,
		Events:         events,
		Version:        v,
		Workflow:       contract.Address(),
		SubmittedTopic: contract.EventID("ClaimSubmitted"),
	}
}

// =============================================================================
// READS
// =============================================================================

// Get reads and maps the current record for a claim code.
func (s *Service) Get(ctx context.Context, code string) (*Claim, error) {
	token, err := EncodeCode(code)
	if err != nil {
		return nil, err
	}
	return s.getByToken(ctx, token)
}

func (s *Service) getByToken(ctx context.Context, token Code) (*Claim, error) {
	t, err := s.Contract.Call(ctx, "getClaim", [8]byte(token))
	if err != nil {
		return nil, err
	}
	c, err := MapClaim(t, s.Version)
	if err != nil {
		return nil, err
	}
	if c.Code.IsZero() && c.CreatedAt == 0 {
		return nil, fmt.Errorf("claim %s: %w", token, ledger.ErrNotFound)
	}
	return c, nil
}

// ListFor rebuilds every claim submitted by a claimant, ordered by when
// the ledger recorded them. Each call is a fresh, fully-materializing
// query. A claimant with no claims yields an empty slice, not an error.
func (s *Service) ListFor(ctx context.Context, claimant common.Address) ([]*Claim, error) {
	events, err := s.Events.Query(ctx, ledger.EventQuery{
		Contract: s.Workflow,
		Event:    s.SubmittedTopic,
		TopicPos: 2,
		Actor:    ledger.AddressTopic(claimant),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Claim, 0, len(events))
	for _, ev := range events {
		token := Code(ledger.TopicBytes8(ev, 1))
		c, err := s.getByToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("claim %s from event at %d/%d: %w", token, ev.Block, ev.Index, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// =============================================================================
// CREATE
// =============================================================================

// CreateParams carries the wire-format inputs for a new claim. Amounts
// and timestamps arrive as decimal strings, exactly as they cross every
// other boundary of this system.
type CreateParams struct {
	Code            string
	PolicyID        string
	IncidentAt      string
	IncidentAddress string
	Description     string
	IncidentType    IncidentType
}

// Create validates and submits a new claim. The referenced policy must
// exist; the ledger rejects the dry run if it does not.
func (s *Service) Create(ctx context.Context, p CreateParams, opts ledger.TxOpts) (*ledger.Receipt, error) {
	token, err := EncodeCode(p.Code)
	if err != nil {
		return nil, err
	}
	policyID, err := parsePolicyID(p.PolicyID)
	if err != nil {
		return nil, err
	}
	incidentAt, err := ledger.ParseTimestamp("incidentAt", p.IncidentAt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.IncidentAddress) == "" {
		return nil, &ledger.ValidationError{Field: "incidentAddress", Value: p.IncidentAddress, Reason: "empty"}
	}
	if strings.TrimSpace(p.Description) == "" {
		return nil, &ledger.ValidationError{Field: "description", Value: p.Description, Reason: "empty"}
	}
	if int(p.IncidentType) >= len(incidentNames) {
		return nil, &ledger.ValidationError{
			Field: "incidentType", Value: fmt.Sprintf("%d", p.IncidentType), Reason: "unknown incident type",
		}
	}
	return s.Contract.Submit(ctx, opts, "createClaim",
		[8]byte(token), policyID, incidentAt,
		strings.TrimSpace(p.IncidentAddress), strings.TrimSpace(p.Description),
		uint8(p.IncidentType))
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// AssignAdjuster puts an adjuster on a freshly submitted claim.
func (s *Service) AssignAdjuster(ctx context.Context, code string, adjuster common.Address, opts ledger.TxOpts) (*ledger.Receipt, error) {
	token, c, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := CanAssignAdjuster(c, adjuster); err != nil {
		return nil, err
	}
	return s.Contract.Submit(ctx, opts, "setAdjuster", [8]byte(token), adjuster)
}

// ConfirmSeverity records the adjuster's cap amount and notes and advances
// the claim to its severity stage. Under the legacy schema this is two
// sequential sub-operations (propose, then finalize), each running the
// full submission protocol.
func (s *Service) ConfirmSeverity(ctx context.Context, code, capAmount, notes string, opts ledger.TxOpts) (*ledger.Receipt, error) {
	token, c, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	capAmt, err := ledger.ParseAmount("capAmount", capAmount)
	if err != nil {
		return nil, err
	}
	if err := CanConfirmSeverity(c, capAmt); err != nil {
		return nil, err
	}
	if s.Version == SchemaV1 {
		if _, err := s.Contract.Submit(ctx, opts, "proposeSeverity", [8]byte(token), capAmt.BigInt(), notes); err != nil {
			return nil, err
		}
		return s.Contract.Submit(ctx, opts, "finalizeSeverity", [8]byte(token))
	}
	return s.Contract.Submit(ctx, opts, "confirmSeverity", [8]byte(token), capAmt.BigInt(), notes)
}

// SubmitShopQuote assigns the repair shop and records its quote: two
// sequential sub-operations with no rollback. If the quote submission
// fails after the shop assignment committed, the caller re-invokes with
// the same shop; the assignment sub-operation is safely re-checkable.
func (s *Service) SubmitShopQuote(ctx context.Context, code string, shop common.Address, amount, ref string, opts ledger.TxOpts) (*ledger.Receipt, error) {
	token, c, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	quote, err := ledger.ParseAmount("quoteAmount", amount)
	if err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if err := CanSubmitQuote(s.Version, c, shop, quote, ref); err != nil {
		return nil, err
	}
	if _, err := s.Contract.Submit(ctx, opts, "setShop", [8]byte(token), shop); err != nil {
		return nil, err
	}
	if s.Version == SchemaV1 {
		// Legacy quotes carry a settlement currency; the zero address
		// selects the chain's native unit.
		return s.Contract.Submit(ctx, opts, "submitRepairQuote",
			[8]byte(token), quote.BigInt(), ref, common.Address{})
	}
	return s.Contract.Submit(ctx, opts, "submitRepairQuote", [8]byte(token), quote.BigInt(), ref)
}

// ApprovePayout approves a payout amount to a payee. The amount must not
// exceed the lesser of the shop quote and the adjuster cap.
func (s *Service) ApprovePayout(ctx context.Context, code string, payee common.Address, amount string, opts ledger.TxOpts) (*ledger.Receipt, error) {
	token, c, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	approved, err := ledger.ParseAmount("approvedAmount", amount)
	if err != nil {
		return nil, err
	}
	if err := CanApprovePayout(c, payee, approved); err != nil {
		return nil, err
	}
	return s.Contract.Submit(ctx, opts, "approvePayout", [8]byte(token), payee, approved.BigInt())
}

// Deny moves a claim to the terminal Denied state.
func (s *Service) Deny(ctx context.Context, code, reason string, opts ledger.TxOpts) (*ledger.Receipt, error) {
	token, c, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if err := CanDeny(s.Version, c, reason); err != nil {
		return nil, err
	}
	return s.Contract.Submit(ctx, opts, "denyClaim", [8]byte(token), reason)
}

// MarkPaid settles an approved claim. The caller chooses the payment
// direction explicitly; the two directions are distinct code paths with
// distinct payees and transferred values (see PlanPayment). The planned
// value overrides any value set on opts.
func (s *Service) MarkPaid(ctx context.Context, code string, direction PaymentDirection, opts ledger.TxOpts) (Payment, *ledger.Receipt, error) {
	token, c, err := s.load(ctx, code)
	if err != nil {
		return Payment{}, nil, err
	}
	payment, err := PlanPayment(c, direction)
	if err != nil {
		return Payment{}, nil, err
	}
	opts.Value = payment.Value.BigInt()
	receipt, err := s.Contract.Submit(ctx, opts, "markPaid", [8]byte(token), direction == ShopSettlement)
	if err != nil {
		return Payment{}, nil, err
	}
	return payment, receipt, nil
}

// Close archives a settled claim. Legacy schema only; the canonical
// workflow ends at Denied or Paid.
func (s *Service) Close(ctx context.Context, code string, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if s.Version != SchemaV1 {
		return nil, &ledger.PreconditionError{Op: "close", Reason: "close exists only in the legacy workflow"}
	}
	token, c, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDenied && c.Status != StatusPaid {
		return nil, &ledger.PreconditionError{
			Op:     "close",
			Reason: fmt.Sprintf("claim %s is %s, want Denied or Paid", c.Code, c.Status),
		}
	}
	return s.Contract.Submit(ctx, opts, "closeClaim", [8]byte(token))
}

// TransferOwnership hands contract administration to a new owner.
func (s *Service) TransferOwnership(ctx context.Context, newOwner common.Address, opts ledger.TxOpts) (*ledger.Receipt, error) {
	if newOwner == (common.Address{}) {
		return nil, &ledger.ValidationError{Field: "newOwner", Value: newOwner.Hex(), Reason: "zero address"}
	}
	return s.Contract.Submit(ctx, opts, "transferOwnership", newOwner)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) load(ctx context.Context, code string) (Code, *Claim, error) {
	token, err := EncodeCode(code)
	if err != nil {
		return Code{}, nil, err
	}
	c, err := s.getByToken(ctx, token)
	if err != nil {
		return Code{}, nil, err
	}
	return token, c, nil
}

func parsePolicyID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, &ledger.ValidationError{Field: "policyId", Value: s, Reason: "not an unsigned integer"}
	}
	return id, nil
}
