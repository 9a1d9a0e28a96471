/*
handlers.go - HTTP API handlers for the claims workflow system

PURPOSE:
  Exposes the claim and policy workflow via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Claims:
    GET    /api/claims?claimant=0x..     List claims for a claimant
    POST   /api/claims                   Submit a new claim
    GET    /api/claims/{code}            Get reconstructed claim
    POST   /api/claims/{code}/adjuster   Assign adjuster
    POST   /api/claims/{code}/severity   Confirm severity (cap + notes)
    POST   /api/claims/{code}/quote      Bind shop and repair quote
    POST   /api/claims/{code}/payout     Approve payout
    POST   /api/claims/{code}/deny       Deny claim
    POST   /api/claims/{code}/paid       Settle (shop or direct)
    POST   /api/claims/{code}/close      Close (legacy schema only)

  Policies:
    GET    /api/policies?holder=0x..     List policies for a holder
    POST   /api/policies                 Register a policy
    GET    /api/policies/{id}            Get policy
    GET    /api/policies/{id}/active     Coverage check at ?at=<epoch>

  Accounts:
    GET    /api/accounts                 List node-managed accounts
    POST   /api/accounts/sender          Select the submitting account

  Raw (operator tooling):
    POST   /api/contracts/{contract}/call   Read by method name
    POST   /api/contracts/{contract}/send   Submit by method name

ERROR HANDLING:
  Domain errors map onto HTTP status by sentinel:
  - 400: ledger.ErrValidation (malformed code, amount, address, timestamp)
  - 404: ledger.ErrNotFound
  - 409: ledger.ErrPrecondition (state machine rejected the transition)
  - 422: ledger.ErrDryRunRejected (the ledger's own rules rejected it)
  - 502: ledger.ErrSubmissionFailed, ledger.ErrSchemaMismatch
  - 500: everything else

SECURITY NOTE:
  Currently NO authentication or authorization. The submitting identity is
  whichever node-managed account was last selected. Suitable for a dev
  ledger only.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"github.com/warp/claims-ledger/claims"
	"github.com/warp/claims-ledger/ledger"
	"github.com/warp/claims-ledger/policies"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// AccountLister exposes the node's managed accounts.
type AccountLister interface {
	Accounts(ctx context.Context) ([]common.Address, error)
}

// RawContract is the by-name contract surface behind the raw endpoints.
type RawContract interface {
	Invoke(ctx context.Context, method string, args ...string) (ledger.Tuple, error)
	Send(ctx context.Context, opts ledger.TxOpts, method string, args ...string) (*ledger.Receipt, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Claims   *claims.Service
	Policies *policies.Service
	Client   *ledger.Client
	Node     AccountLister

	// Contracts names the handles reachable through the raw endpoints.
	// Optional; requests for absent names return 404.
	Contracts map[string]RawContract
}

// NewHandler creates a new handler.
func NewHandler(cs *claims.Service, ps *policies.Service, client *ledger.Client, node AccountLister) *Handler {
	return &Handler{Claims: cs, Policies: ps, Client: client, Node: node}
}

// =============================================================================
// CLAIM HANDLERS
// =============================================================================

// ListClaims returns every claim the given claimant has submitted.
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	claimant, err := parseAddress("claimant", r.URL.Query().Get("claimant"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	list, err := h.Claims.ListFor(r.Context(), claimant)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ClaimDTO, len(list))
	for i, c := range list {
		dtos[i] = toClaimDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClaim returns one reconstructed claim.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	c, err := h.Claims.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimDTO(c))
}

// CreateClaim submits a new claim.
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	var req CreateClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	incident, err := claims.ParseIncidentType(req.IncidentType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	opts, err := toTxOpts(req.Tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	receipt, err := h.Claims.Create(r.Context(), claims.CreateParams{
		Code:            req.Code,
		PolicyID:        req.PolicyID,
		IncidentAt:      req.IncidentAt,
		IncidentAddress: req.IncidentAddress,
		Description:     req.Description,
		IncidentType:    incident,
	}, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptDTO(receipt))
}

// AssignAdjuster assigns an adjuster to a submitted claim.
func (h *Handler) AssignAdjuster(w http.ResponseWriter, r *http.Request) {
	var req AssignAdjusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	adjuster, err := parseAddress("adjuster", req.Adjuster)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.submit(w, r, req.Tx, func(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
		return h.Claims.AssignAdjuster(ctx, chi.URLParam(r, "code"), adjuster, opts)
	})
}

// ConfirmSeverity records the adjuster's assessment and payout cap.
func (h *Handler) ConfirmSeverity(w http.ResponseWriter, r *http.Request) {
	var req ConfirmSeverityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.submit(w, r, req.Tx, func(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
		return h.Claims.ConfirmSeverity(ctx, chi.URLParam(r, "code"), req.CapAmount, req.Notes, opts)
	})
}

// SubmitQuote binds the repair shop and its quoted amount.
func (h *Handler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	var req SubmitQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shop, err := parseAddress("shop", req.Shop)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.submit(w, r, req.Tx, func(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
		return h.Claims.SubmitShopQuote(ctx, chi.URLParam(r, "code"), shop, req.Amount, req.QuoteRef, opts)
	})
}

// ApprovePayout approves a payout for a quoted claim.
func (h *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	var req ApprovePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payee, err := parseAddress("payee", req.Payee)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.submit(w, r, req.Tx, func(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
		return h.Claims.ApprovePayout(ctx, chi.URLParam(r, "code"), payee, req.Amount, opts)
	})
}

// DenyClaim denies a claim with a recorded reason.
func (h *Handler) DenyClaim(w http.ResponseWriter, r *http.Request) {
	var req DenyClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.submit(w, r, req.Tx, func(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
		return h.Claims.Deny(ctx, chi.URLParam(r, "code"), req.Reason, opts)
	})
}

// MarkPaid settles an approved claim along the requested direction.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	direction, err := claims.ParsePaymentDirection(req.Direction)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	opts, err := toTxOpts(req.Tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payment, receipt, err := h.Claims.MarkPaid(r.Context(), chi.URLParam(r, "code"), direction, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkPaidResponse{
		Payment: toPaymentDTO(payment),
		Receipt: toReceiptDTO(receipt),
	})
}

// CloseClaim closes a settled or denied claim. Legacy schema only.
func (h *Handler) CloseClaim(w http.ResponseWriter, r *http.Request) {
	var req DenyClaimRequest // reuses the tx envelope; reason ignored
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	h.submit(w, r, req.Tx, func(ctx context.Context, opts ledger.TxOpts) (*ledger.Receipt, error) {
		return h.Claims.Close(ctx, chi.URLParam(r, "code"), opts)
	})
}

// submit is the shared tail of every state-changing claim handler.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, tx TxOptsDTO, fn func(context.Context, ledger.TxOpts) (*ledger.Receipt, error)) {
	opts, err := toTxOpts(tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	receipt, err := fn(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(receipt))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns every policy held by the given address.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	holder, err := parseAddress("holder", r.URL.Query().Get("holder"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	list, err := h.Policies.ListFor(r.Context(), holder)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PolicyDTO, len(list))
	for i, p := range list {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy registers a new policy.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	opts, err := toTxOpts(req.Tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, receipt, err := h.Policies.Create(r.Context(), policies.CreateParams{
		EffectiveAt: req.EffectiveAt,
		ExpiresAt:   req.ExpiresAt,
		MaxCoverage: req.MaxCoverage,
		Deductible:  req.Deductible,
		Details:     req.Details,
	}, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatePolicyResponse{
		PolicyID: id.String(),
		Receipt:  toReceiptDTO(receipt),
	})
}

// GetPolicy returns one policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := parsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p, err := h.Policies.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

// PolicyActive reports whether a policy covers the instant ?at=<epoch>.
func (h *Handler) PolicyActive(w http.ResponseWriter, r *http.Request) {
	id, err := parsePolicyID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	at, err := strconv.ParseUint(r.URL.Query().Get("at"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'at' query parameter (epoch seconds)", err)
		return
	}

	active, err := h.Policies.IsActiveAt(r.Context(), id, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the node-managed accounts available for submission.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Node.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to list accounts", err)
		return
	}

	hexes := make([]string, len(accounts))
	for i, a := range accounts {
		hexes[i] = a.Hex()
	}
	writeJSON(w, http.StatusOK, hexes)
}

// SetSender selects the account used for subsequent submissions.
func (h *Handler) SetSender(w http.ResponseWriter, r *http.Request) {
	var req SenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	addr, err := parseAddress("address", req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.Client.SetSender(addr)
	writeJSON(w, http.StatusOK, map[string]string{"sender": addr.Hex()})
}

// =============================================================================
// RAW CONTRACT HANDLERS
// =============================================================================

// RawCall executes an arbitrary read by method name. Operator tooling;
// everything the workflow does routinely has a typed endpoint instead.
func (h *Handler) RawCall(w http.ResponseWriter, r *http.Request) {
	contract, ok := h.rawContract(w, r)
	if !ok {
		return
	}
	var req RawCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reply, err := contract.Invoke(r.Context(), req.Method, req.Args...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	values := make([]string, 0, reply.Len())
	for _, v := range reply.Values() {
		values = append(values, formatValue(v))
	}
	writeJSON(w, http.StatusOK, RawCallResponse{Values: values})
}

// RawSend executes an arbitrary state-changing call by method name.
func (h *Handler) RawSend(w http.ResponseWriter, r *http.Request) {
	contract, ok := h.rawContract(w, r)
	if !ok {
		return
	}
	var req RawSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	opts, err := toTxOpts(req.Tx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	receipt, err := contract.Send(r.Context(), opts, req.Method, req.Args...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(receipt))
}

func (h *Handler) rawContract(w http.ResponseWriter, r *http.Request) (RawContract, bool) {
	name := chi.URLParam(r, "contract")
	contract, ok := h.Contracts[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown contract "+strconv.Quote(name), nil)
		return nil, false
	}
	return contract, true
}

func formatValue(v any) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case *big.Int:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case [8]byte:
		return hexutil.Encode(x[:])
	case [32]byte:
		return hexutil.Encode(x[:])
	case []byte:
		return hexutil.Encode(x)
	default:
		return fmt.Sprint(x)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, &ledger.ValidationError{Field: field, Value: s, Reason: "not a hex address"}
	}
	return common.HexToAddress(s), nil
}

func parsePolicyID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, &ledger.ValidationError{Field: "policyId", Value: s, Reason: "not an unsigned decimal integer"}
	}
	return id, nil
}

func toTxOpts(dto TxOptsDTO) (ledger.TxOpts, error) {
	opts := ledger.TxOpts{GasLimit: dto.GasLimit}
	if dto.GasPrice != "" {
		price, ok := new(big.Int).SetString(dto.GasPrice, 10)
		if !ok || price.Sign() < 0 {
			return ledger.TxOpts{}, &ledger.ValidationError{Field: "gasPrice", Value: dto.GasPrice, Reason: "not an unsigned decimal integer"}
		}
		opts.GasPrice = price
	}
	return opts, nil
}

// writeDomainError translates domain sentinels into HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrPrecondition):
		writeError(w, http.StatusConflict, "Precondition failed", err)
	case errors.Is(err, ledger.ErrDryRunRejected):
		writeError(w, http.StatusUnprocessableEntity, "Rejected by the ledger", err)
	case errors.Is(err, ledger.ErrSubmissionFailed), errors.Is(err, ledger.ErrSchemaMismatch):
		writeError(w, http.StatusBadGateway, "Ledger interaction failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
