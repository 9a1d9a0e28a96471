/*
abi.go - Claim workflow contract interfaces, both schema generations

PURPOSE:
  The fixed method/event interface of the external Claim contract,
  embedded per schema generation. ABIJSON selects the interface for the
  configured version; the tuple layouts in schema.go mirror the field
  order declared here.

SEE ALSO:
  - schema.go: Positional tables matching these tuple declarations
  - policies/policies.go: The Policy registry interface
*/
package claims

// ABIJSON returns the contract interface for a schema generation.
func ABIJSON(v SchemaVersion) string {
	if v == SchemaV1 {
		return abiJSONLegacy
	}
	return abiJSON
}

// Canonical (v2) interface: 29-field ClaimData, single severity
// confirmation step, explicit shop/claimant payout flag on markPaid.
const abiJSON = `[
{"type":"function","name":"createClaim","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"policyId","type":"uint256"},
  {"name":"incidentAt","type":"uint64"},{"name":"incidentAddress","type":"string"},
  {"name":"description","type":"string"},{"name":"incidentType","type":"uint8"}],
 "outputs":[{"name":"","type":"bytes8"}]},
{"type":"function","name":"getClaim","stateMutability":"view",
 "inputs":[{"name":"claimCode","type":"bytes8"}],
 "outputs":[{"name":"","type":"tuple","components":[
  {"name":"claimCode","type":"bytes8"},
  {"name":"claimant","type":"address"},
  {"name":"createdAt","type":"uint64"},
  {"name":"policyId","type":"uint256"},
  {"name":"policyHolder","type":"address"},
  {"name":"policyEffectiveAt","type":"uint64"},
  {"name":"policyExpiresAt","type":"uint64"},
  {"name":"policyMaxCoverage","type":"uint128"},
  {"name":"policyDeductible","type":"uint128"},
  {"name":"policyDetails","type":"string"},
  {"name":"adjuster","type":"address"},
  {"name":"shop","type":"address"},
  {"name":"payee","type":"address"},
  {"name":"status","type":"uint8"},
  {"name":"submittedAt","type":"uint64"},
  {"name":"severityConfirmedAt","type":"uint64"},
  {"name":"quoteSubmittedAt","type":"uint64"},
  {"name":"approvedAt","type":"uint64"},
  {"name":"paidAt","type":"uint64"},
  {"name":"incidentAt","type":"uint64"},
  {"name":"incidentAddress","type":"string"},
  {"name":"description","type":"string"},
  {"name":"incidentType","type":"uint8"},
  {"name":"capAmount","type":"uint128"},
  {"name":"adjusterNotes","type":"string"},
  {"name":"quoteAmount","type":"uint128"},
  {"name":"quoteRef","type":"string"},
  {"name":"approvedAmount","type":"uint128"},
  {"name":"denialReason","type":"string"}]}]},
{"type":"function","name":"setAdjuster","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"adjuster","type":"address"}],"outputs":[]},
{"type":"function","name":"confirmSeverity","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"capAmount","type":"uint128"},
  {"name":"notes","type":"string"}],"outputs":[]},
{"type":"function","name":"setShop","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"shop","type":"address"}],"outputs":[]},
{"type":"function","name":"submitRepairQuote","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"amount","type":"uint128"},
  {"name":"quoteRef","type":"string"}],"outputs":[]},
{"type":"function","name":"approvePayout","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"payee","type":"address"},
  {"name":"amount","type":"uint128"}],"outputs":[]},
{"type":"function","name":"denyClaim","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"reason","type":"string"}],"outputs":[]},
{"type":"function","name":"markPaid","stateMutability":"payable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"toShop","type":"bool"}],"outputs":[]},
{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[
  {"name":"newOwner","type":"address"}],"outputs":[]},
{"type":"event","name":"ClaimSubmitted","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"claimant","type":"address","indexed":true},
  {"name":"incidentAt","type":"uint64","indexed":false},
  {"name":"incidentAddress","type":"string","indexed":false},
  {"name":"description","type":"string","indexed":false},
  {"name":"incidentType","type":"uint8","indexed":false},
  {"name":"policyId","type":"uint256","indexed":true}]},
{"type":"event","name":"ShopAssigned","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"shop","type":"address","indexed":true}]},
{"type":"event","name":"QuoteSubmitted","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"shop","type":"address","indexed":true},
  {"name":"quoteAmount","type":"uint128","indexed":false},
  {"name":"quoteRef","type":"string","indexed":false}]},
{"type":"event","name":"PayoutApproved","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"payee","type":"address","indexed":true},
  {"name":"amount","type":"uint128","indexed":false}]},
{"type":"event","name":"ClaimDenied","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"reason","type":"string","indexed":false}]},
{"type":"event","name":"ClaimPaid","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"payee","type":"address","indexed":true},
  {"name":"amount","type":"uint128","indexed":false},
  {"name":"toShop","type":"bool","indexed":false}]}
]`

// Legacy (v1) interface: 36-field ClaimData, two-step severity
// (propose then finalize), per-quote currency, escrow bookkeeping,
// explicit close step after payout.
const abiJSONLegacy = `[
{"type":"function","name":"createClaim","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"policyId","type":"uint256"},
  {"name":"incidentAt","type":"uint64"},{"name":"incidentAddress","type":"string"},
  {"name":"description","type":"string"},{"name":"incidentType","type":"uint8"}],
 "outputs":[{"name":"","type":"bytes8"}]},
{"type":"function","name":"getClaim","stateMutability":"view",
 "inputs":[{"name":"claimCode","type":"bytes8"}],
 "outputs":[{"name":"","type":"tuple","components":[
  {"name":"claimCode","type":"bytes8"},
  {"name":"claimant","type":"address"},
  {"name":"createdAt","type":"uint64"},
  {"name":"policyId","type":"uint256"},
  {"name":"policyHolder","type":"address"},
  {"name":"policyEffectiveAt","type":"uint64"},
  {"name":"policyExpiresAt","type":"uint64"},
  {"name":"policyMaxCoverage","type":"uint128"},
  {"name":"policyDeductible","type":"uint128"},
  {"name":"policyDetails","type":"string"},
  {"name":"adjuster","type":"address"},
  {"name":"shop","type":"address"},
  {"name":"payee","type":"address"},
  {"name":"status","type":"uint8"},
  {"name":"submittedAt","type":"uint64"},
  {"name":"severityProposedAt","type":"uint64"},
  {"name":"severityFinalizedAt","type":"uint64"},
  {"name":"quoteSubmittedAt","type":"uint64"},
  {"name":"approvedAt","type":"uint64"},
  {"name":"paidAt","type":"uint64"},
  {"name":"closedAt","type":"uint64"},
  {"name":"incidentAt","type":"uint64"},
  {"name":"incidentAddress","type":"string"},
  {"name":"description","type":"string"},
  {"name":"incidentType","type":"uint8"},
  {"name":"finalCapAmount","type":"uint128"},
  {"name":"adjusterNotes","type":"string"},
  {"name":"isCapLocked","type":"bool"},
  {"name":"quoteAmount","type":"uint128"},
  {"name":"quoteRef","type":"string"},
  {"name":"quoteCurrency","type":"address"},
  {"name":"approvedAmount","type":"uint128"},
  {"name":"payoutCurrency","type":"address"},
  {"name":"escrowId","type":"uint256"},
  {"name":"payoutToShop","type":"bool"},
  {"name":"payoutTxRef","type":"bytes32"}]}]},
{"type":"function","name":"setAdjuster","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"adjuster","type":"address"}],"outputs":[]},
{"type":"function","name":"proposeSeverity","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"capAmount","type":"uint128"},
  {"name":"notes","type":"string"}],"outputs":[]},
{"type":"function","name":"finalizeSeverity","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"}],"outputs":[]},
{"type":"function","name":"setShop","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"shop","type":"address"}],"outputs":[]},
{"type":"function","name":"submitRepairQuote","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"amount","type":"uint128"},
  {"name":"quoteRef","type":"string"},{"name":"currency","type":"address"}],"outputs":[]},
{"type":"function","name":"approvePayout","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"payee","type":"address"},
  {"name":"amount","type":"uint128"}],"outputs":[]},
{"type":"function","name":"denyClaim","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"reason","type":"string"}],"outputs":[]},
{"type":"function","name":"markPaid","stateMutability":"payable","inputs":[
  {"name":"claimCode","type":"bytes8"},{"name":"toShop","type":"bool"}],"outputs":[]},
{"type":"function","name":"closeClaim","stateMutability":"nonpayable","inputs":[
  {"name":"claimCode","type":"bytes8"}],"outputs":[]},
{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[
  {"name":"newOwner","type":"address"}],"outputs":[]},
{"type":"event","name":"ClaimSubmitted","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"claimant","type":"address","indexed":true},
  {"name":"incidentAt","type":"uint64","indexed":false},
  {"name":"incidentAddress","type":"string","indexed":false},
  {"name":"description","type":"string","indexed":false},
  {"name":"incidentType","type":"uint8","indexed":false},
  {"name":"policyId","type":"uint256","indexed":true}]},
{"type":"event","name":"ShopAssigned","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"shop","type":"address","indexed":true}]},
{"type":"event","name":"QuoteSubmitted","anonymous":false,"inputs":[
  {"name":"claimCode","type":"bytes8","indexed":true},
  {"name":"shop","type":"address","indexed":true},
  {"name":"quoteAmount","type":"uint128","indexed":false},
  {"name":"quoteRef","type":"string","indexed":false},
  {"name":"quoteCurrency","type":"address","indexed":false}]}
]`
