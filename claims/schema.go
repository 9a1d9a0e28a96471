/*
schema.go - Versioned claim tuple layouts and the tuple mapper

PURPOSE:
  The Claim record exists in two incompatible schema generations. They
  differ in field count and order (36 fields vs 29), in severity-stage
  timestamps (propose/finalize vs a single confirmation), and in status
  enumeration cardinality (8 codes vs 6). A single layout struct per
  version enumerates field order; the mapper is parameterized by an
  explicit SchemaVersion instead of hard-coding offsets.

RESOLUTION:
  Every field resolves named-first, then by the version's positional
  index (ledger.Tuple.Field). A required field absent under both
  strategies fails with a SchemaMismatchError. Mapping has no side
  effects.

CANONICAL VERSION:
  SchemaV2 is canonical. SchemaV1 is retained as a documented variant
  for decoding legacy deployments; its extra fields land in the
  legacy-only Claim members.

SEE ALSO:
  - types.go: The mapped domain record
  - statemachine.go: Per-version status code tables
*/
package claims

import (
	"fmt"

	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// SCHEMA VERSION
// =============================================================================

type SchemaVersion int

const (
	// SchemaV1 is the legacy 36-field, 8-status generation.
	SchemaV1 SchemaVersion = 1

	// SchemaV2 is the canonical 29-field, 6-status generation.
	SchemaV2 SchemaVersion = 2
)

func (v SchemaVersion) String() string {
	if v == SchemaV1 {
		return "v1"
	}
	return "v2"
}

// ParseSchemaVersion reads a configuration value.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	switch s {
	case "v1", "1", "legacy":
		return SchemaV1, nil
	case "v2", "2", "":
		return SchemaV2, nil
	}
	return 0, &ledger.ValidationError{Field: "schema", Value: s, Reason: "want v1 or v2"}
}

// =============================================================================
// LAYOUT - One field-order table per version
// =============================================================================

// layout enumerates the positional index of every named field for one
// schema generation. Fields a generation does not carry are simply absent
// from its table.
type layout struct {
	index    map[string]int
	statuses []Status
	capField string // the cap amount was renamed between generations
}

func (l layout) at(name string) int {
	if i, ok := l.index[name]; ok {
		return i
	}
	return -1
}

func (l layout) has(name string) bool {
	_, ok := l.index[name]
	return ok
}

var layouts = map[SchemaVersion]layout{
	SchemaV1: {
		capField: "finalCapAmount",
		statuses: []Status{
			StatusSubmitted, StatusSeverityProposed, StatusSeverityFinalized,
			StatusQuoteSubmitted, StatusPayoutApproved, StatusDenied,
			StatusPaid, StatusClosed,
		},
		index: map[string]int{
			"claimCode": 0, "claimant": 1, "createdAt": 2,
			"policyId": 3, "policyHolder": 4, "policyEffectiveAt": 5,
			"policyExpiresAt": 6, "policyMaxCoverage": 7, "policyDeductible": 8,
			"policyDetails": 9,
			"adjuster":      10, "shop": 11, "payee": 12,
			"status":      13,
			"submittedAt": 14, "severityProposedAt": 15, "severityFinalizedAt": 16,
			"quoteSubmittedAt": 17, "approvedAt": 18, "paidAt": 19, "closedAt": 20,
			"incidentAt": 21, "incidentAddress": 22, "description": 23,
			"incidentType": 24,
			"finalCapAmount": 25, "adjusterNotes": 26, "isCapLocked": 27,
			"quoteAmount": 28, "quoteRef": 29, "quoteCurrency": 30,
			"approvedAmount": 31, "payoutCurrency": 32, "escrowId": 33,
			"payoutToShop": 34, "payoutTxRef": 35,
		},
	},
	SchemaV2: {
		capField: "capAmount",
		statuses: []Status{
			StatusSubmitted, StatusSeveritySubmitted, StatusQuoteSubmitted,
			StatusPayoutApproved, StatusDenied, StatusPaid,
		},
		index: map[string]int{
			"claimCode": 0, "claimant": 1, "createdAt": 2,
			"policyId": 3, "policyHolder": 4, "policyEffectiveAt": 5,
			"policyExpiresAt": 6, "policyMaxCoverage": 7, "policyDeductible": 8,
			"policyDetails": 9,
			"adjuster":      10, "shop": 11, "payee": 12,
			"status":      13,
			"submittedAt": 14, "severityConfirmedAt": 15, "quoteSubmittedAt": 16,
			"approvedAt": 17, "paidAt": 18,
			"incidentAt": 19, "incidentAddress": 20, "description": 21,
			"incidentType": 22,
			"capAmount":    23, "adjusterNotes": 24,
			"quoteAmount":  25, "quoteRef": 26,
			"approvedAmount": 27, "denialReason": 28,
		},
	},
}

// =============================================================================
// STATUS CODES
// =============================================================================

// ParseStatus maps a wire status code to the version's enumeration.
func ParseStatus(v SchemaVersion, code uint8) (Status, error) {
	statuses := layouts[v].statuses
	if int(code) >= len(statuses) {
		return "", fmt.Errorf("status code %d not in %s enumeration: %w", code, v, ledger.ErrSchemaMismatch)
	}
	return statuses[code], nil
}

// StatusCode maps a status back to its wire code for the version.
func StatusCode(v SchemaVersion, s Status) (uint8, bool) {
	for i, candidate := range layouts[v].statuses {
		if candidate == s {
			return uint8(i), true
		}
	}
	return 0, false
}

// =============================================================================
// TUPLE MAPPER
// =============================================================================

// MapClaim converts a ledger tuple reply into the domain record for the
// given schema version. Accepts field-named, positional, or mixed tuples.
func MapClaim(t ledger.Tuple, v SchemaVersion) (*Claim, error) {
	l, ok := layouts[v]
	if !ok {
		return nil, &ledger.ValidationError{Field: "schema", Value: v.String(), Reason: "unknown schema version"}
	}

	c := &Claim{}
	var err error

	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}

	read(func() error {
		raw, e := t.Bytes8("claimCode", l.at("claimCode"))
		c.Code = Code(raw)
		return e
	})
	read(func() error { var e error; c.Claimant, e = t.Address("claimant", l.at("claimant")); return e })
	read(func() error { var e error; c.CreatedAt, e = t.Uint64("createdAt", l.at("createdAt")); return e })
	read(func() error { var e error; c.PolicyID, e = t.BigInt("policyId", l.at("policyId")); return e })

	// Denormalized policy snapshot, captured at claim creation.
	read(func() error { var e error; c.Policy.Holder, e = t.Address("policyHolder", l.at("policyHolder")); return e })
	read(func() error {
		var e error
		c.Policy.EffectiveAt, e = t.Uint64("policyEffectiveAt", l.at("policyEffectiveAt"))
		return e
	})
	read(func() error {
		var e error
		c.Policy.ExpiresAt, e = t.Uint64("policyExpiresAt", l.at("policyExpiresAt"))
		return e
	})
	read(func() error {
		b, e := t.BigInt("policyMaxCoverage", l.at("policyMaxCoverage"))
		c.Policy.MaxCoverage = ledger.AmountFromBig(b)
		return e
	})
	read(func() error {
		b, e := t.BigInt("policyDeductible", l.at("policyDeductible"))
		c.Policy.Deductible = ledger.AmountFromBig(b)
		return e
	})
	read(func() error { var e error; c.Policy.Details, e = t.String("policyDetails", l.at("policyDetails")); return e })

	read(func() error { var e error; c.Adjuster, e = t.Address("adjuster", l.at("adjuster")); return e })
	read(func() error { var e error; c.Shop, e = t.Address("shop", l.at("shop")); return e })
	read(func() error { var e error; c.Payee, e = t.Address("payee", l.at("payee")); return e })

	read(func() error {
		code, e := t.Uint8("status", l.at("status"))
		if e != nil {
			return e
		}
		c.Status, e = ParseStatus(v, code)
		return e
	})

	read(func() error { var e error; c.SubmittedAt, e = t.Uint64("submittedAt", l.at("submittedAt")); return e })
	read(func() error { var e error; c.QuoteSubmittedAt, e = t.Uint64("quoteSubmittedAt", l.at("quoteSubmittedAt")); return e })
	read(func() error { var e error; c.ApprovedAt, e = t.Uint64("approvedAt", l.at("approvedAt")); return e })
	read(func() error { var e error; c.PaidAt, e = t.Uint64("paidAt", l.at("paidAt")); return e })

	read(func() error { var e error; c.IncidentAt, e = t.Uint64("incidentAt", l.at("incidentAt")); return e })
	read(func() error { var e error; c.IncidentAddress, e = t.String("incidentAddress", l.at("incidentAddress")); return e })
	read(func() error { var e error; c.Description, e = t.String("description", l.at("description")); return e })
	read(func() error {
		raw, e := t.Uint8("incidentType", l.at("incidentType"))
		c.IncidentType = IncidentType(raw)
		return e
	})

	read(func() error {
		b, e := t.BigInt(l.capField, l.at(l.capField))
		c.CapAmount = ledger.AmountFromBig(b)
		return e
	})
	read(func() error { var e error; c.AdjusterNotes, e = t.String("adjusterNotes", l.at("adjusterNotes")); return e })
	read(func() error {
		b, e := t.BigInt("quoteAmount", l.at("quoteAmount"))
		c.QuoteAmount = ledger.AmountFromBig(b)
		return e
	})
	read(func() error { var e error; c.QuoteRef, e = t.String("quoteRef", l.at("quoteRef")); return e })
	read(func() error {
		b, e := t.BigInt("approvedAmount", l.at("approvedAmount"))
		c.ApprovedAmount = ledger.AmountFromBig(b)
		return e
	})
	if err != nil {
		return nil, err
	}

	// Generation-specific members.
	if l.has("severityConfirmedAt") {
		if c.SeverityConfirmedAt, err = t.Uint64("severityConfirmedAt", l.at("severityConfirmedAt")); err != nil {
			return nil, err
		}
	}
	if l.has("denialReason") {
		if c.DenialReason, err = t.String("denialReason", l.at("denialReason")); err != nil {
			return nil, err
		}
	}
	if l.has("severityProposedAt") {
		read(func() error {
			var e error
			c.SeverityProposedAt, e = t.Uint64("severityProposedAt", l.at("severityProposedAt"))
			return e
		})
		read(func() error {
			var e error
			c.SeverityFinalizedAt, e = t.Uint64("severityFinalizedAt", l.at("severityFinalizedAt"))
			return e
		})
		read(func() error { var e error; c.ClosedAt, e = t.Uint64("closedAt", l.at("closedAt")); return e })
		read(func() error { var e error; c.CapLocked, e = t.Bool("isCapLocked", l.at("isCapLocked")); return e })
		read(func() error { var e error; c.QuoteCurrency, e = t.Address("quoteCurrency", l.at("quoteCurrency")); return e })
		read(func() error { var e error; c.PayoutCurrency, e = t.Address("payoutCurrency", l.at("payoutCurrency")); return e })
		read(func() error { var e error; c.EscrowID, e = t.BigInt("escrowId", l.at("escrowId")); return e })
		read(func() error { var e error; c.PayoutToShop, e = t.Bool("payoutToShop", l.at("payoutToShop")); return e })
		read(func() error { var e error; c.PayoutTxRef, e = t.Bytes32("payoutTxRef", l.at("payoutTxRef")); return e })
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}
