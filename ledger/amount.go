/*
amount.go - Monetary and timestamp field validation

PURPOSE:
  Monetary fields cross the ledger boundary as decimal-string-encoded
  unsigned integers up to 128 bits, because values of that width exceed
  native numeric range in every client environment this system talks to.
  This file validates and converts those strings without precision loss.

REPRESENTATION:
  Amount keeps both forms: decimal.Decimal for comparisons the state
  machine performs (cap vs quote), and *big.Int for ABI encoding.
  No implicit unit conversion is performed anywhere in this module.

SEE ALSO:
  - claims/statemachine.go: Compares amounts during precondition checks
  - contract.go: Feeds the big.Int form to the ABI encoder
*/
package ledger

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// maxUint128 = 2^128 - 1, the widest unsigned integer the ledger carries.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Amount is an unsigned currency-minor-unit integer up to 128 bits.
type Amount struct {
	dec decimal.Decimal
	big *big.Int
}

// ParseAmount validates a decimal-string-encoded unsigned integer.
// Fails with a ValidationError for anything that is not a plain base-10
// unsigned integer within 128 bits.
func ParseAmount(field, s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, &ValidationError{Field: field, Value: s, Reason: "empty"}
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, &ValidationError{Field: field, Value: s, Reason: "not a base-10 integer"}
	}
	if i.Sign() < 0 {
		return Amount{}, &ValidationError{Field: field, Value: s, Reason: "negative"}
	}
	if i.Cmp(maxUint128) > 0 {
		return Amount{}, &ValidationError{Field: field, Value: s, Reason: "exceeds 128 bits"}
	}
	return Amount{dec: decimal.NewFromBigInt(i, 0), big: i}, nil
}

// AmountFromBig wraps a value already decoded from the ledger.
// The ledger is trusted to stay within 128 bits on the read path.
func AmountFromBig(i *big.Int) Amount {
	if i == nil {
		i = new(big.Int)
	}
	return Amount{dec: decimal.NewFromBigInt(i, 0), big: new(big.Int).Set(i)}
}

func (a Amount) BigInt() *big.Int {
	if a.big == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.big)
}

func (a Amount) Decimal() decimal.Decimal { return a.dec }
func (a Amount) String() string           { return a.dec.String() }
func (a Amount) IsZero() bool             { return a.big == nil || a.big.Sign() == 0 }

func (a Amount) Cmp(b Amount) int { return a.dec.Cmp(b.dec) }

// Sub returns a-b. The caller guarantees a >= b; the state machine checks
// approvedAmount <= quoteAmount before any subtraction happens.
func (a Amount) Sub(b Amount) Amount {
	return AmountFromBig(new(big.Int).Sub(a.BigInt(), b.BigInt()))
}

func (a Amount) Min(b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// ParseTimestamp validates an epoch-seconds field. Zero is rejected because
// every timestamp the workflow submits marks a real moment.
func ParseTimestamp(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: field, Value: s, Reason: "empty"}
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok || i.Sign() < 0 || !i.IsUint64() {
		return 0, &ValidationError{Field: field, Value: s, Reason: "not an unsigned epoch-seconds value"}
	}
	ts := i.Uint64()
	if ts == 0 {
		return 0, &ValidationError{Field: field, Value: s, Reason: "zero timestamp"}
	}
	return ts, nil
}
