/*
code.go - Claim code codec

PURPOSE:
  A claim code is the human-meaningful identifier of a claim: exactly 8
  ASCII characters, one upper-case letter followed by seven digits,
  carried on the wire as a fixed 8-byte token (left-justified; exactly 8
  bytes, so no padding ever applies).

ROUND-TRIP LAW:
  DecodeCode(EncodeCode(x)) == uppercase(trim(x)) for every valid x.

  Encoding is strict and fails with a validation error before anything
  touches the network. Decoding is best-effort: it is used to display
  possibly-foreign tokens, so a malformed token renders as its raw hex
  form instead of failing.

SEE ALSO:
  - schema.go: Reads the token out of claim tuples
  - service.go: Encodes caller-supplied codes before submission
*/
package claims

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/warp/claims-ledger/ledger"
)

// Code is the fixed 8-byte wire form of a claim code.
type Code [8]byte

var codePattern = regexp.MustCompile(`^[A-Z][0-9]{7}$`)

// EncodeCode normalizes and encodes a claim code. Input is trimmed and
// case-normalized to upper-case before matching ^[A-Z][0-9]{7}$.
func EncodeCode(s string) (Code, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if !codePattern.MatchString(normalized) {
		return Code{}, &ledger.ValidationError{
			Field:  "claimCode",
			Value:  s,
			Reason: "must match ^[A-Z][0-9]{7}$",
		}
	}
	var c Code
	copy(c[:], normalized)
	return c, nil
}

// DecodeCode renders a token for display. Conforming tokens decode to
// their ASCII text; anything else renders as raw hex rather than failing,
// since this path handles possibly-foreign data.
func DecodeCode(b [8]byte) string {
	s := string(b[:])
	if codePattern.MatchString(s) {
		return s
	}
	return fmt.Sprintf("0x%x", b)
}

func (c Code) String() string { return DecodeCode(c) }

// IsZero reports whether the token is entirely unset.
func (c Code) IsZero() bool { return c == Code{} }
