/*
tuple.go - Dual-path resolution of ledger tuple replies

PURPOSE:
  The ledger returns records either as field-named structures or as
  positional sequences depending on encoding mode, and the same logical
  field sits at different positions across schema generations. A Tuple
  carries both views and resolves every lookup by trying the named key
  first, then the fixed positional index supplied by the caller's
  schema table.

CONSTRUCTION:
  Contract reads produce Tuples two ways:
  - Multi-output methods: output names zipped with unpacked values.
  - Single tuple outputs: the ABI decoder materializes an anonymous
    struct; fromReflected flattens it using the abi struct tags.

  Either construction may be partial. A Tuple built purely positionally
  (empty name map) still resolves every field through its index, which is
  what keeps decoding working when the ledger omits names.

SEE ALSO:
  - claims/schema.go, policies/policies.go: Field tables that drive lookups
  - errors.go: SchemaMismatchError
*/
package ledger

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// =============================================================================
// TUPLE
// =============================================================================

// Tuple is one decoded ledger record. Zero value is an empty record.
type Tuple struct {
	named map[string]any
	pos   []any
}

// NewTuple builds a Tuple from parallel name/value slices. Empty names are
// allowed; those fields are then reachable only by position.
func NewTuple(names []string, values []any) Tuple {
	t := Tuple{named: make(map[string]any, len(values)), pos: values}
	for i, n := range names {
		if i >= len(values) {
			break
		}
		if n != "" {
			t.named[n] = values[i]
		}
	}
	return t
}

// Positional builds a Tuple with no field names at all.
func Positional(values []any) Tuple {
	return Tuple{named: map[string]any{}, pos: values}
}

// Len reports the number of positional slots.
func (t Tuple) Len() int { return len(t.pos) }

// Values returns the positional view as a fresh slice.
func (t Tuple) Values() []any {
	out := make([]any, len(t.pos))
	copy(out, t.pos)
	return out
}

// Field resolves a logical field: named key first, then positional index.
// Returns a SchemaMismatchError when the field is absent under both
// strategies.
func (t Tuple) Field(name string, index int) (any, error) {
	if v, ok := t.named[name]; ok {
		return v, nil
	}
	if index >= 0 && index < len(t.pos) {
		return t.pos[index], nil
	}
	return nil, &SchemaMismatchError{Field: name, Index: index}
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

func (t Tuple) Address(name string, index int) (common.Address, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return common.Address{}, err
	}
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, wrongType(name, "address", v)
	}
	return a, nil
}

func (t Tuple) BigInt(name string, index int) (*big.Int, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *big.Int:
		return new(big.Int).Set(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	}
	return nil, wrongType(name, "uint", v)
}

func (t Tuple) Uint64(name string, index int) (uint64, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case uint64:
		return x, nil
	case *big.Int:
		if !x.IsUint64() {
			return 0, wrongType(name, "uint64", v)
		}
		return x.Uint64(), nil
	}
	return 0, wrongType(name, "uint64", v)
}

func (t Tuple) Uint8(name string, index int) (uint8, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case uint8:
		return x, nil
	case *big.Int:
		if !x.IsUint64() || x.Uint64() > 255 {
			return 0, wrongType(name, "uint8", v)
		}
		return uint8(x.Uint64()), nil
	}
	return 0, wrongType(name, "uint8", v)
}

func (t Tuple) Bool(name string, index int) (bool, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(name, "bool", v)
	}
	return b, nil
}

func (t Tuple) String(name string, index int) (string, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(name, "string", v)
	}
	return s, nil
}

func (t Tuple) Bytes8(name string, index int) ([8]byte, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return [8]byte{}, err
	}
	b, ok := v.([8]byte)
	if !ok {
		return [8]byte{}, wrongType(name, "bytes8", v)
	}
	return b, nil
}

func (t Tuple) Bytes32(name string, index int) ([32]byte, error) {
	v, err := t.Field(name, index)
	if err != nil {
		return [32]byte{}, err
	}
	b, ok := v.([32]byte)
	if !ok {
		return [32]byte{}, wrongType(name, "bytes32", v)
	}
	return b, nil
}

func wrongType(name, want string, got any) error {
	return fmt.Errorf("field %q: want %s, got %T: %w", name, want, got, ErrSchemaMismatch)
}

// =============================================================================
// CONSTRUCTION FROM DECODED ABI VALUES
// =============================================================================

// fromReflected flattens a tuple the ABI decoder materialized as a struct.
// Field names come from the abi struct tag when present, else from the
// exported field name with its first letter lowered.
func fromReflected(v any) (Tuple, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return Tuple{}, false
	}
	rt := rv.Type()
	names := make([]string, rt.NumField())
	values := make([]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := f.Tag.Get("abi")
		if name == "" {
			name = strings.ToLower(f.Name[:1]) + f.Name[1:]
		}
		names[i] = name
		values[i] = rv.Field(i).Interface()
	}
	return NewTuple(names, values), true
}
