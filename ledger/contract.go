/*
contract.go - Typed contract binding and the by-name escape hatch

PURPOSE:
  Binds one deployed contract (address + method/event interface) to the
  Client. Domain packages call strongly-typed service methods which land
  here for ABI packing; replies are unpacked into Tuples so the schema
  mappers can resolve fields named-first, then positionally.

ESCAPE HATCH:
  Invoke/Send accept a method name and string arguments, coerced by the
  declared ABI type. This mirrors the free-form exploratory callers of
  the original operator tooling. It is deliberately narrow and fallible;
  everything the workflow does routinely has a typed method instead.

SEE ALSO:
  - submit.go: The protocol Submit delegates to
  - tuple.go: Reply representation
*/
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// =============================================================================
// INVOKER - What domain services depend on
// =============================================================================

// Invoker is the contract surface domain services consume. Tests supply
// fakes; Contract is the live implementation.
type Invoker interface {
	// Call executes a non-committing read from the active sender.
	Call(ctx context.Context, method string, args ...any) (Tuple, error)

	// Submit runs the three-phase submission protocol for one
	// state-changing method.
	Submit(ctx context.Context, opts TxOpts, method string, args ...any) (*Receipt, error)
}

// =============================================================================
// CONTRACT
// =============================================================================

// Contract binds a deployed contract to a Client.
type Contract struct {
	name   string
	client *Client
	addr   common.Address
	abi    abi.ABI
}

var _ Invoker = (*Contract)(nil)

// NewContract parses the method/event interface and binds it to an address.
func NewContract(name string, client *Client, addr common.Address, abiJSON string) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s interface: %w", name, err)
	}
	return &Contract{name: name, client: client, addr: addr, abi: parsed}, nil
}

func (c *Contract) Name() string            { return c.name }
func (c *Contract) Address() common.Address { return c.addr }
func (c *Contract) Client() *Client         { return c.client }

// Call packs a read, executes it non-committing, and unpacks the reply.
func (c *Contract) Call(ctx context.Context, method string, args ...any) (Tuple, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return Tuple{}, fmt.Errorf("pack %s.%s: %w", c.name, method, err)
	}
	msg := ethereum.CallMsg{From: c.client.Sender(), To: &c.addr, Data: data}
	out, err := c.client.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return Tuple{}, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	return c.unpack(method, out)
}

// Submit packs a state-changing call and runs the three-phase protocol.
func (c *Contract) Submit(ctx context.Context, opts TxOpts, method string, args ...any) (*Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", c.name, method, err)
	}
	return c.client.Submit(ctx, c.name+"."+method, c.addr, data, opts)
}

func (c *Contract) unpack(method string, out []byte) (Tuple, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return Tuple{}, fmt.Errorf("method %q not in %s interface", method, c.name)
	}
	values, err := m.Outputs.UnpackValues(out)
	if err != nil {
		return Tuple{}, fmt.Errorf("unpack %s.%s: %w", c.name, method, err)
	}
	// A single tuple output arrives as one reflected struct; flatten it so
	// field tables can address its components.
	if len(values) == 1 && len(m.Outputs) == 1 && m.Outputs[0].Type.T == abi.TupleTy {
		if t, ok := fromReflected(values[0]); ok {
			return t, nil
		}
	}
	names := make([]string, len(m.Outputs))
	for i, o := range m.Outputs {
		names[i] = o.Name
	}
	return NewTuple(names, values), nil
}

// =============================================================================
// EVENTS
// =============================================================================

// EventID returns the topic identifying an event, or the zero hash for an
// unknown event name.
func (c *Contract) EventID(name string) common.Hash {
	ev, ok := c.abi.Events[name]
	if !ok {
		return common.Hash{}
	}
	return ev.ID
}

// DecodeEventData unpacks the non-indexed fields of a log into a Tuple.
// Indexed fields travel as topics and are extracted with the topic helpers
// in events.go.
func (c *Contract) DecodeEventData(name string, log types.Log) (Tuple, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return Tuple{}, fmt.Errorf("event %q not in %s interface", name, c.name)
	}
	nonIndexed := ev.Inputs.NonIndexed()
	values, err := nonIndexed.UnpackValues(log.Data)
	if err != nil {
		return Tuple{}, fmt.Errorf("unpack %s event %s: %w", c.name, name, err)
	}
	names := make([]string, len(nonIndexed))
	for i, in := range nonIndexed {
		names[i] = in.Name
	}
	return NewTuple(names, values), nil
}

// =============================================================================
// BY-NAME ESCAPE HATCH
// =============================================================================

// Invoke executes a read by method name with string arguments coerced by
// the declared ABI types.
func (c *Contract) Invoke(ctx context.Context, method string, rawArgs ...string) (Tuple, error) {
	args, err := c.coerceArgs(method, rawArgs)
	if err != nil {
		return Tuple{}, err
	}
	return c.Call(ctx, method, args...)
}

// Send executes a state-changing call by method name with string arguments.
func (c *Contract) Send(ctx context.Context, opts TxOpts, method string, rawArgs ...string) (*Receipt, error) {
	args, err := c.coerceArgs(method, rawArgs)
	if err != nil {
		return nil, err
	}
	return c.Submit(ctx, opts, method, args...)
}

func (c *Contract) coerceArgs(method string, raw []string) ([]any, error) {
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, &ValidationError{Field: "method", Value: method, Reason: "not in interface"}
	}
	if len(raw) != len(m.Inputs) {
		return nil, &ValidationError{
			Field:  "arguments",
			Value:  strconv.Itoa(len(raw)),
			Reason: fmt.Sprintf("%s takes %d arguments", method, len(m.Inputs)),
		}
	}
	args := make([]any, len(raw))
	for i, in := range m.Inputs {
		v, err := coerce(strings.TrimSpace(raw[i]), in.Type)
		if err != nil {
			return nil, &ValidationError{Field: in.Name, Value: raw[i], Reason: err.Error()}
		}
		args[i] = v
	}
	return args, nil
}

func coerce(s string, t abi.Type) (any, error) {
	switch t.T {
	case abi.UintTy:
		i, ok := new(big.Int).SetString(s, 10)
		if !ok || i.Sign() < 0 {
			return nil, fmt.Errorf("not an unsigned integer")
		}
		switch t.Size {
		case 8:
			if !i.IsUint64() || i.Uint64() > 255 {
				return nil, fmt.Errorf("out of uint8 range")
			}
			return uint8(i.Uint64()), nil
		case 16:
			if !i.IsUint64() || i.Uint64() > 65535 {
				return nil, fmt.Errorf("out of uint16 range")
			}
			return uint16(i.Uint64()), nil
		case 32:
			if !i.IsUint64() || i.Uint64() > 1<<32-1 {
				return nil, fmt.Errorf("out of uint32 range")
			}
			return uint32(i.Uint64()), nil
		case 64:
			if !i.IsUint64() {
				return nil, fmt.Errorf("out of uint64 range")
			}
			return i.Uint64(), nil
		default:
			return i, nil
		}
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.StringTy:
		return s, nil
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("not an address")
		}
		return common.HexToAddress(s), nil
	case abi.FixedBytesTy:
		b := common.FromHex(s)
		if len(b) != t.Size {
			return nil, fmt.Errorf("want %d bytes", t.Size)
		}
		switch t.Size {
		case 8:
			var out [8]byte
			copy(out[:], b)
			return out, nil
		case 32:
			var out [32]byte
			copy(out[:], b)
			return out, nil
		}
		return nil, fmt.Errorf("unsupported fixed-bytes width %d", t.Size)
	case abi.BytesTy:
		return common.FromHex(s), nil
	}
	return nil, fmt.Errorf("unsupported argument type %s", t.String())
}
