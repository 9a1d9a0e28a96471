/*
Package policies implements the policy side of the workflow client.

PURPOSE:
  Policies are the simpler, single-stage entity claims depend on:
  created once, immutable thereafter, identified by the ledger-assigned
  id echoed in the creation event. This package maps the Policy registry
  contract's tuple replies into the domain record, submits creations
  through the three-phase protocol, and rebuilds a holder's policy list
  from PolicyCreated events.

SEE ALSO:
  - claims: Snapshots these fields into each claim at creation time
  - ledger: Submission protocol, tuple resolution, event ordering
*/
package policies

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/warp/claims-ledger/ledger"
)

// ABIJSON is the fixed method/event interface of the Policy registry.
// Both claim schema generations share this single policy layout.
const ABIJSON = `[
{"type":"function","name":"createPolicy","stateMutability":"nonpayable","inputs":[
  {"name":"effectiveAt","type":"uint128"},{"name":"expiresAt","type":"uint128"},
  {"name":"maxCoverage","type":"uint128"},{"name":"deductible","type":"uint128"},
  {"name":"details","type":"string"}],
 "outputs":[{"name":"policyId","type":"uint256"}]},
{"type":"function","name":"getPolicy","stateMutability":"view",
 "inputs":[{"name":"policyId","type":"uint256"}],
 "outputs":[
  {"name":"holder","type":"address"},
  {"name":"effectiveAt","type":"uint128"},
  {"name":"expiresAt","type":"uint128"},
  {"name":"maxCoverage","type":"uint128"},
  {"name":"deductible","type":"uint128"},
  {"name":"active","type":"bool"},
  {"name":"details","type":"string"}]},
{"type":"function","name":"isPolicyActiveAt","stateMutability":"view",
 "inputs":[{"name":"policyId","type":"uint256"},{"name":"timestamp","type":"uint128"}],
 "outputs":[{"name":"","type":"bool"}]},
{"type":"event","name":"PolicyCreated","anonymous":false,"inputs":[
  {"name":"policyId","type":"uint256","indexed":true},
  {"name":"holder","type":"address","indexed":true},
  {"name":"effectiveAt","type":"uint128","indexed":false},
  {"name":"expiresAt","type":"uint128","indexed":false},
  {"name":"maxCoverage","type":"uint128","indexed":false},
  {"name":"deductible","type":"uint128","indexed":false},
  {"name":"details","type":"string","indexed":false}]}
]`

// =============================================================================
// MODEL
// =============================================================================

// Policy is the in-memory projection of one registry record. Policies
// have no update operations; the record never changes after creation.
type Policy struct {
	ID          *big.Int
	Holder      common.Address
	EffectiveAt uint64
	ExpiresAt   uint64
	MaxCoverage ledger.Amount
	Deductible  ledger.Amount
	Active      bool
	Details     string
}

// Positional layout of the getPolicy reply.
var policyIndex = map[string]int{
	"holder": 0, "effectiveAt": 1, "expiresAt": 2,
	"maxCoverage": 3, "deductible": 4, "active": 5, "details": 6,
}

// MapPolicy converts a registry tuple reply into the domain record,
// resolving each field named-first, then positionally. No side effects.
func MapPolicy(t ledger.Tuple) (*Policy, error) {
	at := func(name string) int { return policyIndex[name] }

	p := &Policy{}
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}

	read(func() error { var e error; p.Holder, e = t.Address("holder", at("holder")); return e })
	read(func() error { var e error; p.EffectiveAt, e = t.Uint64("effectiveAt", at("effectiveAt")); return e })
	read(func() error { var e error; p.ExpiresAt, e = t.Uint64("expiresAt", at("expiresAt")); return e })
	read(func() error {
		b, e := t.BigInt("maxCoverage", at("maxCoverage"))
		p.MaxCoverage = ledger.AmountFromBig(b)
		return e
	})
	read(func() error {
		b, e := t.BigInt("deductible", at("deductible"))
		p.Deductible = ledger.AmountFromBig(b)
		return e
	})
	read(func() error { var e error; p.Active, e = t.Bool("active", at("active")); return e })
	read(func() error { var e error; p.Details, e = t.String("details", at("details")); return e })
	if err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// SERVICE
// =============================================================================

// EventQuerier is the reconstruction dependency; *ledger.EventSource is
// the live implementation.
type EventQuerier interface {
	Query(ctx context.Context, q ledger.EventQuery) ([]ledger.Event, error)
}

type Service struct {
	Contract ledger.Invoker
	Events   EventQuerier

	Registry     common.Address // deployed Policy registry, for event queries
	CreatedTopic common.Hash    // PolicyCreated event identifier
}

func NewService(contract *ledger.Contract, events EventQuerier) *Service {
	return &Service{
		Contract:     contract,
		Events:       events,
		Registry:     contract.Address(),
		CreatedTopic: contract.EventID("PolicyCreated"),
	}
}

// CreateParams carries the wire-format inputs for a new policy.
type CreateParams struct {
	EffectiveAt string
	ExpiresAt   string
	MaxCoverage string
	Deductible  string
	Details     string
}

// Create validates and submits a new policy, returning the
// ledger-assigned id echoed in the creation event.
func (s *Service) Create(ctx context.Context, p CreateParams, opts ledger.TxOpts) (*big.Int, *ledger.Receipt, error) {
	effectiveAt, err := ledger.ParseTimestamp("effectiveAt", p.EffectiveAt)
	if err != nil {
		return nil, nil, err
	}
	expiresAt, err := ledger.ParseTimestamp("expiresAt", p.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}
	if effectiveAt >= expiresAt {
		return nil, nil, &ledger.ValidationError{
			Field: "effectiveAt", Value: p.EffectiveAt, Reason: "must be before expiresAt",
		}
	}
	maxCoverage, err := ledger.ParseAmount("maxCoverage", p.MaxCoverage)
	if err != nil {
		return nil, nil, err
	}
	deductible, err := ledger.ParseAmount("deductible", p.Deductible)
	if err != nil {
		return nil, nil, err
	}

	receipt, err := s.Contract.Submit(ctx, opts, "createPolicy",
		new(big.Int).SetUint64(effectiveAt), new(big.Int).SetUint64(expiresAt),
		maxCoverage.BigInt(), deductible.BigInt(),
		strings.TrimSpace(p.Details))
	if err != nil {
		return nil, nil, err
	}

	// The id travels as the first indexed topic of the creation event.
	for _, l := range receipt.Logs {
		if l.Address == s.Registry && len(l.Topics) >= 2 && l.Topics[0] == s.CreatedTopic {
			return new(big.Int).SetBytes(l.Topics[1].Bytes()), receipt, nil
		}
	}
	return nil, receipt, fmt.Errorf("creation event missing from receipt %s: %w",
		receipt.TxHash.Hex(), ledger.ErrSchemaMismatch)
}

// Get reads and maps one policy record.
func (s *Service) Get(ctx context.Context, id *big.Int) (*Policy, error) {
	t, err := s.Contract.Call(ctx, "getPolicy", id)
	if err != nil {
		return nil, err
	}
	p, err := MapPolicy(t)
	if err != nil {
		return nil, err
	}
	if p.Holder == (common.Address{}) && p.EffectiveAt == 0 {
		return nil, fmt.Errorf("policy %s: %w", id, ledger.ErrNotFound)
	}
	p.ID = new(big.Int).Set(id)
	return p, nil
}

// IsActiveAt asks the registry whether a policy covers a moment in time.
func (s *Service) IsActiveAt(ctx context.Context, id *big.Int, epochSeconds uint64) (bool, error) {
	t, err := s.Contract.Call(ctx, "isPolicyActiveAt", id, new(big.Int).SetUint64(epochSeconds))
	if err != nil {
		return false, err
	}
	return t.Bool("", 0)
}

// ListFor rebuilds every policy held by an account, ordered by when the
// ledger recorded them. An account with no policies yields an empty
// slice, not an error.
func (s *Service) ListFor(ctx context.Context, holder common.Address) ([]*Policy, error) {
	events, err := s.Events.Query(ctx, ledger.EventQuery{
		Contract: s.Registry,
		Event:    s.CreatedTopic,
		TopicPos: 2,
		Actor:    ledger.AddressTopic(holder),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Policy, 0, len(events))
	for _, ev := range events {
		id := ledger.TopicBig(ev, 1)
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("policy %s from event at %d/%d: %w", id, ev.Block, ev.Index, err)
		}
		out = append(out, p)
	}
	return out, nil
}
