/*
Package factory assembles the ledger client and domain services.

PURPOSE:
  Converts flat configuration (RPC URL, contract addresses, schema
  version, mirror path) into a fully wired system: one shared RPC
  connection, ABI-bound contracts for both deployed programs, an event
  source with an optional persistent mirror, and the claim and policy
  services on top.

WIRING:
  Config
    |- Dial RPC                    -> ledger.RPCBackend
    |- NewClient                   -> ledger.Client (default sender =
    |                                 first node-managed account)
    |- NewContract (policy ABI)    -> policies.Service
    |- NewContract (claim ABI,     -> claims.Service
    |               per schema)
    |- MirrorPath                  -> sqlite mirror, else in-memory

SCHEMA SELECTION:
  The claim workflow contract exists in two generations with
  incompatible record layouts. Config.Schema picks the ABI and the field
  mapping in one place so the rest of the system never branches on it.

USAGE:
  sys, err := factory.New(ctx, factory.Config{
      RPCURL:     "http://localhost:8545",
      PolicyAddr: "0x...",
      ClaimAddr:  "0x...",
      Schema:     "2",
      MirrorPath: "./data/events.db",
  })
  if err != nil {
      log.Fatal(err)
  }
  defer sys.Close()

SEE ALSO:
  - cmd/server/main.go: Flag parsing and server startup
  - ledger/client.go: RPC backend and client
*/
package factory

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/warp/claims-ledger/claims"
	"github.com/warp/claims-ledger/ledger"
	"github.com/warp/claims-ledger/ledger/store"
	"github.com/warp/claims-ledger/policies"
	"github.com/warp/claims-ledger/store/sqlite"
)

// Config is the flat startup configuration.
type Config struct {
	RPCURL     string // ledger node endpoint
	PolicyAddr string // deployed policy registry address
	ClaimAddr  string // deployed claim workflow address
	Schema     string // "1" (legacy) or "2" (canonical)
	MirrorPath string // SQLite path for the event mirror; "" = in-memory
}

// System is the assembled application.
type System struct {
	Backend  *ledger.RPCBackend
	Client   *ledger.Client
	Claims   *claims.Service
	Policies *policies.Service

	// Contract handles, also reachable by name through the raw API.
	PolicyContract *ledger.Contract
	ClaimContract  *ledger.Contract

	mirror *sqlite.Mirror // nil when the in-memory mirror is used
}

// New dials the node and wires every component.
func New(ctx context.Context, cfg Config) (*System, error) {
	version, err := claims.ParseSchemaVersion(cfg.Schema)
	if err != nil {
		return nil, err
	}
	policyAddr, err := contractAddress("policy", cfg.PolicyAddr)
	if err != nil {
		return nil, err
	}
	claimAddr, err := contractAddress("claim", cfg.ClaimAddr)
	if err != nil {
		return nil, err
	}

	backend, err := ledger.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	sys := &System{Backend: backend, Client: ledger.NewClient(backend)}

	// Default the submitting identity to the node's first managed account.
	// Dev ledgers (Ganache, Hardhat, Anvil) always expose at least one.
	accounts, err := backend.Accounts(ctx)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) > 0 {
		sys.Client.SetSender(accounts[0])
	}

	var mirror ledger.Mirror
	if cfg.MirrorPath != "" {
		m, err := sqlite.New(cfg.MirrorPath)
		if err != nil {
			backend.Close()
			return nil, err
		}
		sys.mirror = m
		mirror = m
	} else {
		mirror = store.NewMemory()
	}
	events := &ledger.EventSource{Client: sys.Client, Mirror: mirror}

	policyContract, err := ledger.NewContract("policy-registry", sys.Client, policyAddr, policies.ABIJSON)
	if err != nil {
		sys.Close()
		return nil, err
	}
	claimContract, err := ledger.NewContract("claim-workflow", sys.Client, claimAddr, claims.ABIJSON(version))
	if err != nil {
		sys.Close()
		return nil, err
	}

	sys.PolicyContract = policyContract
	sys.ClaimContract = claimContract
	sys.Policies = policies.NewService(policyContract, events)
	sys.Claims = claims.NewService(claimContract, events, version)
	return sys, nil
}

// Close releases the RPC connection and the mirror, if any.
func (s *System) Close() error {
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.Backend != nil {
		s.Backend.Close()
	}
	return nil
}

func contractAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, &ledger.ValidationError{Field: name + "Addr", Value: s, Reason: "not a hex address"}
	}
	return common.HexToAddress(s), nil
}
