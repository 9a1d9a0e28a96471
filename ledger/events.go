/*
events.go - Historical event query, ordering, and the optional mirror

PURPOSE:
  Entity lists are rebuilt from append-only event logs: query the full
  historical range filtered by an indexed actor field, deduplicate, and
  order by the two-part key (sequence position, intra-position index) -
  never by wall-clock time, because multiple events can share a
  timestamp. Events carry only identifying keys plus a few denormalized
  fields, so reconstruction issues one follow-up read per event; that
  part lives with the domain services.

MIRROR:
  Re-scanning full history on every call is acceptable at low volume.
  For anything more, a Mirror keeps an append-only local copy of
  processed events keyed by a monotonically increasing cursor, and the
  source re-scans only from the cursor's block. Re-application is
  idempotent: the cursor block itself is always re-fetched and recording
  an already-known event is a no-op.

ORDERING GUARANTEE:
  Query output is deterministic and stable under any input order of the
  raw logs. An empty result is an empty slice, not an error.

SEE ALSO:
  - ledger/store/memory.go: In-memory Mirror
  - store/sqlite/sqlite.go: SQLite Mirror
  - claims/service.go, policies/policies.go: Follow-up reads per event
*/
package ledger

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// =============================================================================
// QUERY AND RESULT TYPES
// =============================================================================

// EventQuery selects one event kind of one contract, filtered by one
// indexed actor topic.
type EventQuery struct {
	Contract common.Address
	Event    common.Hash // topic 0
	TopicPos int         // topic slot of the actor filter (1-based)
	Actor    common.Hash
}

// Event is one historical occurrence, reduced to its ordering key and the
// topics that carry the identifying fields.
type Event struct {
	Block  uint64
	Index  uint // intra-block log index
	TxHash common.Hash
	Topics []common.Hash
}

// Cursor marks the highest processed ordering key.
type Cursor struct {
	Block uint64
	Index uint
}

// Mirror is an append-only local copy of processed events.
type Mirror interface {
	// Record stores one event. Recording an already-known event is a no-op.
	Record(ctx context.Context, q EventQuery, ev Event) error

	// Events returns all recorded events for a query, in any order.
	Events(ctx context.Context, q EventQuery) ([]Event, error)

	// Cursor returns the highest recorded ordering key, if any.
	Cursor(ctx context.Context, q EventQuery) (Cursor, bool, error)
}

// =============================================================================
// EVENT SOURCE
// =============================================================================

// EventSource rebuilds event sequences, optionally through a Mirror.
type EventSource struct {
	Client *Client
	Mirror Mirror // nil = full re-scan every call
}

// Query fetches the deduplicated, ordered event sequence for q. Each call
// is a fresh, fully-materializing query; there is no tailing mode.
func (s *EventSource) Query(ctx context.Context, q EventQuery) ([]Event, error) {
	from := uint64(0)
	var known []Event
	if s.Mirror != nil {
		cached, err := s.Mirror.Events(ctx, q)
		if err != nil {
			return nil, err
		}
		known = cached
		if cur, ok, err := s.Mirror.Cursor(ctx, q); err != nil {
			return nil, err
		} else if ok {
			// Re-fetch the cursor block itself; recording is idempotent.
			from = cur.Block
		}
	}

	fresh, err := s.Client.filterRange(ctx, q, from)
	if err != nil {
		return nil, err
	}
	if s.Mirror != nil {
		for _, ev := range fresh {
			if err := s.Mirror.Record(ctx, q, ev); err != nil {
				return nil, err
			}
		}
	}
	return orderEvents(append(known, fresh...)), nil
}

func (c *Client) filterRange(ctx context.Context, q EventQuery, from uint64) ([]Event, error) {
	latest, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	topics := make([][]common.Hash, q.TopicPos+1)
	topics[0] = []common.Hash{q.Event}
	topics[q.TopicPos] = []common.Hash{q.Actor}

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(latest),
		Addresses: []common.Address{q.Contract},
		Topics:    topics,
	})
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		events = append(events, Event{
			Block:  l.BlockNumber,
			Index:  l.Index,
			TxHash: l.TxHash,
			Topics: l.Topics,
		})
	}
	return events, nil
}

// orderEvents deduplicates by (block, index) and sorts ascending by that
// two-part key.
func orderEvents(events []Event) []Event {
	type ordKey struct {
		block uint64
		index uint
	}
	seen := make(map[ordKey]bool, len(events))
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		k := ordKey{ev.Block, ev.Index}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// =============================================================================
// TOPIC HELPERS
// =============================================================================

// AddressTopic left-pads an account identifier into its indexed-topic form.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// TopicBig reads an indexed unsigned-integer topic.
func TopicBig(ev Event, pos int) *big.Int {
	if pos < 0 || pos >= len(ev.Topics) {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(ev.Topics[pos].Bytes())
}

// TopicBytes8 reads an indexed fixed 8-byte token topic. Fixed-width data
// is left-justified within the 32-byte topic.
func TopicBytes8(ev Event, pos int) [8]byte {
	var out [8]byte
	if pos < 0 || pos >= len(ev.Topics) {
		return out
	}
	copy(out[:], ev.Topics[pos].Bytes()[:8])
	return out
}
