// Package store provides Mirror implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/claims-ledger/ledger"
)

// =============================================================================
// MEMORY MIRROR - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	events map[streamKey]map[ordKey]ledger.Event
}

type streamKey struct {
	Contract string
	Event    string
	Actor    string
}

type ordKey struct {
	Block uint64
	Index uint
}

func NewMemory() *Memory {
	return &Memory{events: make(map[streamKey]map[ordKey]ledger.Event)}
}

func keyOf(q ledger.EventQuery) streamKey {
	return streamKey{
		Contract: q.Contract.Hex(),
		Event:    q.Event.Hex(),
		Actor:    q.Actor.Hex(),
	}
}

// Record stores one event. Re-recording a known (block, index) is a no-op.
func (m *Memory) Record(_ context.Context, q ledger.EventQuery, ev ledger.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := keyOf(q)
	if m.events[k] == nil {
		m.events[k] = make(map[ordKey]ledger.Event)
	}
	ok := ordKey{ev.Block, ev.Index}
	if _, exists := m.events[k][ok]; exists {
		return nil
	}
	m.events[k][ok] = ev
	return nil
}

func (m *Memory) Events(_ context.Context, q ledger.EventQuery) ([]ledger.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Event, 0, len(m.events[keyOf(q)]))
	for _, ev := range m.events[keyOf(q)] {
		out = append(out, ev)
	}
	return out, nil
}

func (m *Memory) Cursor(_ context.Context, q ledger.EventQuery) (ledger.Cursor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cur ledger.Cursor
	found := false
	for k := range m.events[keyOf(q)] {
		if !found || k.Block > cur.Block || (k.Block == cur.Block && k.Index > cur.Index) {
			cur = ledger.Cursor{Block: k.Block, Index: k.Index}
			found = true
		}
	}
	return cur, found, nil
}

var _ ledger.Mirror = (*Memory)(nil)
