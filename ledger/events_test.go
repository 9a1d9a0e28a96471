package ledger_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/claims-ledger/ledger"
	"github.com/warp/claims-ledger/ledger/store"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

var (
	workflowAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	submittedSig  = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	claimantTopic = ledger.AddressTopic(common.HexToAddress("0x00000000000000000000000000000000000000dd"))
)

func claimQuery() ledger.EventQuery {
	return ledger.EventQuery{
		Contract: workflowAddr,
		Event:    submittedSig,
		TopicPos: 2,
		Actor:    claimantTopic,
	}
}

func logAt(block uint64, index uint) types.Log {
	return types.Log{
		Address:     workflowAddr,
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BytesToHash([]byte{byte(block), byte(index)}),
		Topics:      []common.Hash{submittedSig, {}, claimantTopic},
	}
}

// =============================================================================
// ORDERING AND DEDUPLICATION
// =============================================================================

func TestEventSource_OrdersByBlockThenIndex(t *testing.T) {
	// GIVEN: Raw logs arriving in scrambled order
	// WHEN: Querying the event sequence
	// THEN: Output is ordered by the two-part key (block, index), never by
	//       arrival order

	backend := &fakeBackend{
		latest: 100,
		logs: []types.Log{
			logAt(9, 0),
			logAt(4, 2),
			logAt(4, 1),
			logAt(12, 0),
			logAt(4, 7),
		},
	}
	src := &ledger.EventSource{Client: newTestClient(backend)}

	events, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)

	require.Len(t, events, 5)
	want := []ledger.Cursor{{4, 1}, {4, 2}, {4, 7}, {9, 0}, {12, 0}}
	for i, w := range want {
		assert.Equal(t, w.Block, events[i].Block, "event %d block", i)
		assert.Equal(t, w.Index, events[i].Index, "event %d index", i)
	}
}

func TestEventSource_Deduplicates(t *testing.T) {
	backend := &fakeBackend{
		latest: 10,
		logs: []types.Log{
			logAt(3, 1),
			logAt(3, 1),
			logAt(3, 2),
		},
	}
	src := &ledger.EventSource{Client: newTestClient(backend)}

	events, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestEventSource_EmptyResultIsNotAnError(t *testing.T) {
	// GIVEN: An actor that never emitted anything
	// WHEN: Querying
	// THEN: An empty slice comes back, not an error

	backend := &fakeBackend{latest: 10}
	src := &ledger.EventSource{Client: newTestClient(backend)}

	events, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventSource_SkipsReorgRemovedLogs(t *testing.T) {
	removed := logAt(5, 0)
	removed.Removed = true
	backend := &fakeBackend{latest: 10, logs: []types.Log{removed, logAt(6, 0)}}
	src := &ledger.EventSource{Client: newTestClient(backend)}

	events, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(6), events[0].Block)
}

func TestEventSource_FilterShape(t *testing.T) {
	// The filter must pin topic 0 to the event signature and the actor to
	// its declared topic slot, over the range genesis..latest.
	backend := &fakeBackend{latest: 250}
	src := &ledger.EventSource{Client: newTestClient(backend)}

	_, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)

	require.Len(t, backend.filterQueries, 1)
	q := backend.filterQueries[0]
	assert.Equal(t, "0", q.FromBlock.String())
	assert.Equal(t, "250", q.ToBlock.String())
	assert.Equal(t, []common.Address{workflowAddr}, q.Addresses)
	require.Len(t, q.Topics, 3)
	assert.Equal(t, []common.Hash{submittedSig}, q.Topics[0])
	assert.Nil(t, q.Topics[1])
	assert.Equal(t, []common.Hash{claimantTopic}, q.Topics[2])
}

// =============================================================================
// MIRROR RESUME
// =============================================================================

func TestEventSource_MirrorResumesFromCursorBlock(t *testing.T) {
	// GIVEN: A first query that mirrored events up to block 5
	// WHEN: Querying again after a new event lands at block 7
	// THEN: The re-scan starts at block 5 (the cursor block itself is
	//       re-fetched) and the combined result carries no duplicates

	backend := &fakeBackend{latest: 10, logs: []types.Log{logAt(3, 0), logAt(5, 2)}}
	src := &ledger.EventSource{Client: newTestClient(backend), Mirror: store.NewMemory()}

	first, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)
	require.Len(t, first, 2)

	backend.logs = []types.Log{logAt(5, 2), logAt(7, 0)} // cursor block re-served plus one new
	backend.latest = 12

	second, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)

	require.Len(t, backend.filterQueries, 2)
	assert.Equal(t, "5", backend.filterQueries[1].FromBlock.String(), "resume from cursor block")

	require.Len(t, second, 3)
	assert.Equal(t, uint64(3), second[0].Block)
	assert.Equal(t, uint64(5), second[1].Block)
	assert.Equal(t, uint64(7), second[2].Block)
}

func TestEventSource_MirrorServesKnownEvents(t *testing.T) {
	// Events already mirrored surface even if the node stops returning them.
	backend := &fakeBackend{latest: 10, logs: []types.Log{logAt(2, 0)}}
	src := &ledger.EventSource{Client: newTestClient(backend), Mirror: store.NewMemory()}

	_, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)

	backend.logs = nil
	events, err := src.Query(context.Background(), claimQuery())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(2), events[0].Block)
}

// =============================================================================
// TOPIC HELPERS
// =============================================================================

func TestTopicBytes8_LeftJustified(t *testing.T) {
	var topic common.Hash
	copy(topic[:], "A1234567")
	ev := ledger.Event{Topics: []common.Hash{{}, topic}}

	got := ledger.TopicBytes8(ev, 1)
	assert.Equal(t, "A1234567", string(got[:]))
}

func TestTopicBig_OutOfRangeIsZero(t *testing.T) {
	ev := ledger.Event{}
	assert.Equal(t, "0", ledger.TopicBig(ev, 1).String())
}
