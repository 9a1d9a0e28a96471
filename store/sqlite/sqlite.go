/*
Package sqlite provides a SQLite-backed event mirror.

PURPOSE:
  Implements ledger.Mirror: an append-only local copy of processed
  ledger events, keyed by the monotonically increasing (block, log
  index) cursor. With a mirror configured, reconstruction re-scans only
  from the cursor's block instead of re-reading full history on every
  call.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the events table
  - No DELETE statements on the events table
  - Re-recording a known event is a no-op (INSERT OR IGNORE), which is
    what makes re-applying the cursor block idempotent

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  mirror, err := sqlite.New("./data/events.db")
  if err != nil {
      log.Fatal(err)
  }
  defer mirror.Close()

  src := &ledger.EventSource{Client: client, Mirror: mirror}

SEE ALSO:
  - ledger/events.go: Mirror interface and the event source
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/claims-ledger/ledger"
)

// Mirror implements ledger.Mirror using SQLite.
type Mirror struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Mirror = (*Mirror)(nil)

// New creates a new SQLite mirror with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Mirror, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m := &Mirror{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return m, nil
}

// Close closes the database connection.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// migrate creates the database schema.
func (m *Mirror) migrate() error {
	schema := `
	-- Processed events (append-only mirror)
	CREATE TABLE IF NOT EXISTS events (
		contract  TEXT    NOT NULL,
		event     TEXT    NOT NULL,
		actor     TEXT    NOT NULL,
		block     INTEGER NOT NULL,
		log_index INTEGER NOT NULL,
		tx_hash   TEXT    NOT NULL,
		topics    BLOB    NOT NULL,
		PRIMARY KEY (contract, event, actor, block, log_index)
	);

	-- Cursor lookup (hot path): highest (block, log_index) per stream
	CREATE INDEX IF NOT EXISTS idx_events_stream_cursor
		ON events(contract, event, actor, block DESC, log_index DESC);
	`
	_, err := m.db.Exec(schema)
	return err
}

// Record stores one event. Recording an already-known event is a no-op.
func (m *Mirror) Record(ctx context.Context, q ledger.EventQuery, ev ledger.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := make([]byte, 0, len(ev.Topics)*common.HashLength)
	for _, t := range ev.Topics {
		topics = append(topics, t.Bytes()...)
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (contract, event, actor, block, log_index, tx_hash, topics)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.Contract.Hex(), q.Event.Hex(), q.Actor.Hex(),
		int64(ev.Block), int64(ev.Index), ev.TxHash.Hex(), topics)
	return err
}

// Events returns all recorded events for a stream, in storage order.
// The event source re-orders; no ORDER BY is needed here.
func (m *Mirror) Events(ctx context.Context, q ledger.EventQuery) ([]ledger.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.db.QueryContext(ctx, `
		SELECT block, log_index, tx_hash, topics FROM events
		WHERE contract = ? AND event = ? AND actor = ?`,
		q.Contract.Hex(), q.Event.Hex(), q.Actor.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			block, index int64
			txHash       string
			topics       []byte
		)
		if err := rows.Scan(&block, &index, &txHash, &topics); err != nil {
			return nil, err
		}
		ev := ledger.Event{
			Block:  uint64(block),
			Index:  uint(index),
			TxHash: common.HexToHash(txHash),
		}
		for i := 0; i+common.HashLength <= len(topics); i += common.HashLength {
			ev.Topics = append(ev.Topics, common.BytesToHash(topics[i:i+common.HashLength]))
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Cursor returns the highest recorded ordering key for a stream.
func (m *Mirror) Cursor(ctx context.Context, q ledger.EventQuery) (ledger.Cursor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var block, index int64
	err := m.db.QueryRowContext(ctx, `
		SELECT block, log_index FROM events
		WHERE contract = ? AND event = ? AND actor = ?
		ORDER BY block DESC, log_index DESC LIMIT 1`,
		q.Contract.Hex(), q.Event.Hex(), q.Actor.Hex()).Scan(&block, &index)
	if err == sql.ErrNoRows {
		return ledger.Cursor{}, false, nil
	}
	if err != nil {
		return ledger.Cursor{}, false, err
	}
	return ledger.Cursor{Block: uint64(block), Index: uint(index)}, true, nil
}
