// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package state persists the binding record and the append-only event
// log in a SQLite database. Exactly one binding record exists
// system-wide; it is written only by the switch-lock holder, while
// status tooling reads without the lock and tolerates slightly stale
// values.
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"grimm.is/uplinkd/internal/clock"
)

// BindingRecord is the single piece of durable controller state.
type BindingRecord struct {
	ActiveInterface     string    `json:"active_interface"`
	HardwareID          string    `json:"hardware_id"`
	LastSwitch          time.Time `json:"last_switch"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Event is one entry in the append-only log of probe outcomes and
// switch attempts.
type Event struct {
	ID          int64     `json:"id"`
	Time        time.Time `json:"time"`
	Type        string    `json:"type"`
	Interface   string    `json:"interface,omitempty"`
	OperationID string    `json:"operation_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Event types.
const (
	EventProbeFailure  = "probe_failure"
	EventSwitchAttempt = "switch_attempt"
	EventSwitchSuccess = "switch_success"
	EventSwitchFailure = "switch_failure"
	EventLeaseFailure  = "lease_failure"
	EventDegraded      = "degraded"
)

const schema = `
CREATE TABLE IF NOT EXISTS binding (
	id                   INTEGER PRIMARY KEY CHECK (id = 1),
	active_interface     TEXT NOT NULL,
	hardware_id          TEXT NOT NULL,
	last_switch          INTEGER NOT NULL,
	consecutive_failures INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	ts           INTEGER NOT NULL,
	type         TEXT NOT NULL,
	iface        TEXT,
	operation_id TEXT,
	detail       TEXT
);
CREATE INDEX IF NOT EXISTS events_ts ON events(ts);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the state database at path.
// ":memory:" gives an ephemeral store for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", path, err)
	}
	// A single writer; the controller serializes writes itself.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Binding returns the persisted record, or nil if none has been saved.
func (s *Store) Binding() (*BindingRecord, error) {
	row := s.db.QueryRow(`SELECT active_interface, hardware_id, last_switch, consecutive_failures FROM binding WHERE id = 1`)

	var rec BindingRecord
	var lastSwitch int64
	err := row.Scan(&rec.ActiveInterface, &rec.HardwareID, &lastSwitch, &rec.ConsecutiveFailures)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read binding record: %w", err)
	}
	rec.LastSwitch = time.Unix(lastSwitch, 0).UTC()
	return &rec, nil
}

// SaveBinding upserts the single binding record.
func (s *Store) SaveBinding(rec BindingRecord) error {
	_, err := s.db.Exec(`
INSERT INTO binding (id, active_interface, hardware_id, last_switch, consecutive_failures)
VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	active_interface     = excluded.active_interface,
	hardware_id          = excluded.hardware_id,
	last_switch          = excluded.last_switch,
	consecutive_failures = excluded.consecutive_failures`,
		rec.ActiveInterface, rec.HardwareID, rec.LastSwitch.Unix(), rec.ConsecutiveFailures)
	if err != nil {
		return fmt.Errorf("failed to save binding record: %w", err)
	}
	return nil
}

// AppendEvent appends an entry to the event log. The timestamp is
// assigned here if unset.
func (s *Store) AppendEvent(ev Event) error {
	ts := ev.Time
	if ts.IsZero() {
		ts = clock.Now()
	}
	_, err := s.db.Exec(`INSERT INTO events (ts, type, iface, operation_id, detail) VALUES (?, ?, ?, ?, ?)`,
		ts.Unix(), ev.Type, ev.Interface, ev.OperationID, ev.Detail)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// RecentEvents returns up to n most recent events, newest first.
func (s *Store) RecentEvents(n int) ([]Event, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.Query(`SELECT id, ts, type, iface, operation_id, detail FROM events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts int64
		if err := rows.Scan(&ev.ID, &ts, &ev.Type, &ev.Interface, &ev.OperationID, &ev.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Time = time.Unix(ts, 0).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}
