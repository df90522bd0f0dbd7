// Package inventory records RAID inspection results in a local SQLite
// database: point in time snapshots, the last known state of every drive and
// logical drive, state transition events and alerts.
package inventory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultPath is the default database location
const DefaultPath = "/var/lib/raidgod/inventory.db"

// Store wraps the SQLite database connection
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates the SQLite database at the given path
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writers serialize on the file lock anyway; one connection avoids
	// SQLITE_BUSY between our own goroutines
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{conn: conn, path: path}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the newest applied migration
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

var migrations = []string{
	migrationV1,
	migrationV2,
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	version, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the snapshot, drive and event tables
const migrationV1 = `
-- Every inventory update, with the full adapter list as JSON
CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    host_id TEXT NOT NULL,
    reason TEXT NOT NULL,
    adapters INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_host ON snapshots(host_id, created_at);

-- Last known state of every physical drive, keyed by its controller address
CREATE TABLE IF NOT EXISTS drives (
    id INTEGER PRIMARY KEY,
    host_id TEXT NOT NULL,
    controller_id INTEGER NOT NULL,
    address TEXT NOT NULL,
    drive_id INTEGER,
    model TEXT,
    size_bytes INTEGER,
    media TEXT,
    interface TEXT,
    disk_group TEXT,
    role TEXT NOT NULL,
    status TEXT NOT NULL,
    vendor_state TEXT,
    spare_type TEXT,
    current_state TEXT NOT NULL DEFAULT 'unknown',
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL,
    UNIQUE(host_id, controller_id, address)
);

CREATE INDEX IF NOT EXISTS idx_drives_state ON drives(current_state);

-- State transition history
CREATE TABLE IF NOT EXISTS drive_events (
    id INTEGER PRIMARY KEY,
    drive_id INTEGER NOT NULL REFERENCES drives(id),
    snapshot_id TEXT REFERENCES snapshots(id),
    event_type TEXT NOT NULL,
    old_state TEXT,
    new_state TEXT,
    details TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_drive ON drive_events(drive_id);
CREATE INDEX IF NOT EXISTS idx_events_time ON drive_events(timestamp);
`

// migrationV2 adds logical drive tracking and alerts
const migrationV2 = `
CREATE TABLE IF NOT EXISTS logical_drives (
    id INTEGER PRIMARY KEY,
    host_id TEXT NOT NULL,
    controller_id INTEGER NOT NULL,
    virtual_drive INTEGER NOT NULL,
    disk_group TEXT,
    level INTEGER,
    size_bytes INTEGER,
    name TEXT,
    status TEXT NOT NULL,
    vendor_state TEXT,
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL,
    UNIQUE(host_id, controller_id, virtual_drive)
);

CREATE TABLE IF NOT EXISTS alerts (
    id INTEGER PRIMARY KEY,
    severity TEXT NOT NULL,
    category TEXT NOT NULL,
    message TEXT NOT NULL,
    host_id TEXT,
    controller_id INTEGER,
    address TEXT,
    details TEXT,
    acknowledged INTEGER DEFAULT 0,
    ack_timestamp TIMESTAMP,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_unacked ON alerts(acknowledged) WHERE acknowledged = 0;
CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts(timestamp);
`

// Helper functions for nullable values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}
