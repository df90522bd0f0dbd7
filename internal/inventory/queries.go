package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sigreer/raidgod/internal/raid"
)

const driveColumns = `
	id, host_id, controller_id, address, drive_id, model, size_bytes, media,
	interface, disk_group, role, status, vendor_state, spare_type,
	current_state, first_seen, last_seen`

// ListDrives returns known drives, optionally filtered by host
func (s *Store) ListDrives(ctx context.Context, hostID string) ([]*DriveRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+driveColumns+` FROM drives
		WHERE (? = '' OR host_id = ?)
		ORDER BY host_id, controller_id, address
	`, hostID, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to query drives: %w", err)
	}
	defer rows.Close()

	var drives []*DriveRecord
	for rows.Next() {
		d, err := scanDrive(rows)
		if err != nil {
			return nil, err
		}
		drives = append(drives, d)
	}
	return drives, rows.Err()
}

// GetDrive returns a drive by its controller address, or nil if unknown
func (s *Store) GetDrive(ctx context.Context, hostID string, controller int, address string) (*DriveRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+driveColumns+` FROM drives
		WHERE host_id = ? AND controller_id = ? AND address = ?
	`, hostID, controller, address)
	d, err := scanDrive(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// DriveCount returns drive totals by tracked state
func (s *Store) DriveCount(ctx context.Context) (total, active, missing, failed int, err error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN current_state = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN current_state = 'missing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN current_state = 'failed' THEN 1 ELSE 0 END), 0)
		FROM drives
	`)
	err = row.Scan(&total, &active, &missing, &failed)
	return
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDrive(row scanner) (*DriveRecord, error) {
	var d DriveRecord
	var driveID, sizeBytes sql.NullInt64
	var model, media, iface, dg, vendorState, spareType sql.NullString

	err := row.Scan(
		&d.ID, &d.HostID, &d.ControllerID, &d.Address, &driveID, &model, &sizeBytes, &media,
		&iface, &dg, &d.Role, &d.Status, &vendorState, &spareType,
		&d.CurrentState, &d.FirstSeen, &d.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan drive: %w", err)
	}

	d.DriveID = int(driveID.Int64)
	d.SizeBytes = sizeBytes.Int64
	d.Model = model.String
	d.Media = media.String
	d.Interface = iface.String
	d.DiskGroup = dg.String
	d.VendorState = vendorState.String
	d.SpareType = spareType.String
	return &d, nil
}

// ListLogicalDrives returns known virtual drives, optionally filtered by host
func (s *Store) ListLogicalDrives(ctx context.Context, hostID string) ([]*LogicalDriveRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, host_id, controller_id, virtual_drive, disk_group, level, size_bytes,
			name, status, vendor_state, first_seen, last_seen
		FROM logical_drives
		WHERE (? = '' OR host_id = ?)
		ORDER BY host_id, controller_id, virtual_drive
	`, hostID, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logical drives: %w", err)
	}
	defer rows.Close()

	var lds []*LogicalDriveRecord
	for rows.Next() {
		var ld LogicalDriveRecord
		var level, sizeBytes sql.NullInt64
		var dg, name, vendorState sql.NullString
		err := rows.Scan(&ld.ID, &ld.HostID, &ld.ControllerID, &ld.VirtualDrive, &dg, &level,
			&sizeBytes, &name, &ld.Status, &vendorState, &ld.FirstSeen, &ld.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan logical drive: %w", err)
		}
		ld.DiskGroup = dg.String
		ld.Level = int(level.Int64)
		ld.SizeBytes = sizeBytes.Int64
		ld.Name = name.String
		ld.VendorState = vendorState.String
		lds = append(lds, &ld)
	}
	return lds, rows.Err()
}

// RecentEvents returns the newest drive events across all drives
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*DriveEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT e.id, e.drive_id, e.snapshot_id, d.controller_id, d.address,
			e.event_type, e.old_state, e.new_state, e.details, e.timestamp
		FROM drive_events e
		JOIN drives d ON d.id = e.drive_id
		ORDER BY e.timestamp DESC, e.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DriveEvents returns the history of one drive, newest first
func (s *Store) DriveEvents(ctx context.Context, driveID int64, limit int) ([]*DriveEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT e.id, e.drive_id, e.snapshot_id, d.controller_id, d.address,
			e.event_type, e.old_state, e.new_state, e.details, e.timestamp
		FROM drive_events e
		JOIN drives d ON d.id = e.drive_id
		WHERE e.drive_id = ?
		ORDER BY e.timestamp DESC, e.id DESC
		LIMIT ?
	`, driveID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query drive events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*DriveEvent, error) {
	var events []*DriveEvent
	for rows.Next() {
		var e DriveEvent
		var snapshotID, oldState, newState, details sql.NullString
		err := rows.Scan(&e.ID, &e.DriveID, &snapshotID, &e.ControllerID, &e.Address,
			&e.EventType, &oldState, &newState, &details, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.SnapshotID = snapshotID.String
		e.OldState = oldState.String
		e.NewState = newState.String
		e.Details = details.String
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Snapshots returns recorded snapshots, newest first
func (s *Store) Snapshots(ctx context.Context, hostID string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, host_id, reason, adapters, created_at FROM snapshots
		WHERE (? = '' OR host_id = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, hostID, hostID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.ID, &sn.HostID, &sn.Reason, &sn.Adapters, &sn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, &sn)
	}
	return snaps, rows.Err()
}

// SnapshotAdapters decodes the adapter list stored with a snapshot
func (s *Store) SnapshotAdapters(ctx context.Context, id string) ([]*raid.Adapter, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &raid.NotFoundError{What: fmt.Sprintf("snapshot %s", id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var adapters []*raid.Adapter
	if err := json.Unmarshal([]byte(payload), &adapters); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return adapters, nil
}

// Alerts returns alerts, newest first. With unacked set only
// unacknowledged alerts are returned.
func (s *Store) Alerts(ctx context.Context, unacked bool, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, severity, category, message, host_id, controller_id, address, details,
			acknowledged, ack_timestamp, timestamp
		FROM alerts
		WHERE (? = 0 OR acknowledged = 0)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, boolInt(unacked), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var a Alert
		var hostID, address, details sql.NullString
		var controller sql.NullInt64
		var ackTime sql.NullTime
		err := rows.Scan(&a.ID, &a.Severity, &a.Category, &a.Message, &hostID, &controller,
			&address, &details, &a.Acknowledged, &ackTime, &a.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.HostID = hostID.String
		a.Address = address.String
		a.Details = details.String
		if controller.Valid {
			c := int(controller.Int64)
			a.ControllerID = &c
		}
		if ackTime.Valid {
			t := ackTime.Time
			a.AckTimestamp = &t
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert as acknowledged
func (s *Store) AcknowledgeAlert(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE alerts SET acknowledged = 1, ack_timestamp = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &raid.NotFoundError{What: fmt.Sprintf("alert %d", id)}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
