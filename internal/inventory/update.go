package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sigreer/raidgod/internal/raid"
)

// Update implements Sink
func (s *Store) Update(ctx context.Context, report Report) error {
	_, err := s.Record(ctx, report)
	return err
}

// Record stores a report in one transaction and returns the snapshot id.
// Drives of a reported controller that are absent from the report are
// marked missing; controllers not in the report are left alone.
func (s *Store) Record(ctx context.Context, report Report) (string, error) {
	if report.Time.IsZero() {
		report.Time = time.Now()
	}
	report.Time = report.Time.UTC()

	payload, err := json.Marshal(report.Adapters)
	if err != nil {
		return "", fmt.Errorf("failed to encode adapters: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	u := &updater{tx: tx, report: report, snapshotID: uuid.NewString()}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, host_id, reason, adapters, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.snapshotID, report.HostID, report.Reason, len(report.Adapters), string(payload), report.Time)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, a := range report.Adapters {
		if err := u.adapter(ctx, a); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit inventory: %w", err)
	}
	u.logAlerts()

	log.WithFields(log.Fields{
		"snapshot": u.snapshotID,
		"host":     report.HostID,
		"reason":   report.Reason,
		"adapters": len(report.Adapters),
	}).Debug("inventory recorded")

	return u.snapshotID, nil
}

type updater struct {
	tx         *sql.Tx
	report     Report
	snapshotID string
	// alerts raised in this transaction, logged once it commits
	alerts []pendingAlert
}

type pendingAlert struct {
	severity, category, message string
}

func (u *updater) logAlerts() {
	for _, a := range u.alerts {
		log.WithFields(log.Fields{"severity": a.severity, "category": a.category}).Warn(a.message)
	}
}

type roleDrive struct {
	drive raid.PhysicalDrive
	role  string
}

func (u *updater) adapter(ctx context.Context, a *raid.Adapter) error {
	cfg := a.Configuration

	var drives []roleDrive
	for _, arr := range cfg.Arrays {
		for _, d := range arr.PhysicalDrives {
			drives = append(drives, roleDrive{d, RoleMember})
		}
	}
	for _, sp := range cfg.Spares {
		drives = append(drives, roleDrive{sp.PhysicalDrive, RoleSpare})
	}
	for _, d := range cfg.Unassigned {
		drives = append(drives, roleDrive{d, RoleUnassigned})
	}

	seen := make(map[string]bool, len(drives))
	for _, rd := range drives {
		seen[rd.drive.Extra.Address] = true
		if err := u.drive(ctx, a.ControllerID, rd.drive, rd.role); err != nil {
			return err
		}
	}
	if err := u.markMissing(ctx, a.ControllerID, seen); err != nil {
		return err
	}

	vds := make(map[int]bool)
	for _, arr := range cfg.Arrays {
		for _, ld := range arr.LogicalDrives {
			vds[ld.Extra.VirtualDrive] = true
			if err := u.logicalDrive(ctx, a.ControllerID, ld); err != nil {
				return err
			}
		}
	}
	return u.pruneLogicalDrives(ctx, a.ControllerID, vds)
}

// driveState condenses status and role into the tracked state
func driveState(d raid.PhysicalDrive, role string) string {
	switch d.Status {
	case raid.DriveFailed:
		return StateFailed
	case raid.DriveUnknown:
		return StateUnknown
	}
	switch role {
	case RoleMember:
		return StateActive
	case RoleSpare:
		return StateSpare
	default:
		return StateUnassigned
	}
}

func eventTypeForStateChange(old, new string) string {
	switch new {
	case StateMissing:
		return EventMissing
	case StateFailed:
		return EventFailed
	case StateActive, StateSpare, StateUnassigned:
		if old == StateMissing || old == StateFailed {
			return EventOnline
		}
		return EventStateChange
	default:
		return EventStateChange
	}
}

func (u *updater) drive(ctx context.Context, controller int, d raid.PhysicalDrive, role string) error {
	r := u.report
	state := driveState(d, role)

	var id int64
	var old string
	err := u.tx.QueryRowContext(ctx, `
		SELECT id, current_state FROM drives
		WHERE host_id = ? AND controller_id = ? AND address = ?
	`, r.HostID, controller, d.Extra.Address).Scan(&id, &old)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := u.tx.ExecContext(ctx, `
			INSERT INTO drives (
				host_id, controller_id, address, drive_id, model, size_bytes, media,
				interface, disk_group, role, status, vendor_state, spare_type,
				current_state, first_seen, last_seen
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.HostID, controller, d.Extra.Address, d.Extra.DriveID, nullString(d.Extra.Model),
			nullInt64(d.Size), nullString(d.Type), nullString(d.Extra.Interface),
			nullString(diskGroupText(d.Extra.DiskGroup)), role, string(d.Status),
			nullString(d.Extra.VendorState), nullString(string(d.Extra.SpareType)),
			state, r.Time, r.Time)
		if err != nil {
			return fmt.Errorf("failed to insert drive %s: %w", d.Extra.Address, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to insert drive %s: %w", d.Extra.Address, err)
		}
		if err := u.event(ctx, id, EventDiscovered, "", state, d); err != nil {
			return err
		}
		if state == StateFailed {
			return u.driveFailed(ctx, controller, d)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed to query drive %s: %w", d.Extra.Address, err)
	}

	_, err = u.tx.ExecContext(ctx, `
		UPDATE drives SET
			drive_id = ?,
			model = COALESCE(?, model),
			size_bytes = COALESCE(?, size_bytes),
			media = COALESCE(?, media),
			interface = COALESCE(?, interface),
			disk_group = ?,
			role = ?,
			status = ?,
			vendor_state = ?,
			spare_type = ?,
			current_state = ?,
			last_seen = ?
		WHERE id = ?
	`, d.Extra.DriveID, nullString(d.Extra.Model), nullInt64(d.Size), nullString(d.Type),
		nullString(d.Extra.Interface), nullString(diskGroupText(d.Extra.DiskGroup)), role,
		string(d.Status), nullString(d.Extra.VendorState), nullString(string(d.Extra.SpareType)),
		state, r.Time, id)
	if err != nil {
		return fmt.Errorf("failed to update drive %s: %w", d.Extra.Address, err)
	}

	if old == state {
		return nil
	}
	if err := u.event(ctx, id, eventTypeForStateChange(old, state), old, state, d); err != nil {
		return err
	}
	if state == StateFailed {
		return u.driveFailed(ctx, controller, d)
	}
	return nil
}

func (u *updater) markMissing(ctx context.Context, controller int, seen map[string]bool) error {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT id, address, current_state FROM drives
		WHERE host_id = ? AND controller_id = ? AND current_state != ?
	`, u.report.HostID, controller, StateMissing)
	if err != nil {
		return fmt.Errorf("failed to query drives: %w", err)
	}

	type gone struct {
		id      int64
		address string
		state   string
	}
	var missing []gone
	for rows.Next() {
		var g gone
		if err := rows.Scan(&g.id, &g.address, &g.state); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan drive: %w", err)
		}
		if !seen[g.address] {
			missing = append(missing, g)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, g := range missing {
		if _, err := u.tx.ExecContext(ctx, `UPDATE drives SET current_state = ? WHERE id = ?`, StateMissing, g.id); err != nil {
			return fmt.Errorf("failed to mark drive %s missing: %w", g.address, err)
		}
		d := raid.PhysicalDrive{Extra: raid.PhysicalDriveExtra{Address: g.address}}
		if err := u.event(ctx, g.id, EventMissing, g.state, StateMissing, d); err != nil {
			return err
		}
		if err := u.alert(ctx, SeverityWarning, CategoryDriveMissing,
			fmt.Sprintf("drive %s on controller %d is missing", g.address, controller),
			controller, g.address, nil); err != nil {
			return err
		}
	}
	return nil
}

func (u *updater) driveFailed(ctx context.Context, controller int, d raid.PhysicalDrive) error {
	return u.alert(ctx, SeverityCritical, CategoryDriveFailed,
		fmt.Sprintf("drive %s on controller %d failed (%s)", d.Extra.Address, controller, d.Extra.VendorState),
		controller, d.Extra.Address, map[string]any{
			"model":      d.Extra.Model,
			"disk_group": diskGroupText(d.Extra.DiskGroup),
		})
}

func (u *updater) event(ctx context.Context, driveID int64, eventType, oldState, newState string, d raid.PhysicalDrive) error {
	details, err := json.Marshal(map[string]any{
		"address":      d.Extra.Address,
		"vendor_state": d.Extra.VendorState,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event details: %w", err)
	}
	_, err = u.tx.ExecContext(ctx, `
		INSERT INTO drive_events (drive_id, snapshot_id, event_type, old_state, new_state, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, driveID, u.snapshotID, eventType, nullString(oldState), newState, string(details), u.report.Time)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (u *updater) alert(ctx context.Context, severity, category, message string, controller int, address string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode alert details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO alerts (severity, category, message, host_id, controller_id, address, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, severity, category, message, nullString(u.report.HostID), controller, nullString(address), detailsJSON, u.report.Time)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	u.alerts = append(u.alerts, pendingAlert{severity, category, message})
	return nil
}

func (u *updater) logicalDrive(ctx context.Context, controller int, ld raid.LogicalDrive) error {
	r := u.report

	var old string
	err := u.tx.QueryRowContext(ctx, `
		SELECT status FROM logical_drives
		WHERE host_id = ? AND controller_id = ? AND virtual_drive = ?
	`, r.HostID, controller, ld.Extra.VirtualDrive).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to query logical drive %d: %w", ld.Extra.VirtualDrive, err)
	}

	_, err = u.tx.ExecContext(ctx, `
		INSERT INTO logical_drives (
			host_id, controller_id, virtual_drive, disk_group, level, size_bytes,
			name, status, vendor_state, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host_id, controller_id, virtual_drive) DO UPDATE SET
			disk_group = excluded.disk_group,
			level = excluded.level,
			size_bytes = excluded.size_bytes,
			name = excluded.name,
			status = excluded.status,
			vendor_state = excluded.vendor_state,
			last_seen = excluded.last_seen
	`, r.HostID, controller, ld.Extra.VirtualDrive, nullString(diskGroupText(ld.Extra.DiskGroup)),
		ld.Level, nullInt64(ld.Size), nullString(ld.Extra.Name), string(ld.Status),
		nullString(ld.Extra.VendorState), r.Time, r.Time)
	if err != nil {
		return fmt.Errorf("failed to upsert logical drive %d: %w", ld.Extra.VirtualDrive, err)
	}

	if ld.Status == raid.LogicalDegraded && old != string(raid.LogicalDegraded) {
		return u.alert(ctx, SeverityWarning, CategoryArrayDegraded,
			fmt.Sprintf("virtual drive %d (RAID%d) on controller %d is degraded", ld.Extra.VirtualDrive, ld.Level, controller),
			controller, "", map[string]any{"name": ld.Extra.Name, "vendor_state": ld.Extra.VendorState})
	}
	return nil
}

func (u *updater) pruneLogicalDrives(ctx context.Context, controller int, seen map[int]bool) error {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT virtual_drive FROM logical_drives WHERE host_id = ? AND controller_id = ?
	`, u.report.HostID, controller)
	if err != nil {
		return fmt.Errorf("failed to query logical drives: %w", err)
	}
	var stale []int
	for rows.Next() {
		var vd int
		if err := rows.Scan(&vd); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan logical drive: %w", err)
		}
		if !seen[vd] {
			stale = append(stale, vd)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, vd := range stale {
		_, err := u.tx.ExecContext(ctx, `
			DELETE FROM logical_drives WHERE host_id = ? AND controller_id = ? AND virtual_drive = ?
		`, u.report.HostID, controller, vd)
		if err != nil {
			return fmt.Errorf("failed to remove logical drive %d: %w", vd, err)
		}
	}
	return nil
}

func diskGroupText(dg raid.DiskGroup) string {
	if dg.IsNone() {
		return ""
	}
	return dg.String()
}
