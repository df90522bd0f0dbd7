package inventory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/raidgod/internal/raid"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pd(index int, addr string, status raid.DriveStatus, state string) raid.PhysicalDrive {
	return raid.PhysicalDrive{
		Index:  index,
		Size:   300 << 30,
		Status: status,
		Type:   "HDD",
		Extra: raid.PhysicalDriveExtra{
			Address:     addr,
			DriveID:     index,
			Model:       "ST300MM0006",
			Interface:   "SAS",
			VendorState: state,
		},
	}
}

func adapter(ldStatus raid.LogicalStatus, members ...raid.PhysicalDrive) *raid.Adapter {
	for i := range members {
		members[i].Extra.DiskGroup = raid.Assigned(0)
	}
	return &raid.Adapter{
		Name:         "PERC 6/i Integrated",
		Provider:     "megaraid",
		ControllerID: 0,
		Configuration: raid.AdapterConfiguration{
			Arrays: []raid.Array{{
				LogicalDrives: []raid.LogicalDrive{{
					Level:  1,
					Size:   100 << 30,
					Status: ldStatus,
					Extra:  raid.LogicalDriveExtra{DiskGroup: raid.Assigned(0), VirtualDrive: 0, Name: "data"},
				}},
				PhysicalDrives: members,
				Extra:          raid.ArrayExtra{DiskGroup: raid.Assigned(0)},
			}},
			Spares: []raid.Spare{{
				PhysicalDrive: func() raid.PhysicalDrive {
					d := pd(2, "32:2", raid.DriveOK, "GHS")
					d.Extra.SpareType = raid.SpareGlobal
					return d
				}(),
			}},
			Unassigned: []raid.PhysicalDrive{pd(3, "32:3", raid.DriveOK, "UGood")},
		},
	}
}

func TestOpenMigrates(t *testing.T) {
	s := openStore(t)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)

	// reopening the same file must not reapply migrations
	path := s.Path()
	require.NoError(t, s.Close())
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v, err = s2.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestRecordDiscoversDrives(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	id, err := s.Record(ctx, Report{
		HostID:   "host1",
		Reason:   "inspect",
		Adapters: []*raid.Adapter{adapter(raid.LogicalOK, pd(0, "32:0", raid.DriveOK, "Onln"), pd(1, "32:1", raid.DriveOK, "Onln"))},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	drives, err := s.ListDrives(ctx, "host1")
	require.NoError(t, err)
	require.Len(t, drives, 4)

	byAddr := map[string]*DriveRecord{}
	for _, d := range drives {
		byAddr[d.Address] = d
	}
	assert.Equal(t, StateActive, byAddr["32:0"].CurrentState)
	assert.Equal(t, RoleMember, byAddr["32:0"].Role)
	assert.Equal(t, "0", byAddr["32:0"].DiskGroup)
	assert.Equal(t, int64(300<<30), byAddr["32:0"].SizeBytes)
	assert.Equal(t, StateSpare, byAddr["32:2"].CurrentState)
	assert.Equal(t, "global", byAddr["32:2"].SpareType)
	assert.Equal(t, StateUnassigned, byAddr["32:3"].CurrentState)
	assert.Equal(t, "", byAddr["32:3"].DiskGroup)

	events, err := s.RecentEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	for _, e := range events {
		assert.Equal(t, EventDiscovered, e.EventType)
		assert.Equal(t, id, e.SnapshotID)
	}

	lds, err := s.ListLogicalDrives(ctx, "")
	require.NoError(t, err)
	require.Len(t, lds, 1)
	assert.Equal(t, "data", lds[0].Name)
	assert.Equal(t, "OK", lds[0].Status)

	alerts, err := s.Alerts(ctx, true, 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	adapters, err := s.SnapshotAdapters(ctx, id)
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, "PERC 6/i Integrated", adapters[0].Name)
	assert.True(t, adapters[0].Configuration.Arrays[0].Extra.DiskGroup.Is(0))
}

func TestRecordTransitions(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Update(ctx, Report{
		HostID:   "host1",
		Reason:   "inspect",
		Time:     t0,
		Adapters: []*raid.Adapter{adapter(raid.LogicalOK, pd(0, "32:0", raid.DriveOK, "Onln"), pd(1, "32:1", raid.DriveOK, "Onln"))},
	}))

	// 32:1 fails and 32:0 disappears
	second := adapter(raid.LogicalDegraded, pd(1, "32:1", raid.DriveFailed, "UBad"))
	require.NoError(t, s.Update(ctx, Report{HostID: "host1", Reason: "inspect", Time: t0.Add(time.Minute), Adapters: []*raid.Adapter{second}}))

	failed, err := s.GetDrive(ctx, "host1", 0, "32:1")
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, StateFailed, failed.CurrentState)
	assert.Equal(t, "UBad", failed.VendorState)

	missing, err := s.GetDrive(ctx, "host1", 0, "32:0")
	require.NoError(t, err)
	require.NotNil(t, missing)
	assert.Equal(t, StateMissing, missing.CurrentState)

	none, err := s.GetDrive(ctx, "host1", 0, "32:9")
	require.NoError(t, err)
	assert.Nil(t, none)

	history, err := s.DriveEvents(ctx, failed.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, EventFailed, history[0].EventType)
	assert.Equal(t, StateActive, history[0].OldState)
	assert.Equal(t, EventDiscovered, history[1].EventType)

	alerts, err := s.Alerts(ctx, true, 0)
	require.NoError(t, err)
	categories := map[string]string{}
	for _, a := range alerts {
		categories[a.Category] = a.Severity
	}
	assert.Equal(t, map[string]string{
		CategoryDriveFailed:   SeverityCritical,
		CategoryDriveMissing:  SeverityWarning,
		CategoryArrayDegraded: SeverityWarning,
	}, categories)

	total, active, nMissing, nFailed, err := s.DriveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 0, active)
	assert.Equal(t, 1, nMissing)
	assert.Equal(t, 1, nFailed)

	// an unchanged report adds no alerts and no events
	require.NoError(t, s.Update(ctx, Report{HostID: "host1", Reason: "inspect", Time: t0.Add(2 * time.Minute), Adapters: []*raid.Adapter{adapter(raid.LogicalDegraded, pd(1, "32:1", raid.DriveFailed, "UBad"))}}))
	again, err := s.Alerts(ctx, false, 0)
	require.NoError(t, err)
	assert.Len(t, again, 3)

	// drive comes back
	require.NoError(t, s.Update(ctx, Report{HostID: "host1", Reason: "inspect", Time: t0.Add(3 * time.Minute), Adapters: []*raid.Adapter{adapter(raid.LogicalOK, pd(0, "32:0", raid.DriveOK, "Onln"), pd(1, "32:1", raid.DriveOK, "Onln"))}}))
	back, err := s.GetDrive(ctx, "host1", 0, "32:0")
	require.NoError(t, err)
	assert.Equal(t, StateActive, back.CurrentState)
	events, err := s.DriveEvents(ctx, back.ID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOnline, events[0].EventType)

	snaps, err := s.Snapshots(ctx, "host1", 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 4)
	assert.True(t, snaps[0].CreatedAt.Equal(t0.Add(3*time.Minute)))
}

func TestLogicalDrivesPruned(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a := adapter(raid.LogicalOK, pd(0, "32:0", raid.DriveOK, "Onln"))
	require.NoError(t, s.Update(ctx, Report{HostID: "h", Reason: "inspect", Adapters: []*raid.Adapter{a}}))

	a.Configuration.Arrays = nil
	require.NoError(t, s.Update(ctx, Report{HostID: "h", Reason: "delete", Adapters: []*raid.Adapter{a}}))

	lds, err := s.ListLogicalDrives(ctx, "h")
	require.NoError(t, err)
	assert.Empty(t, lds)
}

func TestAcknowledgeAlert(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Update(ctx, Report{HostID: "h", Reason: "inspect", Adapters: []*raid.Adapter{adapter(raid.LogicalDegraded, pd(0, "32:0", raid.DriveOK, "Onln"))}}))
	alerts, err := s.Alerts(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.NotNil(t, alerts[0].ControllerID)
	assert.Equal(t, 0, *alerts[0].ControllerID)

	require.NoError(t, s.AcknowledgeAlert(ctx, alerts[0].ID))
	unacked, err := s.Alerts(ctx, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unacked)

	all, err := s.Alerts(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Acknowledged)
	assert.NotNil(t, all[0].AckTimestamp)

	var nf *raid.NotFoundError
	assert.True(t, errors.As(s.AcknowledgeAlert(ctx, 999), &nf))
}

type recordingSink struct {
	reports []Report
	err     error
}

func (r *recordingSink) Update(_ context.Context, report Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{err: errors.New("boom")}
	b := &recordingSink{}
	err := MultiSink{a, b}.Update(context.Background(), Report{Reason: "inspect"})
	assert.EqualError(t, err, "boom")
	assert.Len(t, a.reports, 1)
	assert.Len(t, b.reports, 1)
}

func TestAlertsLoggedOnlyAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	hook := logtest.NewGlobal()
	t.Cleanup(hook.Reset)

	tx, err := s.conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	u := &updater{tx: tx, report: Report{HostID: "h", Time: time.Now().UTC()}}
	require.NoError(t, u.alert(ctx, SeverityCritical, CategoryDriveFailed, "drive 32:1 failed", 0, "32:1", nil))
	require.NoError(t, tx.Rollback())
	assert.Empty(t, hook.AllEntries())

	alerts, err := s.Alerts(ctx, false, 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, s.Update(ctx, Report{HostID: "h", Reason: "inspect", Adapters: []*raid.Adapter{adapter(raid.LogicalDegraded, pd(0, "32:0", raid.DriveOK, "Onln"))}}))
	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warned = append(warned, e.Data["category"].(string))
		}
	}
	assert.Equal(t, []string{CategoryArrayDegraded}, warned)
}

func TestAlertDetailsEncodingError(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	tx, err := s.conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	u := &updater{tx: tx, report: Report{HostID: "h", Time: time.Now().UTC()}}
	err = u.alert(ctx, SeverityWarning, CategoryDriveMissing, "drive 32:0 is missing", 0, "32:0", map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "failed to encode alert details")
	assert.Empty(t, u.alerts)
}
