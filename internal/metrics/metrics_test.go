package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/raidgod/internal/inventory"
	"github.com/sigreer/raidgod/internal/raid"
)

func testAdapter() *raid.Adapter {
	return &raid.Adapter{
		Name:         "PERC 6/i Integrated",
		Provider:     "megaraid",
		ControllerID: 0,
		Configuration: raid.AdapterConfiguration{
			Arrays: []raid.Array{{
				FreeSpace: 1 << 30,
				LogicalDrives: []raid.LogicalDrive{{
					Level:  1,
					Size:   100 << 30,
					Status: raid.LogicalDegraded,
					Extra:  raid.LogicalDriveExtra{DiskGroup: raid.Assigned(1), VirtualDrive: 1, Name: "data"},
				}},
				PhysicalDrives: []raid.PhysicalDrive{
					{Index: 1, Status: raid.DriveOK, Size: 300 << 30, Extra: raid.PhysicalDriveExtra{Address: "32:1", VendorState: "Onln"}},
				},
				Extra: raid.ArrayExtra{DiskGroup: raid.Assigned(1)},
			}},
			Unassigned: []raid.PhysicalDrive{
				{Index: 5, Status: raid.DriveFailed, Extra: raid.PhysicalDriveExtra{Address: "32:5", VendorState: "UBad"}},
			},
		},
	}
}

func TestObserve(t *testing.T) {
	m := New("")
	m.Observe([]*raid.Adapter{testAdapter()})

	assert.Equal(t, float64(3), testutil.ToFloat64(m.LogicalDriveStatus.WithLabelValues("0", "1", "1", "1", "data")))
	assert.Equal(t, float64(100<<30), testutil.ToFloat64(m.LogicalDriveSize.WithLabelValues("0", "1")))
	assert.Equal(t, float64(1<<30), testutil.ToFloat64(m.ArrayFreeSpace.WithLabelValues("0", "1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PhysicalDriveStatus.WithLabelValues("0", "32:1", "member", "Onln", "")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PhysicalDriveStatus.WithLabelValues("0", "32:5", "unassigned", "UBad", "")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.PhysicalDriveStatus))

	// a second observation drops series that went away
	m.Observe(nil)
	assert.Equal(t, 0, testutil.CollectAndCount(m.PhysicalDriveStatus))
}

func TestUpdateWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raidgod.prom")
	m := New(path)

	now := time.Unix(1700000000, 0)
	require.NoError(t, m.Update(context.Background(), inventory.Report{Time: now, Adapters: []*raid.Adapter{testAdapter()}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `raidgod_logical_drive_status{controller="0",disk_group="1",level="1",name="data",virtual_drive="1"} 3`)
	assert.Contains(t, string(data), "raidgod_last_update_timestamp_seconds 1.7e+09")
}

func TestStatusValues(t *testing.T) {
	assert.Equal(t, float64(1), LogicalStatusValue(raid.LogicalOK))
	assert.Equal(t, float64(2), LogicalStatusValue(raid.LogicalRecovering))
	assert.Equal(t, float64(0), LogicalStatusValue(raid.LogicalUnknown))
	assert.Equal(t, float64(0), DriveStatusValue(raid.DriveUnknown))
}
