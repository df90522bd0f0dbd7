// Package metrics exposes RAID inventory as Prometheus gauges written to a
// node_exporter textfile.
package metrics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigreer/raidgod/internal/inventory"
	"github.com/sigreer/raidgod/internal/raid"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	AdapterInfo         *prometheus.GaugeVec
	LogicalDriveStatus  *prometheus.GaugeVec
	LogicalDriveSize    *prometheus.GaugeVec
	PhysicalDriveStatus *prometheus.GaugeVec
	PhysicalDriveSize   *prometheus.GaugeVec
	ArrayFreeSpace      *prometheus.GaugeVec
	LastUpdate          prometheus.Gauge

	textfile string
}

// New creates the metrics on a private registry. A non-empty textfile makes
// Update write the registry to that path.
func New(textfile string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		AdapterInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "raidgod_adapter_info",
				Help: "RAID adapter present on the host",
			},
			[]string{"controller", "name", "provider"},
		),
		LogicalDriveStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "raidgod_logical_drive_status",
				Help: "Logical drive status (0=unknown, 1=ok, 2=recovering, 3=degraded)",
			},
			[]string{"controller", "virtual_drive", "disk_group", "level", "name"},
		),
		LogicalDriveSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "raidgod_logical_drive_size_bytes",
				Help: "Logical drive size in bytes",
			},
			[]string{"controller", "virtual_drive"},
		),
		PhysicalDriveStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "raidgod_physical_drive_status",
				Help: "Physical drive status (0=unknown, 1=ok, 3=failed)",
			},
			[]string{"controller", "address", "role", "vendor_state", "model"},
		),
		PhysicalDriveSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "raidgod_physical_drive_size_bytes",
				Help: "Physical drive size in bytes",
			},
			[]string{"controller", "address"},
		),
		ArrayFreeSpace: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "raidgod_array_free_space_bytes",
				Help: "Unallocated space left in a disk group",
			},
			[]string{"controller", "disk_group"},
		),
		LastUpdate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "raidgod_last_update_timestamp_seconds",
				Help: "Unix time of the last inventory update",
			},
		),
		textfile: textfile,
	}

	m.Registry.MustRegister(
		m.AdapterInfo,
		m.LogicalDriveStatus,
		m.LogicalDriveSize,
		m.PhysicalDriveStatus,
		m.PhysicalDriveSize,
		m.ArrayFreeSpace,
		m.LastUpdate,
	)

	return m
}

// Reset clears all labelled metrics
func (m *Metrics) Reset() {
	m.AdapterInfo.Reset()
	m.LogicalDriveStatus.Reset()
	m.LogicalDriveSize.Reset()
	m.PhysicalDriveStatus.Reset()
	m.PhysicalDriveSize.Reset()
	m.ArrayFreeSpace.Reset()
}

// LogicalStatusValue maps a logical drive status to its gauge value
func LogicalStatusValue(s raid.LogicalStatus) float64 {
	switch s {
	case raid.LogicalOK:
		return 1
	case raid.LogicalRecovering:
		return 2
	case raid.LogicalDegraded:
		return 3
	default:
		return 0
	}
}

// DriveStatusValue maps a physical drive status to its gauge value
func DriveStatusValue(s raid.DriveStatus) float64 {
	switch s {
	case raid.DriveOK:
		return 1
	case raid.DriveFailed:
		return 3
	default:
		return 0
	}
}

// Observe replaces the metric values with the given adapters
func (m *Metrics) Observe(adapters []*raid.Adapter) {
	m.Reset()
	for _, a := range adapters {
		ctrl := strconv.Itoa(a.ControllerID)
		m.AdapterInfo.WithLabelValues(ctrl, a.Name, a.Provider).Set(1)

		cfg := a.Configuration
		for _, arr := range cfg.Arrays {
			dg := arr.Extra.DiskGroup.String()
			m.ArrayFreeSpace.WithLabelValues(ctrl, dg).Set(float64(arr.FreeSpace))
			for _, ld := range arr.LogicalDrives {
				vd := strconv.Itoa(ld.Extra.VirtualDrive)
				m.LogicalDriveStatus.WithLabelValues(ctrl, vd, dg, strconv.Itoa(ld.Level), ld.Extra.Name).
					Set(LogicalStatusValue(ld.Status))
				m.LogicalDriveSize.WithLabelValues(ctrl, vd).Set(float64(ld.Size))
			}
			for _, d := range arr.PhysicalDrives {
				m.drive(ctrl, inventory.RoleMember, d)
			}
		}
		for _, sp := range cfg.Spares {
			m.drive(ctrl, inventory.RoleSpare, sp.PhysicalDrive)
		}
		for _, d := range cfg.Unassigned {
			m.drive(ctrl, inventory.RoleUnassigned, d)
		}
	}
}

func (m *Metrics) drive(ctrl, role string, d raid.PhysicalDrive) {
	m.PhysicalDriveStatus.WithLabelValues(ctrl, d.Extra.Address, role, d.Extra.VendorState, d.Extra.Model).
		Set(DriveStatusValue(d.Status))
	m.PhysicalDriveSize.WithLabelValues(ctrl, d.Extra.Address).Set(float64(d.Size))
}

// Update implements inventory.Sink
func (m *Metrics) Update(_ context.Context, report inventory.Report) error {
	m.Observe(report.Adapters)
	if !report.Time.IsZero() {
		m.LastUpdate.Set(float64(report.Time.Unix()))
	}
	if m.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
