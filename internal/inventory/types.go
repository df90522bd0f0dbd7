package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/sigreer/raidgod/internal/raid"
)

// Report is the inventory produced after an inspection or a mutation
type Report struct {
	HostID string
	// Reason names what triggered the report, e.g. "inspect" or "create"
	Reason   string
	Time     time.Time
	Adapters []*raid.Adapter
}

// Sink receives inventory reports
type Sink interface {
	Update(ctx context.Context, report Report) error
}

// MultiSink fans a report out to several sinks. Every sink is called even
// when an earlier one fails.
type MultiSink []Sink

// Update implements Sink
func (m MultiSink) Update(ctx context.Context, report Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Update(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Drive roles
const (
	RoleMember     = "member"
	RoleSpare      = "spare"
	RoleUnassigned = "unassigned"
)

// Drive states
const (
	StateUnknown    = "unknown"
	StateActive     = "active"
	StateSpare      = "spare"
	StateUnassigned = "unassigned"
	StateMissing    = "missing"
	StateFailed     = "failed"
)

// Event types
const (
	EventDiscovered  = "discovered"
	EventOnline      = "online"
	EventMissing     = "missing"
	EventFailed      = "failed"
	EventStateChange = "state_change"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert categories
const (
	CategoryDriveMissing  = "drive_missing"
	CategoryDriveFailed   = "drive_failed"
	CategoryArrayDegraded = "array_degraded"
)

// Snapshot is one recorded report
type Snapshot struct {
	ID        string    `json:"id"`
	HostID    string    `json:"host_id"`
	Reason    string    `json:"reason"`
	Adapters  int       `json:"adapters"`
	CreatedAt time.Time `json:"created_at"`
}

// DriveRecord is the last known state of a physical drive
type DriveRecord struct {
	ID           int64     `json:"id"`
	HostID       string    `json:"host_id"`
	ControllerID int       `json:"controller_id"`
	Address      string    `json:"address"`
	DriveID      int       `json:"drive_id"`
	Model        string    `json:"model"`
	SizeBytes    int64     `json:"size_bytes"`
	Media        string    `json:"media"`
	Interface    string    `json:"interface"`
	DiskGroup    string    `json:"disk_group"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	VendorState  string    `json:"vendor_state"`
	SpareType    string    `json:"spare_type,omitempty"`
	CurrentState string    `json:"current_state"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// LogicalDriveRecord is the last known state of a virtual drive
type LogicalDriveRecord struct {
	ID           int64     `json:"id"`
	HostID       string    `json:"host_id"`
	ControllerID int       `json:"controller_id"`
	VirtualDrive int       `json:"virtual_drive"`
	DiskGroup    string    `json:"disk_group"`
	Level        int       `json:"level"`
	SizeBytes    int64     `json:"size_bytes"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	VendorState  string    `json:"vendor_state"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// DriveEvent is a drive state transition
type DriveEvent struct {
	ID           int64     `json:"id"`
	DriveID      int64     `json:"drive_id"`
	SnapshotID   string    `json:"snapshot_id,omitempty"`
	ControllerID int       `json:"controller_id"`
	Address      string    `json:"address"`
	EventType    string    `json:"event_type"`
	OldState     string    `json:"old_state,omitempty"`
	NewState     string    `json:"new_state"`
	Details      string    `json:"details,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Alert is something an operator should look at
type Alert struct {
	ID           int64      `json:"id"`
	Severity     string     `json:"severity"`
	Category     string     `json:"category"`
	Message      string     `json:"message"`
	HostID       string     `json:"host_id,omitempty"`
	ControllerID *int       `json:"controller_id,omitempty"`
	Address      string     `json:"address,omitempty"`
	Details      string     `json:"details,omitempty"`
	Acknowledged bool       `json:"acknowledged"`
	AckTimestamp *time.Time `json:"ack_timestamp,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}
