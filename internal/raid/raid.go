// Package raid holds the vendor neutral RAID inventory model shared by the
// controller engines, the inventory store and the command line.
package raid

import "encoding/json"

// Status values of a logical drive
type LogicalStatus string

const (
	LogicalOK         LogicalStatus = "OK"
	LogicalDegraded   LogicalStatus = "DEGRADED"
	LogicalRecovering LogicalStatus = "RECOVERING"
	LogicalUnknown    LogicalStatus = "UNKNOWN"
)

// Status values of a physical drive
type DriveStatus string

const (
	DriveOK      DriveStatus = "OK"
	DriveFailed  DriveStatus = "Failed"
	DriveUnknown DriveStatus = "UNKNOWN"
)

// SpareType classifies a hotspare. The zero value means the drive is not a
// spare and is encoded as null.
type SpareType string

const (
	SpareNone      SpareType = ""
	SpareDedicated SpareType = "dedicated"
	SpareGlobal    SpareType = "global"
)

// MarshalJSON encodes SpareNone as null
func (s SpareType) MarshalJSON() ([]byte, error) {
	if s == SpareNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null or a string
func (s *SpareType) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = SpareNone
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = SpareType(v)
	return nil
}

// ControllerInfo is the vendor metadata of a controller, snapshotted on every
// query
type ControllerInfo struct {
	General             map[string]any   `json:"general"`
	VersionInfo         map[string]any   `json:"version_info"`
	Bus                 map[string]any   `json:"bus"`
	Status              map[string]any   `json:"status"`
	SupportedAdapterOps map[string]any   `json:"supported_adapter_ops"`
	SupportedPDOps      map[string]any   `json:"supported_pd_ops"`
	SupportedVDOps      map[string]any   `json:"supported_vd_ops"`
	BBUInfo             []map[string]any `json:"bbu_info"`
}

// LogicalDriveExtra carries vendor details of a logical drive
type LogicalDriveExtra struct {
	DiskGroup    DiskGroup `json:"disk_group"`
	VirtualDrive int       `json:"virtual_drive"`
	Access       string    `json:"access"`
	Consistency  string    `json:"consistency"`
	Cache        string    `json:"cache"`
	Name         string    `json:"name"`
	VendorState  string    `json:"vendor_state"`
}

// LogicalDrive is a provisioned RAID volume
type LogicalDrive struct {
	Level  int               `json:"level"`
	Size   int64             `json:"size"`
	Status LogicalStatus     `json:"status"`
	Extra  LogicalDriveExtra `json:"extra"`
}

// PhysicalDriveExtra carries vendor details of a physical drive
type PhysicalDriveExtra struct {
	Address            string    `json:"address"`
	DriveID            int       `json:"drive_id"`
	Model              string    `json:"model"`
	DiskGroup          DiskGroup `json:"disk_group"`
	Interface          string    `json:"interface"`
	SelfEncryptedDrive bool      `json:"self_encrypted_drive"`
	Spun               string    `json:"spun"`
	SectorSize         int64     `json:"sector_size"`
	VendorState        string    `json:"vendor_state"`
	SpareType          SpareType `json:"spare_type"`
}

// PhysicalDrive is a disk attached to a controller. Index is the drive's
// position in the adapter wide list ordered by drive id.
type PhysicalDrive struct {
	Index  int                `json:"index"`
	Size   int64              `json:"size"`
	Status DriveStatus        `json:"status"`
	Type   string             `json:"type"`
	Extra  PhysicalDriveExtra `json:"extra"`
}

// Spare is a hotspare drive. Target is the index of the array it backs, nil
// for a global spare.
type Spare struct {
	PhysicalDrive
	Target *int `json:"target"`
}

// ArrayExtra carries vendor details of an array
type ArrayExtra struct {
	DiskGroup      DiskGroup `json:"disk_group"`
	BackgroundTask bool      `json:"background_task"`
	DimmerSwitch   *string   `json:"dimmer_switch"`
}

// Array is a disk group. Its position in AdapterConfiguration.Arrays is not
// the vendor disk group id; use Extra.DiskGroup for that.
type Array struct {
	LogicalDrives  []LogicalDrive  `json:"logical_drives"`
	PhysicalDrives []PhysicalDrive `json:"physical_drives"`
	FreeSpace      int64           `json:"free_space"`
	Extra          ArrayExtra      `json:"extra"`
}

// AdapterConfiguration is everything configured on one controller
type AdapterConfiguration struct {
	Arrays     []Array         `json:"arrays"`
	Spares     []Spare         `json:"spares"`
	Unassigned []PhysicalDrive `json:"unassigned"`
}

// Adapter is the inspection result for one controller
type Adapter struct {
	Index         int                  `json:"index"`
	Name          string               `json:"name"`
	Provider      string               `json:"provider"`
	ControllerID  int                  `json:"controller_id"`
	Controller    ControllerInfo       `json:"vendor_info"`
	Configuration AdapterConfiguration `json:"configuration"`
}

// Drives returns every physical drive of the configuration ordered by index
func (c AdapterConfiguration) Drives() []PhysicalDrive {
	var out []PhysicalDrive
	for _, a := range c.Arrays {
		out = append(out, a.PhysicalDrives...)
	}
	for _, s := range c.Spares {
		out = append(out, s.PhysicalDrive)
	}
	out = append(out, c.Unassigned...)
	sortByIndex(out)
	return out
}
