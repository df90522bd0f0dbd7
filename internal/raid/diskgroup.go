package raid

import (
	"encoding/json"
	"strconv"
)

// DiskGroupKind tells how a disk group reference was reported
type DiskGroupKind int

const (
	// DiskGroupNone means the drive belongs to no disk group
	DiskGroupNone DiskGroupKind = iota
	// DiskGroupAssigned means ID is valid
	DiskGroupAssigned
	// DiskGroupUnknown means the vendor reported a token that is neither a
	// number nor the empty placeholder, e.g. "F" for a foreign configuration
	DiskGroupUnknown
)

// DiskGroup is a possibly absent disk group id
type DiskGroup struct {
	Kind DiskGroupKind
	ID   int
	// Raw keeps the vendor token of an unknown disk group
	Raw string
}

// Assigned returns a disk group reference to id
func Assigned(id int) DiskGroup {
	return DiskGroup{Kind: DiskGroupAssigned, ID: id}
}

// UnknownDiskGroup returns a reference that keeps an unrecognized token
func UnknownDiskGroup(raw string) DiskGroup {
	return DiskGroup{Kind: DiskGroupUnknown, Raw: raw}
}

// Get returns the id and whether the disk group is assigned
func (d DiskGroup) Get() (int, bool) {
	return d.ID, d.Kind == DiskGroupAssigned
}

// IsNone reports whether the drive is outside any disk group
func (d DiskGroup) IsNone() bool {
	return d.Kind == DiskGroupNone
}

// Is reports whether d is assigned to id
func (d DiskGroup) Is(id int) bool {
	return d.Kind == DiskGroupAssigned && d.ID == id
}

func (d DiskGroup) String() string {
	switch d.Kind {
	case DiskGroupAssigned:
		return strconv.Itoa(d.ID)
	case DiskGroupUnknown:
		return d.Raw
	default:
		return "-"
	}
}

// MarshalJSON encodes an assigned group as its id, none as null and an
// unknown group as its raw token
func (d DiskGroup) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DiskGroupAssigned:
		return []byte(strconv.Itoa(d.ID)), nil
	case DiskGroupUnknown:
		return json.Marshal(d.Raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reverses MarshalJSON
func (d *DiskGroup) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = DiskGroup{}
		return nil
	}
	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*d = Assigned(id)
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = UnknownDiskGroup(raw)
	return nil
}
