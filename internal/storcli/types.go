package storcli

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Dash is the placeholder storcli prints for an empty table cell
const Dash = "-"

// CellKind classifies a Cell after normalization
type CellKind int

const (
	// CellDash is the "-" placeholder (or an empty cell)
	CellDash CellKind = iota
	// CellNumber is an integer, whether it arrived as a JSON number or a string
	CellNumber
	// CellUnrecognized is any other token, e.g. "F" for a foreign disk group
	CellUnrecognized
)

// Cell is a table value that storcli emits inconsistently as a JSON number,
// a numeric string, or "-" depending on the section it appears in.
type Cell string

// UnmarshalJSON accepts strings, numbers and null
func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*c = Cell(n.String())
		return nil
	}
}

// MarshalJSON writes numbers as numbers and everything else as a string
func (c Cell) MarshalJSON() ([]byte, error) {
	if n, kind := c.Int(); kind == CellNumber {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(c))
}

// Int normalizes the cell. Every field that may carry the dash placeholder
// goes through here so the rule lives in one place.
func (c Cell) Int() (int, CellKind) {
	s := strings.TrimSpace(string(c))
	if s == "" || s == Dash {
		return 0, CellDash
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, CellUnrecognized
	}
	return n, CellNumber
}

// IsDash reports whether the cell holds the placeholder
func (c Cell) IsDash() bool {
	_, kind := c.Int()
	return kind == CellDash
}

// String returns the raw text
func (c Cell) String() string {
	return string(c)
}

// CommandStatus is the per-controller status block of every JSON response
type CommandStatus struct {
	CLIVersion      string            `json:"CLI Version"`
	OperatingSystem string            `json:"Operating system"`
	Controller      Cell              `json:"Controller"`
	Status          string            `json:"Status"`
	Description     string            `json:"Description"`
	DetailedStatus  []json.RawMessage `json:"Detailed Status,omitempty"`
}

// Success reports whether the block signals success. A missing block counts
// as success since not every command emits one.
func (s CommandStatus) Success() bool {
	return s.Status == "" || s.Status == "Success"
}

// Details renders the detailed status entries as text. storcli emits them
// either as plain strings or as small objects.
func (s CommandStatus) Details() []string {
	out := make([]string, 0, len(s.DetailedStatus))
	for _, raw := range s.DetailedStatus {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			out = append(out, str)
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			out = append(out, string(raw))
			continue
		}
		out = append(out, buf.String())
	}
	return out
}

// ControllerResponse is one element of the top level "Controllers" list
type ControllerResponse[T any] struct {
	CommandStatus CommandStatus `json:"Command Status"`
	ResponseData  T             `json:"Response Data"`
}

// Response is the envelope of every storcli JSON document. Controllers is a
// pointer so a missing key can be told apart from an empty list.
type Response[T any] struct {
	Controllers *[]ControllerResponse[T] `json:"Controllers"`
}

// Basics is the "Basics" section of /cX show all
type Basics struct {
	Controller   int    `json:"Controller"`
	Model        string `json:"Model"`
	SerialNumber string `json:"Serial Number"`
	ControllerDT string `json:"Current Controller Date/Time,omitempty"`
	SystemDT     string `json:"Current System Date/Time,omitempty"`
	SASAddress   string `json:"SAS Address,omitempty"`
	PCIAddress   string `json:"PCI Address,omitempty"`
	MfgDate      string `json:"Manufacture Date,omitempty"`
	ReworkDate   string `json:"Rework Date,omitempty"`
	Revision     string `json:"Revision No,omitempty"`
}

// VersionInfo is the "Version" section of /cX show all
type VersionInfo struct {
	FirmwarePackage string `json:"Firmware Package Build,omitempty"`
	FirmwareVersion string `json:"Firmware Version,omitempty"`
	BiosVersion     string `json:"Bios Version,omitempty"`
	DriverName      string `json:"Driver Name,omitempty"`
	DriverVersion   string `json:"Driver Version,omitempty"`
}

// ControllerDump is the response data of /call show all for one controller.
// Sections whose layout varies between firmware generations are kept as
// generic maps.
type ControllerDump struct {
	Basics                     Basics           `json:"Basics"`
	Version                    VersionInfo      `json:"Version"`
	Bus                        map[string]any   `json:"Bus"`
	Status                     map[string]any   `json:"Status"`
	SupportedAdapterOperations map[string]any   `json:"Supported Adapter Operations"`
	SupportedPDOperations      map[string]any   `json:"Supported PD Operations"`
	SupportedVDOperations      map[string]any   `json:"Supported VD Operations"`
	BBUInfo                    []map[string]any `json:"BBU_Info,omitempty"`
}

// TopologyRow is a row of the TOPOLOGY table. Rows with Arr == "-" and a
// Type other than DRIVE describe a whole disk group.
type TopologyRow struct {
	DG     Cell   `json:"DG"`
	Arr    Cell   `json:"Arr"`
	Row    Cell   `json:"Row"`
	EIDSlt string `json:"EID:Slot"`
	DID    Cell   `json:"DID"`
	Type   string `json:"Type"`
	State  string `json:"State"`
	BT     string `json:"BT"`
	Size   string `json:"Size"`
	PDC    string `json:"PDC"`
	PI     string `json:"PI"`
	SED    string `json:"SED"`
	DS3    string `json:"DS3"`
	FSpace string `json:"FSpace"`
	TR     string `json:"TR,omitempty"`
}

// VirtualDriveRow is a row of the VD LIST table
type VirtualDriveRow struct {
	DGVD    string `json:"DG/VD"`
	Type    string `json:"TYPE"`
	State   string `json:"State"`
	Access  string `json:"Access"`
	Consist string `json:"Consist"`
	Cache   string `json:"Cache"`
	Cac     string `json:"Cac"`
	SCC     string `json:"sCC"`
	Size    string `json:"Size"`
	Name    string `json:"Name"`
}

// DriveRow is a row of the DG Drive LIST and UN-CONFIGURED DRIVE LIST tables
type DriveRow struct {
	EIDSlt string `json:"EID:Slt"`
	DID    int    `json:"DID"`
	State  string `json:"State"`
	DG     Cell   `json:"DG"`
	Size   string `json:"Size"`
	Intf   string `json:"Intf"`
	Med    string `json:"Med"`
	SED    string `json:"SED"`
	PI     string `json:"PI"`
	SeSz   string `json:"SeSz"`
	Model  string `json:"Model"`
	Sp     string `json:"Sp"`
	Type   string `json:"Type"`
}

// FreeSpaceRow is a row of the FREE SPACE DETAILS table
type FreeSpaceRow struct {
	AddrID Cell   `json:"AddrID,omitempty"`
	DG     Cell   `json:"DG"`
	Arr    Cell   `json:"Arr"`
	Row    Cell   `json:"Row"`
	Size   string `json:"Size"`
}

// DiskGroupDump is the inner response data of /cX/dall show all
type DiskGroupDump struct {
	Topology          []TopologyRow     `json:"TOPOLOGY,omitempty"`
	VirtualDrives     []VirtualDriveRow `json:"VD LIST,omitempty"`
	TotalVDCount      int               `json:"Total VD Count,omitempty"`
	Drives            []DriveRow        `json:"DG Drive LIST,omitempty"`
	TotalDriveCount   int               `json:"Total Drive Count,omitempty"`
	FreeSpace         []FreeSpaceRow    `json:"FREE SPACE DETAILS,omitempty"`
	Unconfigured      []DriveRow        `json:"UN-CONFIGURED DRIVE LIST,omitempty"`
	UnconfiguredCount int               `json:"Unconfigured Drive Count,omitempty"`
}

// diskGroupEnvelope accounts for the extra "Response Data" level storcli
// wraps disk group output in
type diskGroupEnvelope struct {
	ResponseData DiskGroupDump `json:"Response Data"`
}

// EnclosureDump is the response data of /cX/eall show all. Keys are named
// after each enclosure ("Enclosure /c0/e32  :") so the layout stays generic.
type EnclosureDump map[string]any
