package megaraid

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/storcli"
)

// GoodState is the vendor state of a drive that can join a new array
const GoodState = "UGood"

// driveRowType marks topology rows describing a single drive
const driveRowType = "DRIVE"

var driveStatus = map[string]raid.DriveStatus{
	"Onln":  raid.DriveOK,
	"UGood": raid.DriveOK,
	"DHS":   raid.DriveOK,
	"GHS":   raid.DriveOK,
	"UBad":  raid.DriveFailed,
	"Offln": raid.DriveFailed,
}

var logicalStatus = map[string]raid.LogicalStatus{
	"Optl": raid.LogicalOK,
	"Pdgd": raid.LogicalDegraded,
	"dgrd": raid.LogicalDegraded,
	"Dgrd": raid.LogicalDegraded,
	"Rec":  raid.LogicalRecovering,
}

var spareTypes = map[string]raid.SpareType{
	"DHS": raid.SpareDedicated,
	"GHS": raid.SpareGlobal,
}

// DriveStatus maps a vendor drive state, falling back to UNKNOWN
func DriveStatus(state string) raid.DriveStatus {
	if s, ok := driveStatus[state]; ok {
		return s
	}
	return raid.DriveUnknown
}

// LogicalStatus maps a vendor virtual drive state, falling back to UNKNOWN
func LogicalStatus(state string) raid.LogicalStatus {
	if s, ok := logicalStatus[state]; ok {
		return s
	}
	return raid.LogicalUnknown
}

// DiskGroup normalizes a DG cell
func DiskGroup(c storcli.Cell) raid.DiskGroup {
	n, kind := c.Int()
	switch kind {
	case storcli.CellNumber:
		return raid.Assigned(n)
	case storcli.CellUnrecognized:
		return raid.UnknownDiskGroup(strings.TrimSpace(c.String()))
	default:
		return raid.DiskGroup{}
	}
}

// TransformConfiguration builds the adapter configuration from a disk group
// dump. Drive indices are assigned across the whole adapter by drive id.
func TransformConfiguration(dump storcli.DiskGroupDump) (raid.AdapterConfiguration, error) {
	cfg := raid.AdapterConfiguration{
		Arrays:     []raid.Array{},
		Spares:     []raid.Spare{},
		Unassigned: []raid.PhysicalDrive{},
	}

	if len(dump.Topology) > 0 {
		arrays, err := Arrays(dump)
		if err != nil {
			return cfg, err
		}
		spares, err := Spares(arrays, dump.Unconfigured)
		if err != nil {
			return cfg, err
		}
		cfg.Arrays = arrays
		cfg.Spares = spares
	}

	unassigned, err := Unassigned(dump.Unconfigured)
	if err != nil {
		return cfg, err
	}
	cfg.Unassigned = unassigned

	assignIndices(&cfg)
	return cfg, nil
}

// Arrays builds one array per disk group row of the topology, in topology
// order. Disk group rows are those with no array number that do not describe
// a drive.
func Arrays(dump storcli.DiskGroupDump) ([]raid.Array, error) {
	arrays := []raid.Array{}
	for _, row := range dump.Topology {
		if !row.Arr.IsDash() || row.Type == driveRowType {
			continue
		}
		dg := DiskGroup(row.DG)

		lds, err := LogicalDrives(dg, dump.VirtualDrives)
		if err != nil {
			return nil, err
		}
		pds, err := PhysicalDrives(dg, dump.Drives)
		if err != nil {
			return nil, err
		}
		free, err := FreeSpace(dg, dump.FreeSpace)
		if err != nil {
			return nil, err
		}

		arrays = append(arrays, raid.Array{
			LogicalDrives:  lds,
			PhysicalDrives: pds,
			FreeSpace:      free,
			Extra: raid.ArrayExtra{
				DiskGroup:      dg,
				BackgroundTask: strings.EqualFold(row.BT, "Y") || strings.EqualFold(row.BT, "yes"),
				DimmerSwitch:   dashIsNil(row.DS3),
			},
		})
	}
	return arrays, nil
}

// LogicalDrives returns the virtual drives of disk group dg
func LogicalDrives(dg raid.DiskGroup, rows []storcli.VirtualDriveRow) ([]raid.LogicalDrive, error) {
	lds := []raid.LogicalDrive{}
	for _, row := range rows {
		dgID, vdID, err := parseDGVD(row.DGVD)
		if err != nil {
			return nil, err
		}
		if !dg.Is(dgID) {
			continue
		}
		level, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(row.Type), "RAID"))
		if err != nil {
			return nil, fmt.Errorf("invalid RAID type %q of virtual drive %s", row.Type, row.DGVD)
		}
		size, err := ParseSize(row.Size)
		if err != nil {
			return nil, err
		}
		lds = append(lds, raid.LogicalDrive{
			Level:  level,
			Size:   size,
			Status: LogicalStatus(row.State),
			Extra: raid.LogicalDriveExtra{
				DiskGroup:    raid.Assigned(dgID),
				VirtualDrive: vdID,
				Access:       row.Access,
				Consistency:  row.Consist,
				Cache:        row.Cache,
				Name:         row.Name,
				VendorState:  row.State,
			},
		})
	}
	return lds, nil
}

// PhysicalDrives returns the drives of disk group dg
func PhysicalDrives(dg raid.DiskGroup, rows []storcli.DriveRow) ([]raid.PhysicalDrive, error) {
	pds := []raid.PhysicalDrive{}
	for _, row := range rows {
		if DiskGroup(row.DG) != dg {
			continue
		}
		pd, err := PhysicalDrive(row)
		if err != nil {
			return nil, err
		}
		pds = append(pds, pd)
	}
	return pds, nil
}

// PhysicalDrive converts one drive row
func PhysicalDrive(row storcli.DriveRow) (raid.PhysicalDrive, error) {
	size, err := ParseSize(row.Size)
	if err != nil {
		return raid.PhysicalDrive{}, fmt.Errorf("drive %s: %w", row.EIDSlt, err)
	}
	sector, err := ParseSize(row.SeSz)
	if err != nil {
		return raid.PhysicalDrive{}, fmt.Errorf("drive %s: %w", row.EIDSlt, err)
	}
	return raid.PhysicalDrive{
		Size:   size,
		Status: DriveStatus(row.State),
		Type:   row.Med,
		Extra: raid.PhysicalDriveExtra{
			Address:            row.EIDSlt,
			DriveID:            row.DID,
			Model:              strings.TrimSpace(row.Model),
			DiskGroup:          DiskGroup(row.DG),
			Interface:          row.Intf,
			SelfEncryptedDrive: row.SED != "N",
			Spun:               row.Sp,
			SectorSize:         sector,
			VendorState:        row.State,
			SpareType:          spareTypes[row.State],
		},
	}, nil
}

// FreeSpace returns the free space of disk group dg, 0 when none is listed
func FreeSpace(dg raid.DiskGroup, rows []storcli.FreeSpaceRow) (int64, error) {
	for _, row := range rows {
		if DiskGroup(row.DG) == dg {
			return ParseSize(row.Size)
		}
	}
	return 0, nil
}

// ArrayIndexByDiskGroup returns the position of the array backed by disk
// group dg, or -1
func ArrayIndexByDiskGroup(arrays []raid.Array, dg int) int {
	for i, a := range arrays {
		if a.Extra.DiskGroup.Is(dg) {
			return i
		}
	}
	return -1
}

// Spares returns the hotspares of the unconfigured list. A dedicated spare
// targets the array of its disk group, a global spare targets nothing.
func Spares(arrays []raid.Array, rows []storcli.DriveRow) ([]raid.Spare, error) {
	spares := []raid.Spare{}
	for _, row := range rows {
		if _, ok := spareTypes[row.State]; !ok {
			continue
		}
		pd, err := PhysicalDrive(row)
		if err != nil {
			return nil, err
		}
		spare := raid.Spare{PhysicalDrive: pd}
		if dg, ok := pd.Extra.DiskGroup.Get(); ok {
			target := ArrayIndexByDiskGroup(arrays, dg)
			spare.Target = &target
		}
		spares = append(spares, spare)
	}
	return spares, nil
}

// Unassigned returns the unconfigured drives that are not hotspares
func Unassigned(rows []storcli.DriveRow) ([]raid.PhysicalDrive, error) {
	drives := []raid.PhysicalDrive{}
	for _, row := range rows {
		if _, ok := spareTypes[row.State]; ok {
			continue
		}
		pd, err := PhysicalDrive(row)
		if err != nil {
			return nil, err
		}
		drives = append(drives, pd)
	}
	return drives, nil
}

// SortDrives orders drives by drive id, keeping the order of equal ids
func SortDrives(drives []raid.PhysicalDrive) {
	sort.SliceStable(drives, func(i, j int) bool {
		return drives[i].Extra.DriveID < drives[j].Extra.DriveID
	})
}

// assignIndices numbers every drive of the configuration by drive id
func assignIndices(cfg *raid.AdapterConfiguration) {
	var all []*raid.PhysicalDrive
	for i := range cfg.Arrays {
		for j := range cfg.Arrays[i].PhysicalDrives {
			all = append(all, &cfg.Arrays[i].PhysicalDrives[j])
		}
	}
	for i := range cfg.Spares {
		all = append(all, &cfg.Spares[i].PhysicalDrive)
	}
	for i := range cfg.Unassigned {
		all = append(all, &cfg.Unassigned[i])
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Extra.DriveID < all[j].Extra.DriveID
	})
	for i, pd := range all {
		pd.Index = i
	}
}

// ControllerInfo copies the vendor metadata of a controller dump
func ControllerInfo(dump storcli.ControllerDump) raid.ControllerInfo {
	return raid.ControllerInfo{
		General:             toMap(dump.Basics),
		VersionInfo:         toMap(dump.Version),
		Bus:                 dump.Bus,
		Status:              dump.Status,
		SupportedAdapterOps: dump.SupportedAdapterOperations,
		SupportedPDOps:      dump.SupportedPDOperations,
		SupportedVDOps:      dump.SupportedVDOperations,
		BBUInfo:             dump.BBUInfo,
	}
}

func parseDGVD(s string) (int, int, error) {
	dg, vd, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid DG/VD %q", s)
	}
	dgID, err := strconv.Atoi(strings.TrimSpace(dg))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid DG/VD %q: %w", s, err)
	}
	vdID, err := strconv.Atoi(strings.TrimSpace(vd))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid DG/VD %q: %w", s, err)
	}
	return dgID, vdID, nil
}

func dashIsNil(s string) *string {
	if s == storcli.Dash || s == "" {
		return nil
	}
	return &s
}

// toMap flattens a typed section back to the generic form kept in
// raid.ControllerInfo
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
