package megaraid

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell"
	"github.com/sigreer/raidgod/internal/storcli"
)

// CreateArray creates a virtual drive of level from drives on adapter. Every
// drive must be unconfigured good and carry no foreign configuration. size
// is in bytes, 0 uses all available space; a negative size or one that
// rounds to 0 MiB is rejected. Level, drives and size override the
// matching fields of opts.
func (e *Engine) CreateArray(ctx context.Context, adapter *raid.Adapter, level int, drives []raid.PhysicalDrive, size int64, opts storcli.AddRequest) (*shell.Result, error) {
	if len(drives) == 0 {
		return nil, &storcli.ConfigurationError{Msg: "at least one drive is required"}
	}
	if size < 0 || (size > 0 && toMiB(size) == 0) {
		return nil, &storcli.ConfigurationError{Msg: fmt.Sprintf("invalid size %d bytes, must be 0 (all space) or round to at least 1 MiB", size)}
	}

	addresses := make([]string, 0, len(drives))
	for _, d := range drives {
		if d.Extra.VendorState != GoodState {
			return nil, &raid.DriveNotEligibleError{
				Index:   d.Index,
				Address: d.Extra.Address,
				State:   d.Extra.VendorState,
			}
		}
		if d.Extra.DiskGroup.Kind == raid.DiskGroupUnknown {
			return nil, &raid.DriveNotEligibleError{
				Index:   d.Index,
				Address: d.Extra.Address,
				State:   fmt.Sprintf("%s (foreign disk group %s)", d.Extra.VendorState, d.Extra.DiskGroup.Raw),
			}
		}
		addresses = append(addresses, d.Extra.Address)
	}

	opts.Level = level
	opts.Drives = addresses
	opts.SizeMB = 0
	if size > 0 {
		opts.SizeMB = toMiB(size)
	}

	return e.cli.Add(ctx, strconv.Itoa(adapter.ControllerID), opts)
}

// DeleteLogicalDrive deletes logical drive ldIndex of array arrayIndex on
// the adapter at adapterIndex. Positions are checked against a fresh read.
func (e *Engine) DeleteLogicalDrive(ctx context.Context, adapterIndex, arrayIndex, ldIndex int) (*shell.Result, error) {
	adapter, err := e.GetAdapterInfo(ctx, adapterIndex)
	if err != nil {
		return nil, err
	}

	arrays := adapter.Configuration.Arrays
	if arrayIndex < 0 || arrayIndex >= len(arrays) ||
		ldIndex < 0 || ldIndex >= len(arrays[arrayIndex].LogicalDrives) {
		return nil, &raid.NotFoundError{
			What: fmt.Sprintf("logical drive at %d:%d:%d", adapterIndex, arrayIndex, ldIndex),
		}
	}

	vd := arrays[arrayIndex].LogicalDrives[ldIndex].Extra.VirtualDrive
	return e.cli.Delete(ctx, strconv.Itoa(adapter.ControllerID), strconv.Itoa(vd))
}

// ClearConfiguration deletes every virtual drive of the adapter at
// adapterIndex
func (e *Engine) ClearConfiguration(ctx context.Context, adapterIndex int) (*shell.Result, error) {
	adapter, err := e.GetAdapterInfo(ctx, adapterIndex)
	if err != nil {
		return nil, err
	}
	return e.cli.Delete(ctx, strconv.Itoa(adapter.ControllerID), storcli.All)
}

// DeleteVirtualDrive deletes virtual drive vd (a number or "all") on the
// controller with vendor id controllerID
func (e *Engine) DeleteVirtualDrive(ctx context.Context, controllerID int, vd string) (*shell.Result, error) {
	vd = strings.TrimSpace(vd)
	if vd == "" {
		vd = storcli.All
	}
	if vd != storcli.All {
		if n, err := strconv.Atoi(vd); err != nil || n < 0 {
			return nil, &storcli.ConfigurationError{Msg: fmt.Sprintf("virtual drive must be a number or %q, got %q", storcli.All, vd)}
		}
	}
	if controllerID < 0 {
		return nil, &storcli.ConfigurationError{Msg: fmt.Sprintf("invalid controller id %d", controllerID)}
	}
	return e.cli.Delete(ctx, strconv.Itoa(controllerID), vd)
}

// AddSpares turns the selected drives of the adapter at adapterIndex into
// hotspares. With arrayIndices the spares are dedicated to those arrays,
// otherwise they are global. All references are resolved before any
// command runs.
func (e *Engine) AddSpares(ctx context.Context, adapterIndex int, selector raid.DriveSelector, arrayIndices []int) ([]*shell.Result, error) {
	adapter, err := e.GetAdapterInfo(ctx, adapterIndex)
	if err != nil {
		return nil, err
	}
	cfg := adapter.Configuration

	var dgs []int
	for _, idx := range arrayIndices {
		if idx < 0 || idx >= len(cfg.Arrays) {
			return nil, &raid.NotFoundError{What: fmt.Sprintf("array %d", idx)}
		}
		dg, ok := cfg.Arrays[idx].Extra.DiskGroup.Get()
		if !ok {
			return nil, &raid.NotFoundError{What: fmt.Sprintf("disk group of array %d", idx)}
		}
		dgs = append(dgs, dg)
	}

	drives, err := cfg.Select(selector)
	if err != nil {
		return nil, err
	}

	controller := strconv.Itoa(adapter.ControllerID)
	results := make([]*shell.Result, 0, len(drives))
	for _, d := range drives {
		enclosure, slot := SplitAddress(d.Extra.Address)
		res, err := e.cli.AddHotspare(ctx, controller, enclosure, slot, dgs)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SplitAddress splits an "enclosure:slot" address. Drives attached directly
// to the controller have no enclosure.
func SplitAddress(address string) (enclosure, slot string) {
	enclosure, slot, ok := strings.Cut(address, ":")
	if !ok {
		return "", address
	}
	if strings.TrimSpace(enclosure) == "" {
		return "", slot
	}
	return enclosure, slot
}
