package megaraid

import (
	"context"
	"fmt"

	"github.com/sigreer/raidgod/internal/driver"
	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell"
	"github.com/sigreer/raidgod/internal/storcli"
)

// KernelModule is the Linux driver of MegaRAID SAS controllers and the
// registry name of this driver
const KernelModule = "megaraid_sas"

// Driver is the registry facing driver for MegaRAID controllers
type Driver struct {
	*Engine
	// Storcli is exposed for capabilities that pass parameters straight through
	Storcli *storcli.Client
	devices []string
}

// Name implements driver.Driver
func (d *Driver) Name() string { return KernelModule }

// Type implements driver.Driver
func (d *Driver) Type() string { return driver.TypeRAID }

// Devices returns the PCI slots the driver was bound to
func (d *Driver) Devices() []string { return d.devices }

// Inspect reads every bound controller by position
func (d *Driver) Inspect(ctx context.Context) (any, error) {
	return d.InspectAdapters(ctx)
}

// InspectAdapters is Inspect with a concrete result type
func (d *Driver) InspectAdapters(ctx context.Context) ([]*raid.Adapter, error) {
	adapters := make([]*raid.Adapter, 0, len(d.devices))
	for i := range d.devices {
		a, err := d.GetAdapterInfo(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect adapter %d: %w", i, err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// Probe claims RAID and SAS controllers bound to the megaraid_sas module
func Probe(_ context.Context, host driver.HostInfo) ([]string, error) {
	return driver.Slots(driver.RAIDControllers(host.PCI), KernelModule), nil
}

// Entry returns the registry entry. The storcli binary is resolved when the
// driver is created, so hosts without a MegaRAID controller never need it.
func Entry(storcliPath string, runner shell.Runner) driver.Entry {
	return driver.Entry{
		Name:  KernelModule,
		Type:  driver.TypeRAID,
		Wants: driver.WantsPCI,
		Probe: Probe,
		Factory: func(devices []string) (driver.Driver, error) {
			return NewDriver(storcliPath, runner, devices)
		},
	}
}

// NewDriver creates a driver bound to devices
func NewDriver(storcliPath string, runner shell.Runner, devices []string) (*Driver, error) {
	cli, err := storcli.New(storcliPath, runner)
	if err != nil {
		return nil, err
	}
	return &Driver{Engine: NewEngine(cli), Storcli: cli, devices: devices}, nil
}
