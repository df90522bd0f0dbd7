package obm

import (
	"context"

	"github.com/sigreer/raidgod/internal/driver"
	"github.com/sigreer/raidgod/internal/shell"
)

// DellVendor is the DMI system vendor of Dell servers
const DellVendor = "Dell Inc."

const systemSection = "System Information"

// DRAC is the driver for Dell Remote Access Controllers
type DRAC struct {
	rac *SimpleRAC
}

// Name implements driver.Driver
func (d *DRAC) Name() string { return "drac" }

// Type implements driver.Driver
func (d *DRAC) Type() string { return driver.TypeBMC }

// Inspect returns the controller's getsysinfo report
func (d *DRAC) Inspect(ctx context.Context) (any, error) {
	return d.rac.GetSysInfo(ctx)
}

// DRACEntry returns the registry entry. The probe needs a Dell DMI vendor
// and a racadm that answers getsysinfo with a system section.
func DRACEntry(racadmPath string, runner shell.Runner) driver.Entry {
	return driver.Entry{
		Name:  "drac",
		Type:  driver.TypeBMC,
		Wants: driver.WantsDMI,
		Probe: func(ctx context.Context, host driver.HostInfo) ([]string, error) {
			if host.DMI.SysVendor != DellVendor {
				return nil, nil
			}
			rac, err := NewSimpleRAC(racadmPath, runner)
			if err != nil {
				return nil, err
			}
			info, err := rac.GetSysInfo(ctx)
			if err != nil {
				return nil, err
			}
			if _, ok := info[systemSection]; !ok {
				return nil, nil
			}
			return []string{"dmi"}, nil
		},
		Factory: func([]string) (driver.Driver, error) {
			rac, err := NewSimpleRAC(racadmPath, runner)
			if err != nil {
				return nil, err
			}
			return &DRAC{rac: rac}, nil
		},
	}
}
