// Package driver matches hardware drivers to the devices present on a host.
//
// Drivers are listed in a Registry as plain entries holding a probe and a
// factory. Bind runs every probe against a HostInfo and instantiates the
// drivers that claim devices.
package driver

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// What a probe consumes
const (
	WantsPCI = "pci"
	WantsDMI = "dmi"
)

// Driver types
const (
	TypeRAID = "raid"
	TypeBMC  = "bmc"
)

// Driver is an instantiated driver bound to the devices its probe claimed
type Driver interface {
	Name() string
	Type() string
	// Inspect reports the current state of every bound device
	Inspect(ctx context.Context) (any, error)
}

// ProbeFunc returns the ids of the devices a driver claims, usually PCI
// slots. An empty result means the driver does not apply to this host.
type ProbeFunc func(ctx context.Context, host HostInfo) ([]string, error)

// FactoryFunc builds a driver for the claimed devices
type FactoryFunc func(devices []string) (Driver, error)

// Entry is one row of the registry
type Entry struct {
	Name    string
	Type    string
	Wants   string
	Probe   ProbeFunc
	Factory FactoryFunc
}

// Bound is a driver that claimed at least one device
type Bound struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Devices []string `json:"devices"`
	Driver  Driver   `json:"-"`
}

// Registry is the table of known drivers. It is filled once at startup and
// read only afterwards.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

// NewRegistry creates a registry holding entries
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]int)}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an entry. Names must be unique.
func (r *Registry) Register(e Entry) error {
	if e.Name == "" || e.Probe == nil || e.Factory == nil {
		return fmt.Errorf("driver entry %q is incomplete", e.Name)
	}
	if _, ok := r.byName[e.Name]; ok {
		return fmt.Errorf("driver %q is already registered", e.Name)
	}
	r.byName[e.Name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Lookup returns the entry registered under name
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns the entries in registration order
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Bind probes every entry against host and instantiates the drivers that
// claim devices. A failing probe or factory does not stop the others; their
// errors are joined into the returned error.
func (r *Registry) Bind(ctx context.Context, host HostInfo) ([]Bound, error) {
	var bound []Bound
	var errs []error

	for _, e := range r.entries {
		logger := log.WithFields(log.Fields{"driver": e.Name, "wants": e.Wants})

		devices, err := e.Probe(ctx, host)
		if err != nil {
			logger.WithError(err).Warn("probe failed")
			errs = append(errs, fmt.Errorf("probe %s: %w", e.Name, err))
			continue
		}
		if len(devices) == 0 {
			logger.Debug("no devices claimed")
			continue
		}

		drv, err := e.Factory(devices)
		if err != nil {
			logger.WithError(err).Warn("failed to create driver")
			errs = append(errs, fmt.Errorf("create %s: %w", e.Name, err))
			continue
		}

		logger.WithField("devices", devices).Info("driver bound")
		bound = append(bound, Bound{Name: e.Name, Type: e.Type, Devices: devices, Driver: drv})
	}

	return bound, errors.Join(errs...)
}

// Find returns the bound driver named name
func Find(bound []Bound, name string) (Driver, bool) {
	for _, b := range bound {
		if b.Name == name {
			return b.Driver, true
		}
	}
	return nil, false
}

// Slots returns the slots of the devices driven by the kernel module name
func Slots(devices []PCIDevice, module string) []string {
	var out []string
	for _, d := range devices {
		if d.Driver == module {
			out = append(out, d.Slot)
		}
	}
	return out
}
