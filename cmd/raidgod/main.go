package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/raidgod/internal/config"
	"github.com/sigreer/raidgod/internal/driver"
	"github.com/sigreer/raidgod/internal/inventory"
	"github.com/sigreer/raidgod/internal/logging"
	"github.com/sigreer/raidgod/internal/megaraid"
	"github.com/sigreer/raidgod/internal/metrics"
	"github.com/sigreer/raidgod/internal/obm"
	"github.com/sigreer/raidgod/internal/procedures"
	"github.com/sigreer/raidgod/internal/shell"
)

var (
	cfgFile     string
	noInventory bool
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "raidgod",
	Short: "RAID controller inventory and configuration tool",
	Long: `raidgod inspects hardware RAID controllers through their vendor CLI
(storcli/perccli for MegaRAID and PERC), normalizes what it finds into one
inventory model, and creates or removes arrays and hotspares.

Every inspection and successful change is recorded in a local SQLite
inventory, and optionally in a Prometheus textfile.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		return logging.Setup(cfg.Logging, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/raidgod/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noInventory, "no-inventory", false, "do not record results in the inventory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runner() shell.Runner {
	return shell.NewExecRunner(cfg.Agent.UseSudo)
}

func newRegistry(r shell.Runner) (*driver.Registry, error) {
	hw := cfg.Agent.Hardware
	return driver.NewRegistry(
		megaraid.Entry(hw.RAID.StorcliPath, r),
		obm.DRACEntry(hw.OBM.RacadmPath, r),
	)
}

// bind scans the host and binds every driver that claims a device
func bind(ctx context.Context) ([]driver.Bound, error) {
	reg, err := newRegistry(runner())
	if err != nil {
		return nil, err
	}
	host, err := driver.ScanHost(cfg.Agent.SysfsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to scan host: %w", err)
	}
	return reg.Bind(ctx, host)
}

// raidDriver returns the bound MegaRAID driver
func raidDriver(ctx context.Context) (*megaraid.Driver, error) {
	bound, bindErr := bind(ctx)
	drv, ok := driver.Find(bound, megaraid.KernelModule)
	if !ok {
		if bindErr != nil {
			return nil, bindErr
		}
		return nil, errors.New("no MegaRAID controller found on this host")
	}
	return drv.(*megaraid.Driver), nil
}

// openSink returns the configured inventory sinks and a function closing
// them. With --no-inventory the sink is nil.
func openSink() (inventory.Sink, func(), error) {
	if noInventory {
		return nil, func() {}, nil
	}
	store, err := inventory.Open(cfg.Inventory.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening inventory: %w", err)
	}
	sinks := inventory.MultiSink{store}
	if cfg.Inventory.Textfile != "" {
		sinks = append(sinks, metrics.New(cfg.Inventory.Textfile))
	}
	return sinks, func() { store.Close() }, nil
}

// newProcedures binds the MegaRAID driver and wraps it with the inventory
// sinks
func newProcedures(ctx context.Context) (*procedures.Procedures, func(), error) {
	drv, err := raidDriver(ctx)
	if err != nil {
		return nil, nil, err
	}
	sink, closeSink, err := openSink()
	if err != nil {
		return nil, nil, err
	}
	p := procedures.New(drv, sink, procedures.Options{
		HostID:         cfg.HostID(),
		Timeout:        cfg.Capabilities.Timeout,
		CreateDefaults: cfg.Capabilities.CreateDefaults,
	})
	return p, closeSink, nil
}
