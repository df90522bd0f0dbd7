package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sigreer/raidgod/internal/procedures"
	"github.com/sigreer/raidgod/internal/raid"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Detect RAID controllers and management processors",
	Long: `Scan the PCI bus and DMI tables and list the drivers that claim
hardware on this host. With --inspect every bound driver is also queried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doInspect, _ := cmd.Flags().GetBool("inspect")

		bound, bindErr := bind(cmd.Context())
		if bindErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", bindErr)
		}

		type probed struct {
			Name    string   `json:"name"`
			Type    string   `json:"type"`
			Devices []string `json:"devices"`
			Info    any      `json:"info,omitempty"`
			Error   string   `json:"error,omitempty"`
		}
		out := make([]probed, 0, len(bound))
		for _, b := range bound {
			p := probed{Name: b.Name, Type: b.Type, Devices: b.Devices}
			if doInspect {
				info, err := b.Driver.Inspect(cmd.Context())
				if err != nil {
					p.Error = err.Error()
				}
				p.Info = info
			}
			out = append(out, p)
		}

		if wantJSON(cmd) || doInspect {
			return printJSON(os.Stdout, out)
		}
		if len(out) == 0 {
			fmt.Println("No supported hardware found.")
			return nil
		}
		fmt.Printf("%-14s %-6s %s\n", "DRIVER", "TYPE", "DEVICES")
		for _, p := range out {
			fmt.Printf("%-14s %-6s %v\n", p.Name, p.Type, p.Devices)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the RAID configuration of every controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, closeSink, err := newProcedures(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSink()

		adapters, err := p.Inspect(cmd.Context())
		var sinkErr *procedures.SinkError
		if errors.As(err, &sinkErr) {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else if err != nil {
			return err
		}

		if adapter, _ := cmd.Flags().GetInt("adapter"); adapter >= 0 {
			if adapter >= len(adapters) {
				return &raid.ControllerNotFoundError{Index: adapter}
			}
			adapters = adapters[adapter : adapter+1]
		}

		if wantJSON(cmd) {
			return printJSON(os.Stdout, adapters)
		}
		printAdapters(os.Stdout, adapters)
		return nil
	},
}

var enclosuresCmd = &cobra.Command{
	Use:   "enclosures",
	Short: "Show the enclosures attached to a controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, _ := cmd.Flags().GetString("controller")
		if controller != "all" {
			if _, err := strconv.Atoi(controller); err != nil {
				return fmt.Errorf("invalid controller %q", controller)
			}
		}

		drv, err := raidDriver(cmd.Context())
		if err != nil {
			return err
		}
		enclosures, err := drv.Storcli.Enclosures(cmd.Context(), controller)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, enclosures)
	},
}

func init() {
	probeCmd.Flags().Bool("json", false, "Output as JSON")
	probeCmd.Flags().Bool("inspect", false, "Query every bound driver")

	inspectCmd.Flags().Bool("json", false, "Output as JSON")
	inspectCmd.Flags().Int("adapter", -1, "Only show the adapter at this position")

	enclosuresCmd.Flags().StringP("controller", "c", "all", "controller id or all")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(enclosuresCmd)
}
