package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sigreer/raidgod/internal/procedures"
	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a virtual drive",
	Long: `Create a virtual drive from unconfigured good drives.

Drives are picked by enclosure:slot address (--drives 32:3,32:4), by index as
shown by 'raidgod inspect' (--index 3,4), or all unassigned drives
(--unassigned). Policies left unset use capabilities.create_defaults.`,
	Example: `  raidgod create --level 1 --drives 32:3,32:4
  raidgod create -c 0 --level 10 --pdperarray 2 --index 3,4,5,6 --size 500GiB`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		req := procedures.CreateRequest{Drives: selector(f)}
		req.ControllerID, _ = f.GetInt("controller")
		req.Level, _ = f.GetInt("level")

		if s, _ := f.GetString("size"); s != "" {
			n, err := humanize.ParseBytes(s)
			if err != nil {
				return fmt.Errorf("invalid size %q: %w", s, err)
			}
			req.Size = int64(n)
		}

		req.Policy.PDPerArray, _ = f.GetInt("pdperarray")
		req.Policy.StripSize, _ = f.GetInt("strip")
		req.Policy.WritePolicy, _ = f.GetString("wp")
		req.Policy.ReadPolicy, _ = f.GetString("rp")
		req.Policy.IOMode, _ = f.GetString("io")
		req.Policy.PDCache, _ = f.GetString("pdcache")
		req.Policy.DimmerSwitch, _ = f.GetString("ds")
		req.Policy.Spares, _ = f.GetString("spares")
		req.Policy.AfterVD, _ = f.GetString("aftervd")
		req.Policy.CacheVD, _ = f.GetBool("cachevd")
		req.Policy.CacheBadBBU, _ = f.GetBool("cachebadbbu")

		p, closeSink, err := newProcedures(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSink()

		res, err := p.Create(cmd.Context(), req)
		return report(res, err)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <vd|all>",
	Short: "Delete a virtual drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, _ := cmd.Flags().GetInt("controller")

		p, closeSink, err := newProcedures(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSink()

		res, err := p.Delete(cmd.Context(), controller, args[0])
		return report(res, err)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every virtual drive of an adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, _ := cmd.Flags().GetInt("adapter")
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("clear destroys all virtual drives, pass --yes to confirm")
		}

		p, closeSink, err := newProcedures(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSink()

		res, err := p.Clear(cmd.Context(), adapter)
		return report(res, err)
	},
}

var sparesCmd = &cobra.Command{
	Use:   "spares",
	Short: "Manage hotspares",
}

var sparesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Turn drives into hotspares",
	Long: `Turn the selected drives into hotspares. With --arrays the spares are
dedicated to those arrays (positions as shown by 'raidgod inspect'),
otherwise they are global.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, _ := cmd.Flags().GetInt("adapter")
		arrays, _ := cmd.Flags().GetIntSlice("arrays")

		p, closeSink, err := newProcedures(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSink()

		results, err := p.AddSpares(cmd.Context(), adapter, selector(cmd.Flags()), arrays)
		for _, res := range results {
			printResult(res)
		}
		return warnSink(err)
	},
}

func selector(f *pflag.FlagSet) raid.DriveSelector {
	var s raid.DriveSelector
	s.Addresses, _ = f.GetStringSlice("drives")
	s.Indices, _ = f.GetIntSlice("index")
	s.Unassigned, _ = f.GetBool("unassigned")
	return s
}

func selectorFlags(f *pflag.FlagSet) {
	f.StringSlice("drives", nil, "drive addresses (enclosure:slot)")
	f.IntSlice("index", nil, "drive indices")
	f.Bool("unassigned", false, "select every unassigned drive")
}

func printResult(res *shell.Result) {
	if res == nil {
		return
	}
	if out := res.String(); out != "" {
		fmt.Println(out)
	}
}

// warnSink downgrades a failed inventory update after a successful change
// to a warning
func warnSink(err error) error {
	var sinkErr *procedures.SinkError
	if errors.As(err, &sinkErr) {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return nil
	}
	return err
}

func report(res *shell.Result, err error) error {
	if err = warnSink(err); err != nil {
		return err
	}
	printResult(res)
	return nil
}

func init() {
	createCmd.Flags().IntP("controller", "c", 0, "controller id")
	createCmd.Flags().IntP("level", "l", 0, "RAID level (0, 1, 5, 6, 10, 50, 60)")
	createCmd.Flags().String("size", "", "volume size, e.g. 500GiB (default all available space)")
	createCmd.Flags().Int("pdperarray", 0, "drives per span, required for RAID 10, 50 and 60")
	createCmd.Flags().Int("strip", 0, "strip size in KiB")
	createCmd.Flags().String("wp", "", "write policy (wt, wb, awb)")
	createCmd.Flags().String("rp", "", "read policy (ra, nora)")
	createCmd.Flags().String("io", "", "io policy (direct, cached)")
	createCmd.Flags().String("pdcache", "", "drive cache (on, off, default)")
	createCmd.Flags().String("ds", "", "dimmer switch (power saving) policy")
	createCmd.Flags().String("spares", "", "dedicated spares, enclosure:slot list")
	createCmd.Flags().String("aftervd", "", "create the volume after this virtual drive")
	createCmd.Flags().Bool("cachevd", false, "enable SSD caching of the volume")
	createCmd.Flags().Bool("cachebadbbu", false, "keep write back with a bad battery")
	selectorFlags(createCmd.Flags())

	deleteCmd.Flags().IntP("controller", "c", 0, "controller id")

	clearCmd.Flags().IntP("adapter", "a", 0, "adapter position")
	clearCmd.Flags().Bool("yes", false, "confirm")

	sparesAddCmd.Flags().IntP("adapter", "a", 0, "adapter position")
	sparesAddCmd.Flags().IntSlice("arrays", nil, "dedicate to these array positions")
	selectorFlags(sparesAddCmd.Flags())
	sparesCmd.AddCommand(sparesAddCmd)

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(sparesCmd)
}
