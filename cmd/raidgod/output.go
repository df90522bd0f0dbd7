package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sigreer/raidgod/internal/raid"
)

// wantJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal
func wantJSON(cmd *cobra.Command) bool {
	if j, _ := cmd.Flags().GetBool("json"); j {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func size(b int64) string {
	if b <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(b))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func printAdapters(w io.Writer, adapters []*raid.Adapter) {
	for i, a := range adapters {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fw := a.Controller.VersionInfo["Firmware Package Build"]
		fmt.Fprintf(w, "Adapter %d: %s (controller %d, %s", a.Index, a.Name, a.ControllerID, a.Provider)
		if fw != nil {
			fmt.Fprintf(w, ", firmware %v", fw)
		}
		fmt.Fprintln(w, ")")
		fmt.Fprintln(w, strings.Repeat("-", 85))

		cfg := a.Configuration
		for j, arr := range cfg.Arrays {
			bt := ""
			if arr.Extra.BackgroundTask {
				bt = " [background task]"
			}
			fmt.Fprintf(w, "Array %d (DG %s) free %s%s\n", j, arr.Extra.DiskGroup, size(arr.FreeSpace), bt)
			for k, ld := range arr.LogicalDrives {
				fmt.Fprintf(w, "  LD %d  VD %-3d RAID%-3d %-10s %-11s %s\n",
					k, ld.Extra.VirtualDrive, ld.Level, size(ld.Size), ld.Status, orDash(ld.Extra.Name))
			}
			for _, d := range arr.PhysicalDrives {
				printDrive(w, "  ", d, "")
			}
		}

		if len(cfg.Spares) > 0 {
			fmt.Fprintln(w, "Spares")
			for _, sp := range cfg.Spares {
				target := string(sp.Extra.SpareType)
				if sp.Target != nil {
					target = fmt.Sprintf("%s -> array %d", target, *sp.Target)
				}
				printDrive(w, "  ", sp.PhysicalDrive, target)
			}
		}
		if len(cfg.Unassigned) > 0 {
			fmt.Fprintln(w, "Unassigned")
			for _, d := range cfg.Unassigned {
				printDrive(w, "  ", d, "")
			}
		}
	}
}

func printDrive(w io.Writer, indent string, d raid.PhysicalDrive, note string) {
	fmt.Fprintf(w, "%s#%-3d %-8s %-10s %-7s %-6s %-4s %-22s %s\n",
		indent, d.Index, d.Extra.Address, size(d.Size), d.Status, d.Extra.VendorState,
		orDash(d.Type), truncate(orDash(d.Extra.Model), 22), note)
}
